package detect

import (
	"github.com/meridian-data/vapor.report/internal/geometry"
)

// mooreDirs is the 8-neighbourhood in clockwise order (image coordinates,
// y increasing southward in the array sense).
var mooreDirs = [8][2]int{
	{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
	{0, 1}, {1, 1}, {1, 0}, {1, -1},
}

// traceContour walks the outer boundary of a cell set with Moore-neighbour
// tracing, returning an ordered closed ring of flat cell indices. The ring
// starts at the component's raster-first cell. A single-cell component
// yields a one-point ring.
func traceContour(cells []int, ny, nx int, cyclic bool) []int {
	if len(cells) == 0 {
		return nil
	}
	in := make(map[int]bool, len(cells))
	for _, c := range cells {
		in[c] = true
	}
	lookup := func(y, x int) bool {
		if y < 0 || y >= ny {
			return false
		}
		if x < 0 || x >= nx {
			if !cyclic {
				return false
			}
			x = ((x % nx) + nx) % nx
		}
		return in[y*nx+x]
	}

	start := cells[0] // raster-first
	sy, sx := start/nx, start%nx

	// initial backtrack: first background neighbour clockwise from west
	backtrack := -1
	for d := 0; d < 8; d++ {
		if !lookup(sy+mooreDirs[d][0], sx+mooreDirs[d][1]) {
			backtrack = d
			break
		}
	}
	if backtrack == -1 {
		// no background neighbour at all; degenerate ring
		return []int{start}
	}

	ring := []int{start}
	cy, cx := sy, sx
	dir := backtrack
	limit := 8 * (len(cells) + 8)

	for step := 0; step < limit; step++ {
		moved := false
		for k := 1; k <= 8; k++ {
			d := (dir + k) % 8
			yy := cy + mooreDirs[d][0]
			xx := cx + mooreDirs[d][1]
			if lookup(yy, xx) {
				if cyclic {
					xx = ((xx % nx) + nx) % nx
				}
				cy, cx = yy, xx
				// resume the clockwise scan just past the cell we came from
				dir = (d + 4) % 8
				moved = true
				break
			}
		}
		if !moved {
			break // isolated cell
		}
		if cy == sy && cx == sx {
			break // closed the ring
		}
		ring = append(ring, cy*nx+cx)
	}
	return ring
}

// ringToPolyline converts a ring of flat indices to a closed lat/lon
// polyline (first point repeated at the end when the ring has more than one
// point).
func ringToPolyline(ring []int, lats, lons []float64) []geometry.Point {
	nx := len(lons)
	pts := make([]geometry.Point, 0, len(ring)+1)
	for _, c := range ring {
		pts = append(pts, geometry.Point{Lat: lats[c/nx], Lon: lons[c%nx]})
	}
	if len(pts) > 1 {
		pts = append(pts, pts[0])
	}
	return pts
}

// perimeterKm is the great-circle length around a closed contour polyline.
func perimeterKm(contour []geometry.Point) float64 {
	return geometry.PolylineLengthKm(contour)
}
