// Package thr implements the top-hat-by-reconstruction decomposition: a
// transport field is split into a smooth background (grayscale
// reconstruction of an eroded marker) and a non-negative transient anomaly.
package thr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meridian-data/vapor.report/internal/grid"
)

// Params configures the structuring element and the optional orographic
// enhancement.
type Params struct {
	// TimeHalfWidth is the half extent of the structuring element along the
	// time axis, in time steps. The full extent is 2*TimeHalfWidth+1.
	TimeHalfWidth int
	// SpatialHalfWidth is the half extent in grid cells, isotropic in
	// latitude and longitude.
	SpatialHalfWidth int

	// Terrain is an optional static elevation grid, row-major [y][x] matching
	// the field's spatial shape, in metres.
	Terrain []float64
	// HighTerrainM is the elevation above which a cell is treated as high
	// terrain. Over such cells the marker is eroded with a doubled spatial
	// half-width, lowering the reconstructed background so transport signal
	// over elevated terrain is not absorbed into it.
	HighTerrainM float64
}

// Validate checks the structuring element extents and terrain shape against
// the field.
func (p Params) Validate(f *grid.Field) error {
	if p.TimeHalfWidth < 0 || p.SpatialHalfWidth < 0 {
		return fmt.Errorf("structuring element half-widths must be non-negative, got t=%d s=%d",
			p.TimeHalfWidth, p.SpatialHalfWidth)
	}
	if p.Terrain != nil && len(p.Terrain) != f.NY()*f.NX() {
		return fmt.Errorf("terrain grid length %d does not match field spatial shape %dx%d",
			len(p.Terrain), f.NY(), f.NX())
	}
	return nil
}

// Result is the THR decomposition triple. Background and Anomaly share the
// input field's axes; Anomaly = Input - Background elementwise and is
// non-negative everywhere.
type Result struct {
	Input      *grid.Field
	Background *grid.Field
	Anomaly    *grid.Field
}

// Decompose runs the full THR pipeline: erode the field into a marker,
// reconstruct the background by geodesic dilation under the field, and
// subtract. When the field is cyclic the structuring element and the
// reconstruction wrap across the longitude seam.
func Decompose(v *grid.Field, p Params) (*Result, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("input field: %w", err)
	}
	if err := p.Validate(v); err != nil {
		return nil, err
	}

	marker := erode(v, p.TimeHalfWidth, p.SpatialHalfWidth)

	if p.Terrain != nil {
		// Wider spatial erosion gives a lower marker; splice it in over
		// high-terrain cells only.
		wide := erode(v, p.TimeHalfWidth, 2*p.SpatialHalfWidth)
		ny, nx := v.NY(), v.NX()
		for t := 0; t < v.NT(); t++ {
			base := t * ny * nx
			for i, ele := range p.Terrain {
				if ele >= p.HighTerrainM {
					marker.Data[base+i] = wide.Data[base+i]
				}
			}
		}
	}

	rec := reconstruct(marker, v)

	ano := &grid.Field{
		Data:   make([]float64, len(v.Data)),
		Times:  v.Times,
		Lats:   v.Lats,
		Lons:   v.Lons,
		Cyclic: v.Cyclic,
	}
	floats.SubTo(ano.Data, v.Data, rec.Data)
	// Clamp the tiny negatives that elementwise subtraction of equal values
	// can leave behind.
	for i, a := range ano.Data {
		if a < 0 {
			ano.Data[i] = 0
		}
	}

	return &Result{Input: v, Background: rec, Anomaly: ano}, nil
}

// erode applies a grayscale erosion (sliding minimum) with a box structuring
// element of half-widths (tHalf, sHalf, sHalf). Domain edges replicate; a
// cyclic longitude axis wraps instead.
func erode(v *grid.Field, tHalf, sHalf int) *grid.Field {
	out := &grid.Field{
		Data:   make([]float64, len(v.Data)),
		Times:  v.Times,
		Lats:   v.Lats,
		Lons:   v.Lons,
		Cyclic: v.Cyclic,
	}
	copy(out.Data, v.Data)

	nt, ny, nx := v.NT(), v.NY(), v.NX()
	tmp := make([]float64, len(v.Data))

	// A box minimum is separable: erode along each axis in turn.
	// Time axis.
	if tHalf > 0 {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				slideMin(out.Data, tmp, y*nx+x, nt, ny*nx, tHalf, false)
			}
		}
		out.Data, tmp = tmp, out.Data
	}
	// Latitude axis.
	if sHalf > 0 {
		for t := 0; t < nt; t++ {
			for x := 0; x < nx; x++ {
				slideMin(out.Data, tmp, t*ny*nx+x, ny, nx, sHalf, false)
			}
		}
		out.Data, tmp = tmp, out.Data
		// Longitude axis.
		for t := 0; t < nt; t++ {
			for y := 0; y < ny; y++ {
				slideMin(out.Data, tmp, (t*ny+y)*nx, nx, 1, sHalf, v.Cyclic)
			}
		}
		out.Data, tmp = tmp, out.Data
	}
	return out
}

// slideMin writes the sliding minimum of a single run of n samples starting
// at base with the given stride. Out-of-range neighbours replicate the edge
// sample unless wrap is set.
func slideMin(src, dst []float64, base, n, stride, half int, wrap bool) {
	for i := 0; i < n; i++ {
		m := math.Inf(1)
		for j := i - half; j <= i+half; j++ {
			jj := j
			if wrap {
				jj = ((j % n) + n) % n
			} else if jj < 0 {
				jj = 0
			} else if jj >= n {
				jj = n - 1
			}
			if v := src[base+jj*stride]; v < m {
				m = v
			}
		}
		dst[base+i*stride] = m
	}
}

// reconstruct performs grayscale reconstruction of marker under mask by
// geodesic dilation: the marker grows through 26-connected neighbours,
// clipped to the mask, until a fixed point. The sequential two-sweep
// formulation converges in a handful of passes over synoptic fields.
func reconstruct(marker, mask *grid.Field) *grid.Field {
	nt, ny, nx := mask.NT(), mask.NY(), mask.NX()
	out := &grid.Field{
		Data:   make([]float64, len(marker.Data)),
		Times:  mask.Times,
		Lats:   mask.Lats,
		Lons:   mask.Lons,
		Cyclic: mask.Cyclic,
	}
	for i := range marker.Data {
		out.Data[i] = math.Min(marker.Data[i], mask.Data[i])
	}

	idx := func(t, y, x int) int { return (t*ny+y)*nx + x }
	wrapX := func(x int) (int, bool) {
		if x >= 0 && x < nx {
			return x, true
		}
		if mask.Cyclic {
			return ((x % nx) + nx) % nx, true
		}
		return 0, false
	}

	// Neighbour offsets in the 3x3x3 box, split into the half preceding the
	// centre in raster order (forward sweep) and the half following it
	// (backward sweep).
	type off struct{ dt, dy, dx int }
	var past, future []off
	for dt := -1; dt <= 1; dt++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dt == 0 && dy == 0 && dx == 0 {
					continue
				}
				if dt < 0 || (dt == 0 && dy < 0) || (dt == 0 && dy == 0 && dx < 0) {
					past = append(past, off{dt, dy, dx})
				} else {
					future = append(future, off{dt, dy, dx})
				}
			}
		}
	}

	propagate := func(t, y, x int, neigh []off) bool {
		i := idx(t, y, x)
		best := out.Data[i]
		for _, o := range neigh {
			tt, yy := t+o.dt, y+o.dy
			if tt < 0 || tt >= nt || yy < 0 || yy >= ny {
				continue
			}
			xx, ok := wrapX(x + o.dx)
			if !ok {
				continue
			}
			if v := out.Data[idx(tt, yy, xx)]; v > best {
				best = v
			}
		}
		if best > mask.Data[i] {
			best = mask.Data[i]
		}
		if best != out.Data[i] {
			out.Data[i] = best
			return true
		}
		return false
	}

	for {
		changed := false
		for t := 0; t < nt; t++ {
			for y := 0; y < ny; y++ {
				for x := 0; x < nx; x++ {
					if propagate(t, y, x, past) {
						changed = true
					}
				}
			}
		}
		for t := nt - 1; t >= 0; t-- {
			for y := ny - 1; y >= 0; y-- {
				for x := nx - 1; x >= 0; x-- {
					if propagate(t, y, x, future) {
						changed = true
					}
				}
			}
		}
		if !changed {
			return out
		}
	}
}

// Reconstruct exposes geodesic reconstruction for reuse and for the
// idempotence property: reconstructing a reconstruction returns it
// unchanged.
func Reconstruct(marker, mask *grid.Field) *grid.Field {
	return reconstruct(marker, mask)
}
