package detect

import (
	"fmt"
	"math"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

// attributes holds everything computed for one candidate object before any
// filtering decision is taken.
type attributes struct {
	cells     []int
	contour   []geometry.Point
	centroid  geometry.Point
	areaKm2   float64
	axisCells []int
	axis      []geometry.Point
	lengthKm  float64
	isoq      float64
	meanAngle float64
	crossFlux float64
}

// computeAttributes derives the full attribute set of one candidate from its
// cell set. Zero-area, zero-perimeter and non-finite results are local
// computation faults: the candidate is rejected with an error and processing
// continues.
func (d *Detector) computeAttributes(cells []int, ano, u, v []float64) (*attributes, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("empty cell set")
	}
	ny, nx := len(d.lats), len(d.lons)

	a := &attributes{cells: cells}

	// area and area-weighted centroid; longitude averaged seam-aware
	// against the first cell's meridian
	refLon := d.lons[cells[0]%nx]
	var sumArea, sumLat, sumLon float64
	for _, c := range cells {
		w := d.areas[c]
		sumArea += w
		sumLat += w * d.lats[c/nx]
		sumLon += w * (refLon + geometry.WrapLonDiff(refLon, d.lons[c%nx]))
	}
	if sumArea <= 0 {
		return nil, fmt.Errorf("zero-area object")
	}
	a.areaKm2 = sumArea
	a.centroid = geometry.Point{Lat: sumLat / sumArea, Lon: normLon(sumLon / sumArea)}

	// outer contour and isoperimetric quotient
	ring := traceContour(cells, ny, nx, d.cyclic)
	a.contour = ringToPolyline(ring, d.lats, d.lons)
	perim := perimeterKm(a.contour)
	if perim <= 0 {
		return nil, fmt.Errorf("degenerate contour")
	}
	a.isoq = 4 * math.Pi * a.areaKm2 / (perim * perim)

	// flux-gated axis
	g := buildAxisGraph(cells, ano, u, v, d.lats, d.lons, nx, d.cyclic, d.opts.EdgeEps)
	axis := findAxis(g, ano, ny, nx, d.cyclic)
	a.axisCells = axis.cells
	a.axis = axisPolyline(axis.cells, d.lats, d.lons, d.opts.RDPToleranceDeg)
	a.lengthKm = geometry.PolylineLengthKm(a.axis)
	if a.lengthKm <= 0 {
		return nil, fmt.Errorf("zero-length axis")
	}

	a.meanAngle, a.crossFlux = d.axisFlux(axis.cells, u, v)

	for _, val := range []float64{a.areaKm2, a.lengthKm, a.isoq, a.meanAngle, a.crossFlux,
		a.centroid.Lat, a.centroid.Lon} {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("non-finite attribute")
		}
	}
	return a, nil
}

// axisFlux walks the unsimplified axis path and accumulates the mean
// tangent-to-flux angle (degrees, segment-length weighted) and the
// integrated cross-axis flux (flux component normal to the axis integrated
// along it, in flux-units·km).
func (d *Detector) axisFlux(path []int, u, v []float64) (meanAngleDeg, crossFlux float64) {
	nx := len(d.lons)
	var sumAngle, sumLen, sumCross float64
	for i := 0; i+1 < len(path); i++ {
		c, n := path[i], path[i+1]
		y, x := c/nx, c%nx
		yy, xx := n/nx, n%nx

		dlat := d.lats[yy] - d.lats[y]
		dlon := geometry.WrapLonDiff(d.lons[x], d.lons[xx])
		te, tn := geometry.LocalTangentKm((d.lats[y]+d.lats[yy])/2, dlat, dlon)
		segKm := math.Hypot(te, tn)
		if segKm == 0 {
			continue
		}

		fe := (u[c] + u[n]) / 2
		fn := (v[c] + v[n]) / 2
		fluxMag := math.Hypot(fe, fn)
		if fluxMag == 0 {
			continue
		}

		cosA := (fe*te + fn*tn) / (fluxMag * segKm)
		if cosA > 1 {
			cosA = 1
		} else if cosA < -1 {
			cosA = -1
		}
		angle := geometry.RadToDeg(math.Acos(cosA))
		cross := math.Abs(fe*tn-fn*te) / segKm // |flux x tangent-hat|

		sumAngle += angle * segKm
		sumCross += cross * segKm
		sumLen += segKm
	}
	if sumLen == 0 {
		return 0, 0
	}
	return sumAngle / sumLen, sumCross
}

// normLon folds a longitude into [0, 360).
func normLon(lon float64) float64 {
	l := math.Mod(lon, 360.0)
	if l < 0 {
		l += 360.0
	}
	return l
}

// verdict is the outcome of the filter chain for one candidate.
type verdict int

const (
	verdictReject verdict = iota
	verdictRelaxed
	verdictStrict
)

// classify applies the filter chain in order: hard area bounds, hard
// centroid-latitude bounds, hard length/shape bounds, then the soft bounds
// that downgrade a keeper to relaxed.
func (o Options) classify(a *attributes) (verdict, string) {
	if a.areaKm2 < o.MinAreaKm2 || a.areaKm2 > o.MaxAreaKm2 {
		return verdictReject, "area"
	}
	absLat := math.Abs(a.centroid.Lat)
	if absLat < o.MinLat || absLat > o.MaxLat {
		return verdictReject, "latitude"
	}
	if a.lengthKm < o.MinLengthHardKm || a.isoq > o.MaxIsoqHard {
		return verdictReject, "hard_shape"
	}
	if a.lengthKm < o.MinLengthKm || a.isoq > o.MaxIsoq {
		return verdictRelaxed, ""
	}
	return verdictStrict, ""
}
