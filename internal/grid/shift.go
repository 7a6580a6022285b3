package grid

import (
	"fmt"
	"math"
)

// ShiftLon rotates the longitude axis so it starts at the column closest to
// startLon, rolling data columns with it. Longitudes are renumbered into the
// half-open range [startLon, startLon+360). This centres a basin of interest
// in a global field; it only makes sense on cyclic domains.
func (f *Field) ShiftLon(startLon float64) (*Field, error) {
	if !f.Cyclic {
		return nil, fmt.Errorf("cannot shift longitude on a non-cyclic domain")
	}
	nx := f.NX()

	// Find the column whose longitude, folded into [startLon, startLon+360),
	// is smallest.
	fold := func(lon float64) float64 {
		v := math.Mod(lon-startLon, 360.0)
		if v < 0 {
			v += 360.0
		}
		return v
	}
	pivot := 0
	best := fold(f.Lons[0])
	for x := 1; x < nx; x++ {
		if v := fold(f.Lons[x]); v < best {
			best = v
			pivot = x
		}
	}

	lons := make([]float64, nx)
	for x := 0; x < nx; x++ {
		lons[x] = startLon + fold(f.Lons[(pivot+x)%nx])
	}

	out := &Field{
		Data:   make([]float64, len(f.Data)),
		Times:  f.Times,
		Lats:   f.Lats,
		Lons:   lons,
		Cyclic: true,
	}
	ny := f.NY()
	for t := 0; t < f.NT(); t++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				out.Set(t, y, x, f.At(t, y, (pivot+x)%nx))
			}
		}
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("shifted field invalid: %w", err)
	}
	return out, nil
}

// SliceLat restricts the field to latitudes within [lat1, lat2] inclusive,
// copying the selected rows. The latitude axis may run in either direction.
func (f *Field) SliceLat(lat1, lat2 float64) (*Field, error) {
	if lat1 > lat2 {
		lat1, lat2 = lat2, lat1
	}
	var idx []int
	for y, lat := range f.Lats {
		if lat >= lat1 && lat <= lat2 {
			idx = append(idx, y)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("no latitudes within [%v, %v]", lat1, lat2)
	}

	lats := make([]float64, len(idx))
	for i, y := range idx {
		lats[i] = f.Lats[y]
	}
	out := &Field{
		Data:   make([]float64, f.NT()*len(idx)*f.NX()),
		Times:  f.Times,
		Lats:   lats,
		Lons:   f.Lons,
		Cyclic: f.Cyclic,
	}
	for t := 0; t < f.NT(); t++ {
		for i, y := range idx {
			for x := 0; x < f.NX(); x++ {
				out.Set(t, i, x, f.At(t, y, x))
			}
		}
	}
	return out, nil
}
