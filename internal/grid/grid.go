// Package grid owns the in-memory representation of gridded transport
// fields: a 3D (time, latitude, longitude) Field with axis metadata, 2D
// per-frame Slabs, axis validation, and spherical cell-area weights.
//
// Collaborators that read data formats hand this package fully populated
// Fields; nothing here touches the filesystem.
package grid

import (
	"fmt"
	"time"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

// Field is a 3D array of real values indexed by (time, latitude, longitude),
// stored row-major as [t][y][x] in a flat slice.
type Field struct {
	Data []float64

	Times []time.Time
	Lats  []float64
	Lons  []float64

	// Cyclic marks the longitude axis as wrapping at 360 degrees.
	Cyclic bool
}

// NewField allocates a zero-filled field over the given axes.
func NewField(times []time.Time, lats, lons []float64, cyclic bool) (*Field, error) {
	f := &Field{
		Data:   make([]float64, len(times)*len(lats)*len(lons)),
		Times:  times,
		Lats:   lats,
		Lons:   lons,
		Cyclic: cyclic,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NT returns the number of time steps.
func (f *Field) NT() int { return len(f.Times) }

// NY returns the number of latitude rows.
func (f *Field) NY() int { return len(f.Lats) }

// NX returns the number of longitude columns.
func (f *Field) NX() int { return len(f.Lons) }

// At returns the value at (t, y, x).
func (f *Field) At(t, y, x int) float64 {
	return f.Data[(t*f.NY()+y)*f.NX()+x]
}

// Set writes the value at (t, y, x).
func (f *Field) Set(t, y, x int, v float64) {
	f.Data[(t*f.NY()+y)*f.NX()+x] = v
}

// Slab returns the 2D frame at time index t. The slab shares the field's
// backing array; it is a view, not a copy.
func (f *Field) Slab(t int) *Slab {
	ny, nx := f.NY(), f.NX()
	return &Slab{
		Data:   f.Data[t*ny*nx : (t+1)*ny*nx],
		Lats:   f.Lats,
		Lons:   f.Lons,
		Cyclic: f.Cyclic,
	}
}

// monotonic reports whether the axis strictly increases or strictly
// decreases.
func monotonic(axis []float64) bool {
	if len(axis) < 2 {
		return true
	}
	up := axis[1] > axis[0]
	for i := 1; i < len(axis); i++ {
		d := axis[i] - axis[i-1]
		if d == 0 || (d > 0) != up {
			return false
		}
	}
	return true
}

// Validate checks the field's shape against its axes and the axes for
// monotonicity. Returns a descriptive error suitable for surfacing before
// any frame is processed.
func (f *Field) Validate() error {
	want := f.NT() * f.NY() * f.NX()
	if len(f.Data) != want {
		return fmt.Errorf("field data length %d does not match axes (%d x %d x %d)",
			len(f.Data), f.NT(), f.NY(), f.NX())
	}
	if f.NY() == 0 || f.NX() == 0 {
		return fmt.Errorf("field has empty spatial axes (%d x %d)", f.NY(), f.NX())
	}
	for i := 1; i < len(f.Times); i++ {
		if !f.Times[i].After(f.Times[i-1]) {
			return fmt.Errorf("time axis not strictly increasing at index %d", i)
		}
	}
	if !monotonic(f.Lats) {
		return fmt.Errorf("latitude axis is not monotonic")
	}
	if !monotonic(f.Lons) {
		return fmt.Errorf("longitude axis is not monotonic")
	}
	return nil
}

// ValidateAligned checks that every field shares the shape and axes of the
// first. It is the fatal pre-flight check the pipeline runs before touching
// any frame.
func ValidateAligned(fields ...*Field) error {
	if len(fields) == 0 {
		return nil
	}
	ref := fields[0]
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("field 0: %w", err)
	}
	for i, f := range fields[1:] {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %d: %w", i+1, err)
		}
		if f.NT() != ref.NT() || f.NY() != ref.NY() || f.NX() != ref.NX() {
			return fmt.Errorf("field %d shape (%d,%d,%d) does not match field 0 (%d,%d,%d)",
				i+1, f.NT(), f.NY(), f.NX(), ref.NT(), ref.NY(), ref.NX())
		}
		for j := range ref.Lats {
			if f.Lats[j] != ref.Lats[j] {
				return fmt.Errorf("field %d latitude axis differs at index %d", i+1, j)
			}
		}
		for j := range ref.Lons {
			if f.Lons[j] != ref.Lons[j] {
				return fmt.Errorf("field %d longitude axis differs at index %d", i+1, j)
			}
		}
		if f.Cyclic != ref.Cyclic {
			return fmt.Errorf("field %d cyclic flag differs from field 0", i+1)
		}
	}
	return nil
}

// Slab is a single (latitude, longitude) frame. Data is row-major [y][x].
type Slab struct {
	Data   []float64
	Lats   []float64
	Lons   []float64
	Cyclic bool
}

// NY returns the number of latitude rows.
func (s *Slab) NY() int { return len(s.Lats) }

// NX returns the number of longitude columns.
func (s *Slab) NX() int { return len(s.Lons) }

// At returns the value at (y, x).
func (s *Slab) At(y, x int) float64 { return s.Data[y*s.NX()+x] }

// Set writes the value at (y, x).
func (s *Slab) Set(y, x int, v float64) { s.Data[y*s.NX()+x] = v }

// axisStep returns the spacing at index i of an axis, using the nearest
// neighbouring interval at the ends.
func axisStep(axis []float64, i int) float64 {
	switch {
	case len(axis) < 2:
		return 0
	case i == 0:
		return axis[1] - axis[0]
	case i == len(axis)-1:
		return axis[i] - axis[i-1]
	default:
		return (axis[i+1] - axis[i-1]) / 2
	}
}

// CellAreas computes the km² area of every grid cell on the given axes.
// The result is row-major [y][x], matching Slab layout.
func CellAreas(lats, lons []float64) []float64 {
	ny, nx := len(lats), len(lons)
	areas := make([]float64, ny*nx)
	for y := 0; y < ny; y++ {
		dlat := axisStep(lats, y)
		for x := 0; x < nx; x++ {
			dlon := axisStep(lons, x)
			areas[y*nx+x] = geometry.CellAreaKm2(lats[y], dlat, dlon)
		}
	}
	return areas
}
