package grid

import (
	"math"
	"testing"
	"time"
)

func hourlyTimes(n int) []time.Time {
	t0 := time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * 6 * time.Hour)
	}
	return out
}

func seqAxis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestNewFieldAndIndexing(t *testing.T) {
	f, err := NewField(hourlyTimes(2), seqAxis(0, 1, 3), seqAxis(0, 1, 4), false)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	f.Set(1, 2, 3, 42.5)
	if got := f.At(1, 2, 3); got != 42.5 {
		t.Fatalf("At(1,2,3) = %v, want 42.5", got)
	}
	slab := f.Slab(1)
	if got := slab.At(2, 3); got != 42.5 {
		t.Fatalf("slab At(2,3) = %v, want 42.5", got)
	}
	// slab is a view
	slab.Set(0, 0, 7)
	if got := f.At(1, 0, 0); got != 7 {
		t.Fatalf("slab write not visible in field: %v", got)
	}
}

func TestValidateRejectsBadAxes(t *testing.T) {
	times := hourlyTimes(2)
	times[1] = times[0] // duplicate time
	if _, err := NewField(times, seqAxis(0, 1, 2), seqAxis(0, 1, 2), false); err == nil {
		t.Fatal("expected error for non-increasing time axis")
	}

	f, _ := NewField(hourlyTimes(2), seqAxis(0, 1, 2), seqAxis(0, 1, 2), false)
	f.Lats = []float64{0, 1, 0.5} // shape mismatch plus non-monotonic
	if err := f.Validate(); err == nil {
		t.Fatal("expected error after corrupting latitude axis")
	}
}

func TestValidateAligned(t *testing.T) {
	a, _ := NewField(hourlyTimes(2), seqAxis(0, 1, 3), seqAxis(0, 1, 4), false)
	b, _ := NewField(hourlyTimes(2), seqAxis(0, 1, 3), seqAxis(0, 1, 4), false)
	if err := ValidateAligned(a, b); err != nil {
		t.Fatalf("aligned fields rejected: %v", err)
	}

	c, _ := NewField(hourlyTimes(2), seqAxis(0, 1, 3), seqAxis(0, 1, 5), false)
	if err := ValidateAligned(a, c); err == nil {
		t.Fatal("expected error for shape mismatch")
	}

	d, _ := NewField(hourlyTimes(2), seqAxis(10, 1, 3), seqAxis(0, 1, 4), false)
	if err := ValidateAligned(a, d); err == nil {
		t.Fatal("expected error for axis value mismatch")
	}
}

func TestCellAreas(t *testing.T) {
	lats := seqAxis(0, 1, 3) // 0, 1, 2
	lons := seqAxis(0, 1, 2)
	areas := CellAreas(lats, lons)
	if len(areas) != 6 {
		t.Fatalf("areas length = %d, want 6", len(areas))
	}
	// area shrinks with latitude
	if !(areas[0] > areas[2*2]) {
		t.Fatalf("expected area at lat 0 (%v) > area at lat 2 (%v)", areas[0], areas[4])
	}
}

func TestShiftLon(t *testing.T) {
	f, _ := NewField(hourlyTimes(1), seqAxis(0, 1, 1), seqAxis(0, 90, 4), true) // lons 0,90,180,270
	for x := 0; x < 4; x++ {
		f.Set(0, 0, x, float64(x))
	}
	shifted, err := f.ShiftLon(180)
	if err != nil {
		t.Fatalf("ShiftLon: %v", err)
	}
	wantLons := []float64{180, 270, 360, 450}
	for i, want := range wantLons {
		if math.Abs(shifted.Lons[i]-want) > 1e-9 {
			t.Fatalf("lon[%d] = %v, want %v", i, shifted.Lons[i], want)
		}
	}
	// data rolled with the axis: value 2 lived at lon 180
	if got := shifted.At(0, 0, 0); got != 2 {
		t.Fatalf("shifted data[0] = %v, want 2", got)
	}
	if got := shifted.At(0, 0, 3); got != 1 {
		t.Fatalf("shifted data[3] = %v, want 1", got)
	}
}

func TestShiftLonNonCyclic(t *testing.T) {
	f, _ := NewField(hourlyTimes(1), seqAxis(0, 1, 1), seqAxis(0, 1, 4), false)
	if _, err := f.ShiftLon(2); err == nil {
		t.Fatal("expected error shifting a non-cyclic domain")
	}
}

func TestSliceLat(t *testing.T) {
	f, _ := NewField(hourlyTimes(1), seqAxis(-30, 10, 7), seqAxis(0, 1, 2), false) // -30..30
	for y := 0; y < 7; y++ {
		f.Set(0, y, 0, float64(y))
	}
	sl, err := f.SliceLat(0, 90)
	if err != nil {
		t.Fatalf("SliceLat: %v", err)
	}
	if len(sl.Lats) != 4 { // 0, 10, 20, 30
		t.Fatalf("sliced lats = %v", sl.Lats)
	}
	if got := sl.At(0, 0, 0); got != 3 {
		t.Fatalf("sliced first row value = %v, want 3", got)
	}

	if _, err := f.SliceLat(100, 110); err == nil {
		t.Fatal("expected error for empty latitude selection")
	}
}
