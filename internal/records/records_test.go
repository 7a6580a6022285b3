package records

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

func sampleRecords() []Record {
	t0 := time.Date(2007, 1, 5, 6, 0, 0, 0, time.UTC)
	return []Record{
		{
			ID: 1, Time: t0,
			Centroid: geometry.Point{Lat: 34.217, Lon: 211.05},
			Contour: []geometry.Point{
				{Lat: 30, Lon: 205}, {Lat: 38, Lon: 208.5}, {Lat: 36.5, Lon: 217}, {Lat: 30, Lon: 205},
			},
			Axis:         []geometry.Point{{Lat: 31, Lon: 206}, {Lat: 37, Lon: 216}},
			AreaKm2:      612345.875,
			LengthKm:     2301.5625,
			Isoq:         0.31,
			MeanAngleDeg: 18.25,
			CrossFlux:    412.0625,
			Relaxed:      false,
		},
		{
			ID: 2, Time: t0,
			Centroid: geometry.Point{Lat: -45.5, Lon: 3.125},
			AreaKm2:  550000,
			LengthKm: 1700,
			Isoq:     0.65,
			Relaxed:  true,
			TrackID:  "9",
		},
		{
			ID: 1, Time: t0.Add(6 * time.Hour),
			Centroid: geometry.Point{Lat: 35, Lon: 213},
			AreaKm2:  640000,
			LengthKm: 2400,
			Isoq:     0.29,
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	recs := sampleRecords()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	// append in two batches to prove the header is written once
	if err := w.Append(recs[:2]...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(recs[2:]...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if n := strings.Count(buf.String(), "id,time"); n != 1 {
		t.Fatalf("header written %d times, want 1", n)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	if _, err := Read(strings.NewReader("foo,bar\n1,2\n")); err == nil {
		t.Fatal("expected error for unknown header")
	}

	// right width, wrong column names
	impostor := strings.Join(Header[:len(Header)-1], ",") + ",extra\n"
	if _, err := Read(strings.NewReader(impostor)); err == nil {
		t.Fatal("expected error for renamed column")
	}
}

func TestReadEmpty(t *testing.T) {
	got, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestGroupByTime(t *testing.T) {
	recs := sampleRecords()
	// shuffle order on purpose
	shuffled := []Record{recs[2], recs[1], recs[0]}

	frames := GroupByTime(shuffled)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if !frames[0].Time.Before(frames[1].Time) {
		t.Fatal("frames not in time order")
	}
	if len(frames[0].Records) != 2 || frames[0].Records[0].ID != 1 || frames[0].Records[1].ID != 2 {
		t.Fatalf("first frame not ordered by id: %+v", frames[0].Records)
	}
}

func TestStrictFlag(t *testing.T) {
	r := Record{Relaxed: true}
	if r.Strict() {
		t.Fatal("relaxed record reported strict")
	}
}
