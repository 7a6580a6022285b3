// Package records defines the structured row emitted for every detected
// object, the CSV codec that round-trips those rows, and time-grouping
// helpers for the tracking stage. Records are immutable once produced by the
// detector; tracking only fills in the track id on its own copies.
package records

import (
	"sort"
	"time"

	"github.com/meridian-data/vapor.report/internal/geometry"
)

// TimeLayout is the timestamp format used in serialized record tables.
const TimeLayout = "2006-01-02 15:04:05"

// Record is one detected object at one time step with all of its computed
// geometric and flux attributes.
type Record struct {
	// ID is unique within the record's frame, starting at 1.
	ID   int
	Time time.Time

	Centroid geometry.Point
	// Contour is the object's outer boundary, an ordered closed polyline.
	Contour []geometry.Point
	// Axis is the simplified skeleton polyline through the object.
	Axis []geometry.Point

	AreaKm2  float64
	LengthKm float64
	// Isoq is the isoperimetric quotient 4*pi*Area/Perimeter².
	Isoq float64
	// MeanAngleDeg is the mean angle between the axis tangent and the local
	// flux vector, in degrees.
	MeanAngleDeg float64
	// CrossFlux is the integrated flux component normal to the axis.
	CrossFlux float64

	// Relaxed marks objects that passed the hard thresholds but failed a
	// soft one.
	Relaxed bool

	// TrackID is empty until tracking assigns the record to a track.
	TrackID string
}

// Strict reports whether the record passed every soft threshold.
func (r Record) Strict() bool { return !r.Relaxed }

// Frame is the complete record set of one time step, ordered by ID.
type Frame struct {
	Time    time.Time
	Records []Record
}

// GroupByTime buckets records into time-ordered frames. Records within a
// frame keep ascending ID order. The input slice is not modified.
func GroupByTime(recs []Record) []Frame {
	byTime := make(map[time.Time][]Record)
	for _, r := range recs {
		byTime[r.Time] = append(byTime[r.Time], r)
	}
	times := make([]time.Time, 0, len(byTime))
	for tt := range byTime {
		times = append(times, tt)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	frames := make([]Frame, 0, len(times))
	for _, tt := range times {
		rs := byTime[tt]
		sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
		frames = append(frames, Frame{Time: tt, Records: rs})
	}
	return frames
}
