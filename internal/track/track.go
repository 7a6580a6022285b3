// Package track links per-frame object records into tracks across time and
// applies the final track-quality gate. The tracker is sequential: every
// step's matching decisions depend on the open-track state left by the
// previous step, so it consumes the detector's chronological stream one
// frame at a time.
package track

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-data/vapor.report/internal/monitoring"
	"github.com/meridian-data/vapor.report/internal/records"
)

// Scheme selects the per-step matching algorithm.
type Scheme string

const (
	// SchemeSimple matches greedily, one object at a time in id order.
	SchemeSimple Scheme = "simple"
	// SchemeComplex solves a global minimum-cost assignment per step.
	SchemeComplex Scheme = "complex"
)

// ParseScheme maps a configuration string to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeSimple, SchemeComplex:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("unknown track scheme %q", s)
}

// Options is the immutable tracker configuration.
type Options struct {
	Scheme Scheme

	// TimeGapAllow is the number of consecutive memberless steps an open
	// track survives. The track closes when its miss counter exceeds this.
	TimeGapAllow int

	// NumAnchors is how many points are sampled along an object's axis
	// for distance matching.
	NumAnchors int

	// MaxDistKm is the anchor-distance cutoff for a match.
	MaxDistKm float64
}

// DefaultOptions returns the reference tracking parameters.
func DefaultOptions() Options {
	return Options{
		Scheme:       SchemeSimple,
		TimeGapAllow: 6,
		NumAnchors:   7,
		MaxDistKm:    1200,
	}
}

func (o Options) Validate() error {
	if o.Scheme != SchemeSimple && o.Scheme != SchemeComplex {
		return fmt.Errorf("unknown track scheme %q", o.Scheme)
	}
	if o.TimeGapAllow < 0 {
		return fmt.Errorf("time gap allowance must be non-negative, got %d", o.TimeGapAllow)
	}
	if o.NumAnchors < 2 {
		return fmt.Errorf("need at least 2 anchors, got %d", o.NumAnchors)
	}
	if o.MaxDistKm <= 0 {
		return fmt.Errorf("matching distance cutoff must be positive, got %v", o.MaxDistKm)
	}
	return nil
}

// Track is one object followed through time. Once finalized it is immutable.
type Track struct {
	ID      string
	Records []records.Record

	misses int
	order  int
}

// Duration is the span between the first and last member times.
func (t *Track) Duration() time.Duration {
	if len(t.Records) == 0 {
		return 0
	}
	return t.Records[len(t.Records)-1].Time.Sub(t.Records[0].Time)
}

// StrictCount is the number of members that passed every soft threshold.
func (t *Track) StrictCount() int {
	n := 0
	for _, r := range t.Records {
		if r.Strict() {
			n++
		}
	}
	return n
}

func (t *Track) latest() *records.Record {
	return &t.Records[len(t.Records)-1]
}

// Tracker carries the open-track state between steps.
type Tracker struct {
	opts    Options
	open    []*Track
	done    []*Track
	created int
}

func NewTracker(opts Options) (*Tracker, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("tracker options: %w", err)
	}
	return &Tracker{opts: opts}, nil
}

// Step consumes one frame's records. It must be called once per time step,
// including steps with zero detections, which only advance miss counters.
// The records' TrackID fields are filled in as a side effect.
func (tk *Tracker) Step(when time.Time, recs []records.Record) {
	assigned := tk.match(recs)

	matched := make([]bool, len(tk.open))
	for j, ti := range assigned {
		if ti < 0 {
			continue
		}
		t := tk.open[ti]
		recs[j].TrackID = t.ID
		t.Records = append(t.Records, recs[j])
		t.misses = 0
		matched[ti] = true
	}

	// age the rest, closing tracks past the gap allowance
	keep := tk.open[:0]
	for i, t := range tk.open {
		if matched[i] {
			keep = append(keep, t)
			continue
		}
		t.misses++
		if t.misses > tk.opts.TimeGapAllow {
			tk.done = append(tk.done, t)
			monitoring.TracksClosed.Inc()
			monitoring.Logf("track: closed %s with %d members after %d empty steps",
				t.ID, len(t.Records), t.misses)
			continue
		}
		keep = append(keep, t)
	}
	tk.open = keep

	for j := range recs {
		if assigned[j] >= 0 {
			continue
		}
		t := &Track{ID: uuid.NewString(), order: tk.created}
		tk.created++
		recs[j].TrackID = t.ID
		t.Records = append(t.Records, recs[j])
		tk.open = append(tk.open, t)
		monitoring.TracksOpened.Inc()
	}
}

// Finish closes every remaining open track and returns all finalized tracks
// in creation order. The tracker must not be stepped afterwards.
func (tk *Tracker) Finish() []*Track {
	for _, t := range tk.open {
		tk.done = append(tk.done, t)
		monitoring.TracksClosed.Inc()
	}
	tk.open = nil

	out := tk.done
	// creation order, not closing order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].order > out[j].order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// match returns, for each record, the index into tk.open of its matched
// track, or -1.
func (tk *Tracker) match(recs []records.Record) []int {
	assigned := make([]int, len(recs))
	for i := range assigned {
		assigned[i] = -1
	}
	if len(recs) == 0 || len(tk.open) == 0 {
		return assigned
	}

	dist := tk.distances(recs)
	switch tk.opts.Scheme {
	case SchemeComplex:
		tk.matchComplex(dist, assigned)
	default:
		tk.matchSimple(dist, assigned)
	}
	return assigned
}

// distances computes the anchor-distance matrix, tracks by objects.
func (tk *Tracker) distances(recs []records.Record) [][]float64 {
	trackAnchors := make([][]anchor, len(tk.open))
	for i, t := range tk.open {
		trackAnchors[i] = sampleAnchors(t.latest(), tk.opts.NumAnchors)
	}
	dist := make([][]float64, len(tk.open))
	for i := range dist {
		dist[i] = make([]float64, len(recs))
		for j := range recs {
			objAnchors := sampleAnchors(&recs[j], tk.opts.NumAnchors)
			dist[i][j] = anchorDistanceKm(trackAnchors[i], objAnchors)
		}
	}
	return dist
}
