package track

import "time"

// FilterOptions is the final track-quality gate.
type FilterOptions struct {
	// MinDuration is the required span between a track's first and last
	// member times.
	MinDuration time.Duration

	// MinNonRelax is the required count of members that passed every soft
	// threshold.
	MinNonRelax int
}

// DefaultFilterOptions returns the reference gate: a day of duration and at
// least one strict member.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		MinDuration: 24 * time.Hour,
		MinNonRelax: 1,
	}
}

// Filter keeps tracks meeting both gates, preserving order.
func Filter(tracks []*Track, opts FilterOptions) []*Track {
	out := make([]*Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Duration() < opts.MinDuration {
			continue
		}
		if t.StrictCount() < opts.MinNonRelax {
			continue
		}
		out = append(out, t)
	}
	return out
}
