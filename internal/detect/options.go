// Package detect extracts candidate atmospheric-river objects from per-frame
// anomaly fields: thresholding, connected-component labeling with seam
// stitching, optional peak partitioning, geometric attribute computation and
// multi-criteria filtering. Frames are independent; the package offers both a
// pull-based scanner and an order-preserving parallel runner.
package detect

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Threshold is the anomaly binarisation cutoff: either an explicit value or
// a request to derive one from the frame's anomaly distribution. The two
// cases are an explicit tagged choice rather than a nullable value.
type Threshold struct {
	auto  bool
	value float64
}

// FixedThreshold uses the literal cutoff v.
func FixedThreshold(v float64) Threshold { return Threshold{value: v} }

// AutoThreshold derives the cutoff per frame: the 80th percentile of the
// frame's strictly positive anomaly values. The rule is deterministic; a
// frame with no positive anomaly is degenerate and yields no objects.
func AutoThreshold() Threshold { return Threshold{auto: true} }

// Auto reports whether the threshold is frame-derived.
func (t Threshold) Auto() bool { return t.auto }

// autoQuantile is the percentile used by AutoThreshold.
const autoQuantile = 0.8

// Resolve returns the cutoff for a frame given its anomaly values. ok is
// false when the frame is degenerate (auto mode with no positive anomaly).
func (t Threshold) Resolve(ano []float64) (cutoff float64, ok bool) {
	if !t.auto {
		return t.value, true
	}
	pos := make([]float64, 0, len(ano))
	for _, v := range ano {
		if v > 0 {
			pos = append(pos, v)
		}
	}
	if len(pos) == 0 {
		return 0, false
	}
	sort.Float64s(pos)
	return stat.Quantile(autoQuantile, stat.Empirical, pos, nil), true
}

// Options is the immutable detector configuration, passed at construction.
type Options struct {
	Threshold Threshold

	// Hard area bounds in km².
	MinAreaKm2 float64
	MaxAreaKm2 float64

	// Soft and hard circularity bounds (isoperimetric quotient).
	MaxIsoq     float64
	MaxIsoqHard float64

	// Absolute-latitude centroid bounds in degrees.
	MinLat float64
	MaxLat float64

	// Soft and hard axis-length bounds in km.
	MinLengthKm     float64
	MinLengthHardKm float64

	// RDPToleranceDeg is the axis simplification tolerance in degrees.
	RDPToleranceDeg float64

	// FillRadius fills holes in the binary mask up to this radius in grid
	// cells; zero disables filling.
	FillRadius int

	// SingleDome enables peak partitioning; MaxPHRatio tunes it.
	SingleDome bool
	MaxPHRatio float64

	// EdgeEps is the minimum along-axis flux fraction required to form an
	// axis connection.
	EdgeEps float64

	// ZonalCyclic enables longitude-seam stitching in labeling, contours
	// and axis building.
	ZonalCyclic bool
}

// DefaultOptions returns the reference detection parameters.
func DefaultOptions() Options {
	return Options{
		Threshold:       FixedThreshold(1),
		MinAreaKm2:      50 * 1e4,
		MaxAreaKm2:      1800 * 1e4,
		MaxIsoq:         0.6,
		MaxIsoqHard:     0.7,
		MinLat:          20,
		MaxLat:          80,
		MinLengthKm:     2000,
		MinLengthHardKm: 1500,
		RDPToleranceDeg: 2,
		FillRadius:      0,
		SingleDome:      true,
		MaxPHRatio:      0.6,
		EdgeEps:         0.4,
		ZonalCyclic:     true,
	}
}

// Validate rejects inconsistent option combinations before any frame is
// processed.
func (o Options) Validate() error {
	if o.MinAreaKm2 < 0 || o.MaxAreaKm2 <= 0 || o.MinAreaKm2 >= o.MaxAreaKm2 {
		return fmt.Errorf("area bounds invalid: [%v, %v]", o.MinAreaKm2, o.MaxAreaKm2)
	}
	if o.MaxIsoq <= 0 || o.MaxIsoqHard <= 0 || o.MaxIsoq > o.MaxIsoqHard {
		return fmt.Errorf("isoperimetric bounds invalid: soft %v, hard %v", o.MaxIsoq, o.MaxIsoqHard)
	}
	if o.MinLat < 0 || o.MaxLat > 90 || o.MinLat >= o.MaxLat {
		return fmt.Errorf("latitude bounds invalid: [%v, %v]", o.MinLat, o.MaxLat)
	}
	if o.MinLengthHardKm < 0 || o.MinLengthHardKm > o.MinLengthKm {
		return fmt.Errorf("length bounds invalid: soft %v, hard %v", o.MinLengthKm, o.MinLengthHardKm)
	}
	if o.RDPToleranceDeg < 0 {
		return fmt.Errorf("rdp tolerance must be non-negative, got %v", o.RDPToleranceDeg)
	}
	if o.FillRadius < 0 {
		return fmt.Errorf("fill radius must be non-negative, got %v", o.FillRadius)
	}
	if o.SingleDome && (o.MaxPHRatio <= 0 || o.MaxPHRatio > 1) {
		return fmt.Errorf("max prominence/height ratio must be in (0, 1], got %v", o.MaxPHRatio)
	}
	if o.EdgeEps < 0 || o.EdgeEps >= 1 {
		return fmt.Errorf("edge eps must be in [0, 1), got %v", o.EdgeEps)
	}
	return nil
}
