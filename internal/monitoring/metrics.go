package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters. Registered on the default registry; a serving
// collaborator can expose them with promhttp.
var (
	// FramesProcessed counts time frames that completed detection.
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vapor",
		Name:      "frames_processed_total",
		Help:      "Time frames that completed object detection.",
	})

	// ObjectsDetected counts objects surviving all detection filters.
	ObjectsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vapor",
		Name:      "objects_detected_total",
		Help:      "Candidate objects that survived detection filters.",
	})

	// ObjectsRejected counts candidates dropped by a filter or a local
	// computation fault, labelled by reason.
	ObjectsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vapor",
		Name:      "objects_rejected_total",
		Help:      "Candidate objects rejected during detection.",
	}, []string{"reason"})

	// TracksOpened counts tracks the tracker has started.
	TracksOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vapor",
		Name:      "tracks_opened_total",
		Help:      "Tracks opened by the tracker.",
	})

	// TracksClosed counts tracks finalized by gap expiry or end of input.
	TracksClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vapor",
		Name:      "tracks_closed_total",
		Help:      "Tracks closed and moved to the finalized list.",
	})
)
