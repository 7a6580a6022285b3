package detect

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/meridian-data/vapor.report/internal/geometry"
	"github.com/meridian-data/vapor.report/internal/grid"
	"github.com/meridian-data/vapor.report/internal/monitoring"
	"github.com/meridian-data/vapor.report/internal/records"
	"github.com/meridian-data/vapor.report/internal/thr"
)

// Detector extracts candidate objects from anomaly frames. It is immutable
// after construction and safe for concurrent use across frames.
type Detector struct {
	opts   Options
	lats   []float64
	lons   []float64
	areas  []float64
	cyclic bool
}

// NewDetector builds a detector over the given spatial axes.
func NewDetector(opts Options, lats, lons []float64) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("detector options: %w", err)
	}
	if len(lats) == 0 || len(lons) == 0 {
		return nil, fmt.Errorf("empty spatial axes")
	}
	return &Detector{
		opts:   opts,
		lats:   lats,
		lons:   lons,
		areas:  grid.CellAreas(lats, lons),
		cyclic: opts.ZonalCyclic,
	}, nil
}

// FrameResult is everything detection produces for one time step: the label
// raster (surviving objects painted with their frame-scoped ids), the angle
// and cross-flux rasters (NaN off-axis), and the record rows.
type FrameResult struct {
	Index int
	Time  time.Time

	Labels      []int
	Angles      []float64
	CrossFluxes []float64

	Records []records.Record
}

// DetectFrame runs the full per-frame pipeline on one anomaly slab with its
// flux components. Frames are independent; this method may be called
// concurrently for different frames.
func (d *Detector) DetectFrame(when time.Time, ano, u, v *grid.Slab) *FrameResult {
	ny, nx := len(d.lats), len(d.lons)
	res := &FrameResult{
		Time:        when,
		Labels:      make([]int, ny*nx),
		Angles:      make([]float64, ny*nx),
		CrossFluxes: make([]float64, ny*nx),
	}
	for i := range res.Angles {
		res.Angles[i] = math.NaN()
		res.CrossFluxes[i] = math.NaN()
	}

	cutoff, ok := d.opts.Threshold.Resolve(ano.Data)
	if !ok {
		// degenerate frame: nothing above threshold, zero objects
		monitoring.FramesProcessed.Inc()
		return res
	}

	mask := binarize(ano.Data, cutoff)
	mask = fillHoles(mask, ny, nx, d.opts.FillRadius, d.cyclic)
	labels, n := labelComponents(mask, ny, nx, d.cyclic)

	nextID := 0
	for l := 1; l <= n; l++ {
		cells := componentCells(labels, l)

		parts := [][]int{cells}
		if d.opts.SingleDome {
			parts = partitionComponent(ano.Data, cells, ny, nx, d.cyclic, d.opts.MaxPHRatio)
		}

		for _, part := range parts {
			attrs, err := d.computeAttributes(part, ano.Data, u.Data, v.Data)
			if err != nil {
				monitoring.ObjectsRejected.WithLabelValues("fault").Inc()
				monitoring.Logf("detect: %s: dropping candidate: %v", when.Format(records.TimeLayout), err)
				continue
			}
			v2, reason := d.opts.classify(attrs)
			if v2 == verdictReject {
				monitoring.ObjectsRejected.WithLabelValues(reason).Inc()
				continue
			}

			nextID++
			d.paint(res, nextID, attrs, u.Data, v.Data)
			res.Records = append(res.Records, records.Record{
				ID:           nextID,
				Time:         when,
				Centroid:     attrs.centroid,
				Contour:      attrs.contour,
				Axis:         attrs.axis,
				AreaKm2:      attrs.areaKm2,
				LengthKm:     attrs.lengthKm,
				Isoq:         attrs.isoq,
				MeanAngleDeg: attrs.meanAngle,
				CrossFlux:    attrs.crossFlux,
				Relaxed:      v2 == verdictRelaxed,
			})
			monitoring.ObjectsDetected.Inc()
		}
	}

	monitoring.FramesProcessed.Inc()
	return res
}

// paint fills the output rasters for one surviving object: its id over the
// whole footprint, per-cell angle and cross-flux along the axis path.
func (d *Detector) paint(res *FrameResult, id int, a *attributes, u, v []float64) {
	for _, c := range a.cells {
		res.Labels[c] = id
	}
	for i := 0; i+1 < len(a.axisCells); i++ {
		c, n := a.axisCells[i], a.axisCells[i+1]
		angle, cross := d.segmentFlux(c, n, u, v)
		res.Angles[c] = angle
		res.CrossFluxes[c] = cross
		res.Angles[n] = angle
		res.CrossFluxes[n] = cross
	}
}

// segmentFlux gives the tangent-to-flux angle and the normal flux magnitude
// for a single axis step, for raster painting.
func (d *Detector) segmentFlux(c, n int, u, v []float64) (angleDeg, cross float64) {
	nx := len(d.lons)
	y, x := c/nx, c%nx
	yy, xx := n/nx, n%nx

	dlat := d.lats[yy] - d.lats[y]
	dlon := geometry.WrapLonDiff(d.lons[x], d.lons[xx])
	te, tn := geometry.LocalTangentKm((d.lats[y]+d.lats[yy])/2, dlat, dlon)
	segKm := math.Hypot(te, tn)
	if segKm == 0 {
		return math.NaN(), math.NaN()
	}
	fe := (u[c] + u[n]) / 2
	fn := (v[c] + v[n]) / 2
	fluxMag := math.Hypot(fe, fn)
	if fluxMag == 0 {
		return math.NaN(), math.NaN()
	}
	cosA := (fe*te + fn*tn) / (fluxMag * segKm)
	if cosA > 1 {
		cosA = 1
	} else if cosA < -1 {
		cosA = -1
	}
	return geometry.RadToDeg(math.Acos(cosA)), math.Abs(fe*tn-fn*te) / segKm
}

// Scanner is the pull-based frame sequence: it yields one frame's complete
// result before computing the next, so a consumer can stream a multi-decade
// run without holding more than one frame of output.
type Scanner struct {
	det  *Detector
	res  *thr.Result
	u    *grid.Field
	vfl  *grid.Field
	next int
	cur  *FrameResult
}

// Scanner validates field alignment up front (a fatal configuration error)
// and returns an iterator over the frames.
func (d *Detector) Scanner(res *thr.Result, u, vfl *grid.Field) (*Scanner, error) {
	if err := grid.ValidateAligned(res.Input, res.Background, res.Anomaly, u, vfl); err != nil {
		return nil, fmt.Errorf("detection inputs: %w", err)
	}
	return &Scanner{det: d, res: res, u: u, vfl: vfl}, nil
}

// Scan computes the next frame, returning false after the last one.
func (s *Scanner) Scan() bool {
	if s.next >= s.res.Anomaly.NT() {
		s.cur = nil
		return false
	}
	t := s.next
	s.cur = s.det.DetectFrame(s.res.Anomaly.Times[t],
		s.res.Anomaly.Slab(t), s.u.Slab(t), s.vfl.Slab(t))
	s.cur.Index = t
	s.next++
	return true
}

// Frame returns the most recently scanned frame result.
func (s *Scanner) Frame() *FrameResult { return s.cur }

// Stream runs detection across frames on the given number of workers and
// delivers results strictly in time order. Frames carry no data dependency
// on each other; ordering is restored with a reorder buffer so the tracker
// downstream sees a plain chronological sequence.
func (d *Detector) Stream(res *thr.Result, u, vfl *grid.Field, workers int) (<-chan *FrameResult, error) {
	if err := grid.ValidateAligned(res.Input, res.Background, res.Anomaly, u, vfl); err != nil {
		return nil, fmt.Errorf("detection inputs: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	nt := res.Anomaly.NT()

	jobs := make(chan int)
	done := make(chan *FrameResult, workers)
	out := make(chan *FrameResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				fr := d.DetectFrame(res.Anomaly.Times[t],
					res.Anomaly.Slab(t), u.Slab(t), vfl.Slab(t))
				fr.Index = t
				done <- fr
			}
		}()
	}
	go func() {
		for t := 0; t < nt; t++ {
			jobs <- t
		}
		close(jobs)
		wg.Wait()
		close(done)
	}()
	go func() {
		defer close(out)
		pending := make(map[int]*FrameResult)
		emit := 0
		for fr := range done {
			pending[fr.Index] = fr
			for {
				next, ok := pending[emit]
				if !ok {
					break
				}
				delete(pending, emit)
				out <- next
				emit++
			}
		}
	}()
	return out, nil
}
