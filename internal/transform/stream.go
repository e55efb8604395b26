package transform

import (
	"math"

	"github.com/gammazero/deque"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// stepper consumes the points of one series in time order and emits at most
// one point per input point. A fresh stepper is created per series.
type stepper interface {
	Step(p series.Point) (series.Point, bool)
}

type stepperFactory func() stepper

// StreamingTransform is a per-point mapping that runs the same way over
// materialized series and over cursors.
type StreamingTransform struct {
	name      string
	prepare   func(qc *QueryContext, args []string) (stepperFactory, error)
	keepNulls bool
}

// Name implements Transform.
func (t *StreamingTransform) Name() string { return t.name }

// Apply implements Transform.
func (t *StreamingTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	factory, err := t.prepare(qc, args)
	if err != nil {
		return nil, err
	}
	out := make([]*series.Series, 0, len(in))
	for _, s := range in {
		st := factory()
		dps := make(series.Datapoints, len(s.Datapoints))
		for _, p := range s.Datapoints.Points() {
			t.emit(st, p, dps)
		}
		out = append(out, s.WithDatapoints(dps))
	}
	return out, nil
}

// ApplyCursors implements CursorTransform. Points a cursor handed out before
// the call are replayed first; each cursor is then drained and closed. On
// error the cursors not yet drained are closed too.
func (t *StreamingTransform) ApplyCursors(qc *QueryContext, in []series.Cursor, args []string) ([]*series.Series, error) {
	factory, err := t.prepare(qc, args)
	if err != nil {
		closeCursors(in)
		return nil, err
	}
	out := make([]*series.Series, 0, len(in))
	for i, c := range in {
		st := factory()
		dps := make(series.Datapoints)
		for _, p := range c.Consumed() {
			t.emit(st, p, dps)
		}
		for {
			p, ok := c.Next()
			if !ok {
				break
			}
			t.emit(st, p, dps)
		}
		if err := c.Err(); err != nil {
			closeCursors(in[i:])
			return nil, err
		}
		out = append(out, c.Identity().WithDatapoints(dps))
		if err := c.Close(); err != nil {
			closeCursors(in[i+1:])
			return nil, err
		}
	}
	return out, nil
}

func (t *StreamingTransform) emit(st stepper, p series.Point, dps series.Datapoints) {
	if !t.keepNulls && math.IsNaN(p.Value) {
		p.Value = 0
	}
	if r, ok := st.Step(p); ok {
		dps[r.Timestamp] = r.Value
	}
}

type stepFunc func(p series.Point) (series.Point, bool)

func (f stepFunc) Step(p series.Point) (series.Point, bool) { return f(p) }

type derivativeStepper struct {
	interval int64
	prev     series.Point
	started  bool
}

func (d *derivativeStepper) Step(p series.Point) (series.Point, bool) {
	if !d.started {
		d.prev, d.started = p, true
		return series.Point{}, false
	}
	delta := p.Value - d.prev.Value
	if d.interval > 0 {
		delta = delta / float64(p.Timestamp-d.prev.Timestamp) * float64(d.interval)
	}
	d.prev = p
	return series.Point{Timestamp: p.Timestamp, Value: delta}, true
}

type integralStepper struct {
	sum float64
}

func (s *integralStepper) Step(p series.Point) (series.Point, bool) {
	s.sum += p.Value
	return series.Point{Timestamp: p.Timestamp, Value: s.sum}, true
}

// movingStepper aggregates a sliding window. In count mode the window holds
// the last size points and the first size-1 points emit null. In interval
// mode the window holds points in (t-window, t] and warm-up points get the
// aggregate of what is available.
type movingStepper struct {
	size    int   // count mode when > 0
	window  int64 // interval mode when > 0
	reducer string
	points  deque.Deque[series.Point]
	acc     *analytics.Accumulator
	scratch []float64
}

func newMovingStepper(size int, window int64, reducer string) *movingStepper {
	return &movingStepper{
		size:    size,
		window:  window,
		reducer: reducer,
		acc:     analytics.NewAccumulator(),
	}
}

func (m *movingStepper) Step(p series.Point) (series.Point, bool) {
	m.points.PushBack(p)
	m.acc.Add(p.Value)

	if m.size > 0 {
		for m.points.Len() > m.size {
			m.acc.Remove(m.points.PopFront().Value)
		}
		if m.points.Len() < m.size {
			return series.Point{Timestamp: p.Timestamp, Value: math.NaN()}, true
		}
	} else {
		for m.points.Len() > 0 && m.points.Front().Timestamp <= p.Timestamp-m.window {
			m.acc.Remove(m.points.PopFront().Value)
		}
	}

	return series.Point{Timestamp: p.Timestamp, Value: m.aggregate()}, true
}

func (m *movingStepper) aggregate() float64 {
	switch m.reducer {
	case "sum":
		return m.acc.Sum
	case "median":
		m.scratch = m.scratch[:0]
		for i := 0; i < m.points.Len(); i++ {
			m.scratch = append(m.scratch, m.points.At(i).Value)
		}
		return analytics.Median(m.scratch)
	default:
		return m.acc.Avg()
	}
}
