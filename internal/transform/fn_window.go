package transform

import (
	"math"
	"math/rand"

	"github.com/soltixdb/soltix-transform/internal/downsampling"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

func newMoving() Transform {
	const fn = "MOVING"
	return &StreamingTransform{
		name: fn,
		prepare: func(_ *QueryContext, args []string) (stepperFactory, error) {
			if err := checkArity(fn, args, 1, 2); err != nil {
				return nil, err
			}
			reducer, err := parseEnum(fn, "type", optionalArg(args, 1, "avg"), "avg", "median", "sum")
			if err != nil {
				return nil, err
			}
			if n, ok := utils.ParseIntArg(args[0]); ok {
				if n <= 0 {
					return nil, argError(fn, "window must be positive, got %d", n)
				}
				return func() stepper { return newMovingStepper(n, 0, reducer) }, nil
			}
			window, err := parseWindow(fn, "window", args[0])
			if err != nil {
				return nil, err
			}
			return func() stepper { return newMovingStepper(0, window, reducer) }, nil
		},
	}
}

func newDerivative() Transform {
	const fn = "DERIVATIVE"
	return &StreamingTransform{
		name: fn,
		prepare: func(_ *QueryContext, args []string) (stepperFactory, error) {
			if err := checkArity(fn, args, 0, 1); err != nil {
				return nil, err
			}
			var interval int64
			if len(args) == 1 {
				var err error
				if interval, err = parseWindow(fn, "interval", args[0]); err != nil {
					return nil, err
				}
			}
			return func() stepper { return &derivativeStepper{interval: interval} }, nil
		},
	}
}

func newIntegral() Transform {
	const fn = "INTEGRAL"
	return &StreamingTransform{
		name: fn,
		prepare: func(_ *QueryContext, args []string) (stepperFactory, error) {
			if err := checkArity(fn, args, 0, 0); err != nil {
				return nil, err
			}
			return func() stepper { return &integralStepper{} }, nil
		},
	}
}

// downsampleMapping buckets each series by a "<n><unit>-<reducer>" spec.
type downsampleMapping struct{}

func (downsampleMapping) PreservesNulls() bool { return true }

func (downsampleMapping) Prepare(qc *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "DOWNSAMPLE"
	if err := checkArity(fn, args, 1, 2); err != nil {
		return nil, err
	}
	spec, err := downsampling.ParseBucketSpec(args[0])
	if err != nil {
		return nil, argError(fn, "%v", err)
	}
	opts := downsampling.BucketOptions{Location: qc.location(), Anchor: qc.Start}
	if len(args) == 2 {
		if _, err := parseEnum(fn, "alignment", args[1], "abs"); err != nil {
			return nil, err
		}
		opts.Absolute = true
	}
	return func(s *series.Series) (*series.Series, error) {
		return s.WithDatapoints(downsampling.Downsample(s.Datapoints, spec, opts)), nil
	}, nil
}

// nonNullPoints returns the non-null points in time order.
func nonNullPoints(dps series.Datapoints) []series.Point {
	all := dps.Points()
	out := all[:0]
	for _, p := range all {
		if !math.IsNaN(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

func lerp(a, b series.Point, ts int64) float64 {
	if b.Timestamp == a.Timestamp {
		return a.Value
	}
	return a.Value + (b.Value-a.Value)*float64(ts-a.Timestamp)/float64(b.Timestamp-a.Timestamp)
}

// rateMapping computes delta/dt*interval between consecutive points.
type rateMapping struct{}

func (rateMapping) PreservesNulls() bool { return true }

func (rateMapping) Prepare(qc *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "RATE"
	if err := checkArity(fn, args, 1, 3); err != nil {
		return nil, err
	}
	interval, err := parseWindow(fn, "interval", args[0])
	if err != nil {
		return nil, err
	}
	skipNegative, err := parseBool(fn, "skipNegative", optionalArg(args, 1, "false"))
	if err != nil {
		return nil, err
	}
	interpolate, err := parseBool(fn, "interpolate", optionalArg(args, 2, "false"))
	if err != nil {
		return nil, err
	}

	return func(s *series.Series) (*series.Series, error) {
		points := nonNullPoints(s.Datapoints)
		if interpolate && len(points) >= 2 {
			points = extrapolateBounds(points, qc.Start, qc.End)
			if err := qc.checkSize(fn, gridSize(points, interval)); err != nil {
				return nil, err
			}
			points = fillGrid(points, interval)
		}

		out := make(series.Datapoints, len(points))
		for i := 1; i < len(points); i++ {
			a, b := points[i-1], points[i]
			rate := (b.Value - a.Value) / float64(b.Timestamp-a.Timestamp) * float64(interval)
			if skipNegative && rate < 0 {
				continue
			}
			out[b.Timestamp] = rate
		}
		return s.WithDatapoints(out), nil
	}, nil
}

// extrapolateBounds adds points at start and end, outside the sampled range,
// projected from the nearest two samples.
func extrapolateBounds(points []series.Point, start, end int64) []series.Point {
	if end <= start {
		return points
	}
	n := len(points)
	out := make([]series.Point, 0, n+2)
	if start < points[0].Timestamp {
		out = append(out, series.Point{Timestamp: start, Value: lerp(points[0], points[1], start)})
	}
	out = append(out, points...)
	if end > points[n-1].Timestamp {
		out = append(out, series.Point{Timestamp: end, Value: lerp(points[n-2], points[n-1], end)})
	}
	return out
}

// gridSize counts the points fillGrid would return.
func gridSize(points []series.Point, interval int64) int64 {
	n := int64(len(points))
	for i := 1; i < len(points); i++ {
		if gap := points[i].Timestamp - points[i-1].Timestamp; gap > interval {
			n += (gap - 1) / interval
		}
	}
	return n
}

// fillGrid inserts linearly interpolated points every interval inside gaps
// longer than one interval.
func fillGrid(points []series.Point, interval int64) []series.Point {
	out := make([]series.Point, 0, len(points))
	for i, p := range points {
		if i > 0 {
			prev := points[i-1]
			for ts := prev.Timestamp + interval; ts < p.Timestamp; ts += interval {
				out = append(out, series.Point{Timestamp: ts, Value: lerp(prev, p, ts)})
			}
		}
		out = append(out, p)
	}
	return out
}

// propagateMapping forward-fills nulls and empty grid slots between the
// first and last point.
type propagateMapping struct{}

func (propagateMapping) PreservesNulls() bool { return true }

func (propagateMapping) Prepare(qc *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "PROPAGATE"
	if err := checkArity(fn, args, 1, 1); err != nil {
		return nil, err
	}
	interval, err := parseWindow(fn, "interval", args[0])
	if err != nil {
		return nil, err
	}
	return func(s *series.Series) (*series.Series, error) {
		points := s.Datapoints.Points()
		if len(points) == 0 {
			return s.WithDatapoints(nil), nil
		}
		first, last := points[0].Timestamp, points[len(points)-1].Timestamp
		if err := qc.checkSize(fn, (last-first)/interval+1+int64(len(points))); err != nil {
			return nil, err
		}

		out := make(series.Datapoints, len(points))
		known := math.NaN()
		i := 0
		take := func(bound int64) {
			for ; i < len(points) && points[i].Timestamp <= bound; i++ {
				if v := points[i].Value; !math.IsNaN(v) {
					known = v
				}
				out[points[i].Timestamp] = known
			}
		}
		for ts := first; ts <= last; ts += interval {
			take(ts)
			if _, ok := out[ts]; !ok {
				out[ts] = known
			}
		}
		take(last)
		for ts, v := range out {
			if math.IsNaN(v) {
				delete(out, ts)
			}
		}
		return s.WithDatapoints(out), nil
	}, nil
}

// fillTransform inserts a constant on an interval grid inside gaps, or
// builds a flat line when called without series.
type fillTransform struct{}

func (fillTransform) Name() string { return "FILL" }

func (fillTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	const fn = "FILL"
	if len(in) == 0 && len(args) == 5 {
		return fillLine(qc, args)
	}
	if err := checkArity(fn, args, 3, 3); err != nil {
		return nil, err
	}
	interval, err := parseWindow(fn, "interval", args[0])
	if err != nil {
		return nil, err
	}
	offset, err := parseOffset(fn, "offset", args[1])
	if err != nil {
		return nil, err
	}
	value, err := parseFloat(fn, "value", args[2])
	if err != nil {
		return nil, err
	}

	out := make([]*series.Series, 0, len(in))
	for _, s := range in {
		points := s.Datapoints.Points()
		dps := s.Datapoints.Clone()
		for i := 1; i < len(points); i++ {
			a, b := points[i-1].Timestamp, points[i].Timestamp
			if b-a <= interval {
				continue
			}
			// first grid point strictly after a
			ts := a + interval - utils.FloorMod(a-offset, interval)
			for ; ts < b; ts += interval {
				dps[ts] = value
			}
			if err := qc.checkSize(fn, int64(len(dps))); err != nil {
				return nil, err
			}
		}
		out = append(out, s.WithDatapoints(dps))
	}
	return out, nil
}

func fillLine(qc *QueryContext, args []string) ([]*series.Series, error) {
	const fn = "FILL"
	start, err := parseTime(fn, "start", args[0], qc)
	if err != nil {
		return nil, err
	}
	end, err := parseTime(fn, "end", args[1], qc)
	if err != nil {
		return nil, err
	}
	interval, err := parseWindow(fn, "interval", args[2])
	if err != nil {
		return nil, err
	}
	offset, err := parseOffset(fn, "offset", args[3])
	if err != nil {
		return nil, err
	}
	value, err := parseFloat(fn, "value", args[4])
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, argError(fn, "end %d is before start %d", end, start)
	}

	first := start + offset
	var n int64
	if end >= first {
		n = (end-first)/interval + 1
	}
	if err := qc.checkSize(fn, n); err != nil {
		return nil, err
	}
	dps := make(series.Datapoints, n)
	for ts := first; ts <= end; ts += interval {
		dps[ts] = value
	}
	return []*series.Series{series.New(series.DefaultName, series.DefaultName, dps)}, nil
}

// reduceDatapointsMapping caps each series at a maximum point count.
type reduceDatapointsMapping struct{}

func (reduceDatapointsMapping) PreservesNulls() bool { return true }

func (reduceDatapointsMapping) Prepare(qc *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "REDUCE_DATAPOINTS"
	if err := checkArity(fn, args, 2, 3); err != nil {
		return nil, err
	}
	limit, err := parseCount(fn, "max", args[0])
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return nil, argError(fn, "max must be positive")
	}
	strategy, err := downsampling.ParseStrategy(args[1])
	if err != nil {
		return nil, argError(fn, "%v", err)
	}
	var minInterval int64
	if len(args) == 3 {
		if minInterval, err = parseWindow(fn, "minInterval", args[2]); err != nil {
			return nil, err
		}
	}
	rng := rand.New(rand.NewSource(qc.RandomSeed))
	return func(s *series.Series) (*series.Series, error) {
		dps, err := downsampling.ReduceDatapoints(s.Datapoints, downsampling.ReduceOptions{
			Max:         limit,
			Strategy:    strategy,
			MinInterval: minInterval,
			Rand:        rng,
		})
		if err != nil {
			return nil, err
		}
		return s.WithDatapoints(dps), nil
	}, nil
}
