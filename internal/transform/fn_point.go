package transform

import (
	"math"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
)

func newAbsolute() Transform {
	return &StreamingTransform{
		name: "ABSOLUTE",
		prepare: func(_ *QueryContext, args []string) (stepperFactory, error) {
			if err := checkArity("ABSOLUTE", args, 0, 0); err != nil {
				return nil, err
			}
			return func() stepper {
				return stepFunc(func(p series.Point) (series.Point, bool) {
					return series.Point{Timestamp: p.Timestamp, Value: math.Abs(p.Value)}, true
				})
			}, nil
		},
	}
}

// logMapping computes log_base(v). Non-finite results are dropped.
type logMapping struct{}

func (logMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "LOG"
	if err := checkArity(fn, args, 0, 1); err != nil {
		return nil, err
	}
	base := 10.0
	if len(args) == 1 {
		var err error
		if base, err = parseFloat(fn, "base", args[0]); err != nil {
			return nil, err
		}
	}
	if base <= 0 || base == 1 {
		return nil, argError(fn, "base must be positive and not 1, got %v", base)
	}
	lnBase := math.Log(base)
	return pointMapper(func(ts int64, v float64) (int64, float64, bool) {
		r := math.Log(v) / lnBase
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, 0, false
		}
		return ts, r, true
	}), nil
}

// shiftMapping moves every timestamp by a signed offset.
type shiftMapping struct{}

func (shiftMapping) PreservesNulls() bool { return true }

func (shiftMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "SHIFT"
	if err := checkArity(fn, args, 1, 1); err != nil {
		return nil, err
	}
	offset, err := parseOffset(fn, "offset", args[0])
	if err != nil {
		return nil, err
	}
	return pointMapper(func(ts int64, v float64) (int64, float64, bool) {
		return ts + offset, v, true
	}), nil
}

// cullMapping drops points above (or below) a limit. With "percentile" the
// limit is the limit-th percentile of the series itself.
type cullMapping struct {
	name  string
	above bool
}

func (c cullMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	if err := checkArity(c.name, args, 2, 2); err != nil {
		return nil, err
	}
	limit, err := parseFloat(c.name, "limit", args[0])
	if err != nil {
		return nil, err
	}
	kind, err := parseEnum(c.name, "type", args[1], "value", "percentile")
	if err != nil {
		return nil, err
	}
	if kind == "percentile" && (limit <= 0 || limit > 100) {
		return nil, argError(c.name, "percentile must be within (0,100], got %v", limit)
	}

	return func(s *series.Series) (*series.Series, error) {
		threshold := limit
		if kind == "percentile" {
			threshold = analytics.Percentile(s.Datapoints.Values(), limit)
		}
		return pointMapper(func(ts int64, v float64) (int64, float64, bool) {
			if c.above {
				return ts, v, !(v > threshold)
			}
			return ts, v, !(v < threshold)
		})(s)
	}, nil
}

// sliceMapping keeps points within [start, end] given as time expressions.
type sliceMapping struct{}

func (sliceMapping) PreservesNulls() bool { return true }

func (sliceMapping) Prepare(qc *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "SLICE"
	if err := checkArity(fn, args, 2, 2); err != nil {
		return nil, err
	}
	start, err := parseTime(fn, "start", args[0], qc)
	if err != nil {
		return nil, err
	}
	end, err := parseTime(fn, "end", args[1], qc)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, argError(fn, "end %d is before start %d", end, start)
	}
	return func(s *series.Series) (*series.Series, error) {
		return s.WithDatapoints(s.Datapoints.Subset(start, end)), nil
	}, nil
}

// fillCalculateMapping replaces every value with a statistic of the series.
type fillCalculateMapping struct{}

func (fillCalculateMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "FILL_CALCULATE"
	if err := checkArity(fn, args, 1, 1); err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(args[0]))
	var reduce analytics.ReduceFunc
	switch name {
	case "min":
		reduce = analytics.Min
	case "max":
		reduce = analytics.Max
	case "avg":
		reduce = analytics.Avg
	case "dev":
		reduce = analytics.Dev
	default:
		p, ok := analytics.ParsePercentile(name)
		if !ok {
			return nil, argError(fn, "type must be min|max|avg|dev|pNN, got %q", args[0])
		}
		reduce = analytics.PercentileFunc(p)
	}

	return func(s *series.Series) (*series.Series, error) {
		v := reduce(s.Datapoints.Values())
		out := make(series.Datapoints, len(s.Datapoints))
		if !math.IsNaN(v) {
			for ts := range s.Datapoints {
				out[ts] = v
			}
		}
		return s.WithDatapoints(out), nil
	}, nil
}

// normalizeTransform divides each value by a unit, or without a unit by the
// sum of all series at the same timestamp.
type normalizeTransform struct{}

func (normalizeTransform) Name() string { return "NORMALIZE" }

func (normalizeTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	const fn = "NORMALIZE"
	if err := checkArity(fn, args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 1 {
		unit, err := parseFloat(fn, "unit", args[0])
		if err != nil {
			return nil, err
		}
		if unit == 0 {
			return nil, argError(fn, "unit must not be 0")
		}
		return mapAll(in, pointMapper(func(ts int64, v float64) (int64, float64, bool) {
			return ts, v / unit, true
		}), false)
	}

	totals := make(map[int64]float64)
	for _, s := range in {
		for ts, v := range s.Datapoints {
			totals[ts] += orZero(v)
		}
	}
	return mapAll(in, pointMapper(func(ts int64, v float64) (int64, float64, bool) {
		total := totals[ts]
		if total == 0 {
			return 0, 0, false
		}
		return ts, v / total, true
	}), false)
}
