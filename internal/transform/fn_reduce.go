package transform

import (
	"fmt"
	"math"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/downsampling"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// arithmetic is the policy behind SUM, DIFF, SCALE/MULTIPLY and DIVIDE.
type arithmetic struct {
	name      string
	minSeries int
	reduce    ReduceFunc
	apply     func(v, c float64) float64
	// rejectZero makes a zero constant a configuration error.
	rejectZero bool
}

func (a arithmetic) Params() int    { return 0 }
func (a arithmetic) MinSeries() int { return a.minSeries }

func (a arithmetic) PrepareReduce(_ *QueryContext, _ []string) (ValueReducer, error) {
	return a.reduce, nil
}

func (a arithmetic) PrepareMap(_ *QueryContext, _, constants []string) (SeriesMapper, error) {
	cs := make([]float64, len(constants))
	for i, arg := range constants {
		c, err := parseFloat(a.name, "constant", arg)
		if err != nil {
			return nil, err
		}
		if a.rejectZero && c == 0 {
			return nil, argError(a.name, "cannot divide by constant 0")
		}
		cs[i] = c
	}
	return pointMapper(func(ts int64, v float64) (int64, float64, bool) {
		for _, c := range cs {
			v = a.apply(v, c)
		}
		return ts, v, true
	}), nil
}

func sumMissingZero(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += orZero(v)
	}
	return total
}

func diffMissingZero(values []float64) float64 {
	out := orZero(values[0])
	for _, v := range values[1:] {
		out -= orZero(v)
	}
	return out
}

func productSkipMissing(values []float64) float64 {
	vs := present(values)
	if len(vs) == 0 {
		return math.NaN()
	}
	out := 1.0
	for _, v := range vs {
		out *= v
	}
	return out
}

func divideStrict(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		if math.IsNaN(v) || v == 0 {
			return math.NaN()
		}
		out /= v
	}
	return out
}

var (
	sumPolicy = arithmetic{
		name: "SUM", minSeries: 1, reduce: sumMissingZero,
		apply: func(v, c float64) float64 { return v + c },
	}
	diffPolicy = arithmetic{
		name: "DIFF", minSeries: 2, reduce: diffMissingZero,
		apply: func(v, c float64) float64 { return v - c },
	}
	scalePolicy = arithmetic{
		name: "SCALE", minSeries: 1, reduce: productSkipMissing,
		apply: func(v, c float64) float64 { return v * c },
	}
	dividePolicy = arithmetic{
		name: "DIVIDE", minSeries: 2, reduce: divideStrict, rejectZero: true,
		apply: func(v, c float64) float64 { return v / c },
	}
)

// percentilePolicy reduces across series with PERCENTILE(p) and maps each
// series to one percentile per window bucket with PERCENTILE(p, window).
type percentilePolicy struct{}

func (percentilePolicy) Params() int    { return 1 }
func (percentilePolicy) MinSeries() int { return 1 }

func parsePercentileArg(arg string) (float64, error) {
	p, err := parseFloat("PERCENTILE", "percentile", arg)
	if err != nil {
		return 0, err
	}
	if p <= 0 || p > 100 {
		return 0, argError("PERCENTILE", "percentile must be within (0,100], got %v", p)
	}
	return p, nil
}

func (percentilePolicy) PrepareReduce(_ *QueryContext, params []string) (ValueReducer, error) {
	p, err := parsePercentileArg(params[0])
	if err != nil {
		return nil, err
	}
	return ReduceFunc(analytics.PercentileFunc(p)), nil
}

func (percentilePolicy) PrepareMap(qc *QueryContext, params, constants []string) (SeriesMapper, error) {
	if len(constants) != 1 {
		return nil, argError("PERCENTILE", "expects a single window, got %d values", len(constants))
	}
	p, err := parsePercentileArg(params[0])
	if err != nil {
		return nil, err
	}
	spec, err := downsampling.ParseBucketSpec(fmt.Sprintf("%s-p%v", constants[0], p))
	if err != nil {
		return nil, argError("PERCENTILE", "window: %v", err)
	}
	opts := downsampling.BucketOptions{Location: qc.location()}
	return func(s *series.Series) (*series.Series, error) {
		return s.WithDatapoints(downsampling.Downsample(s.Datapoints, spec, opts)), nil
	}, nil
}

func zipSum(o, b float64) float64   { return orZero(o) + orZero(b) }
func zipDiff(o, b float64) float64  { return orZero(o) - orZero(b) }
func zipScale(o, b float64) float64 { return orZero(o) * orDefault(b, 1) }

func zipDivide(o, b float64) float64 {
	b = orDefault(b, 1)
	if b == 0 {
		return math.NaN()
	}
	return orZero(o) / b
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}

func unionFirst(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[0]
}

func unionCount(values []float64) float64 {
	return float64(len(values))
}

func unionSum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
