package transform

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func one(s *series.Series) []*series.Series { return []*series.Series{s} }

func TestAlias(t *testing.T) {
	s := testSeries("cpu.user", series.Datapoints{1: math.NaN()})

	out := evaluate(t, "ALIAS", one(s), "load", "literal", "hosts")
	assert.Equal(t, "load", out[0].Name)
	assert.Equal(t, "hosts", out[0].Scope)
	assert.True(t, math.IsNaN(out[0].Datapoints[1]))

	out = evaluate(t, "ALIAS", one(s), `cpu\.(.*)/$1`, "regex")
	assert.Equal(t, "user", out[0].Name)
	assert.Equal(t, "test", out[0].Scope)
	assert.Equal(t, "cpu.user", s.Name)
}

func TestAliasByTag(t *testing.T) {
	s := testSeries("cpu", nil)
	s.SetTag("host", "web-1")
	s.SetTag("dc", "east")

	assert.Equal(t, "web-1", evaluate(t, "ALIASBYTAG", one(s), "host")[0].DisplayName)
	assert.Equal(t, "east,web-1", evaluate(t, "ALIASBYTAG", one(s))[0].DisplayName)
}

func TestJoinAndLimit(t *testing.T) {
	a := testSeries("a", nil)
	b := testSeries("b", nil)
	assert.Equal(t, []string{"a", "b"}, names(evaluate(t, "JOIN", []*series.Series{a, b})))
	assert.Equal(t, []string{"a"}, names(evaluate(t, "LIMIT", []*series.Series{a, b}, "1")))
	assert.Len(t, evaluate(t, "LIMIT", []*series.Series{a, b}, "5"), 2)
}

func TestAbsoluteLogShift(t *testing.T) {
	s := testSeries("a", series.Datapoints{1000: -100, 2000: 0})

	assert.Equal(t, series.Datapoints{1000: 100, 2000: 0}, evaluate(t, "ABSOLUTE", one(s))[0].Datapoints)
	assert.Equal(t, series.Datapoints{}, evaluate(t, "LOG", one(s))[0].Datapoints)
	assert.Equal(t, series.Datapoints{0: -100, 1000: 0}, evaluate(t, "SHIFT", one(s), "-1s")[0].Datapoints)

	pos := testSeries("a", series.Datapoints{1: 8, 2: 0})
	logs := evaluate(t, "LOG", one(pos), "2")[0].Datapoints
	require.Len(t, logs, 1)
	assert.InDelta(t, 3, logs[1], 1e-12)
}

func TestCull(t *testing.T) {
	s := testSeries("a", series.Datapoints{1: 1, 2: 5, 3: 10})

	assert.Equal(t, series.Datapoints{1: 1, 2: 5}, evaluate(t, "CULL_ABOVE", one(s), "5", "value")[0].Datapoints)
	assert.Equal(t, series.Datapoints{2: 5, 3: 10}, evaluate(t, "CULL_BELOW", one(s), "5", "value")[0].Datapoints)
	// p50 of {1,5,10} is 5
	assert.Equal(t, series.Datapoints{1: 1, 2: 5}, evaluate(t, "CULL_ABOVE", one(s), "50", "percentile")[0].Datapoints)
}

func TestSlice(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 1000: 2, 2000: 3, 99000: 4})

	out := evaluate(t, "SLICE", one(s), "start+1s", "end-2s")

	assert.Equal(t, series.Datapoints{1000: 2, 2000: 3}, out[0].Datapoints)

	err := evaluateErr("SLICE", one(s), "end", "start")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestFillCalculate(t *testing.T) {
	s := testSeries("a", series.Datapoints{1: 1, 2: 3, 3: 8})
	assert.Equal(t, series.Datapoints{1: 8, 2: 8, 3: 8}, evaluate(t, "FILL_CALCULATE", one(s), "max")[0].Datapoints)
	assert.Equal(t, series.Datapoints{1: 4, 2: 4, 3: 4}, evaluate(t, "FILL_CALCULATE", one(s), "avg")[0].Datapoints)
	assert.Equal(t, series.Datapoints{1: 3, 2: 3, 3: 3}, evaluate(t, "FILL_CALCULATE", one(s), "p50")[0].Datapoints)
}

func TestNormalize(t *testing.T) {
	in := []*series.Series{
		testSeries("a", series.Datapoints{1: 1, 2: 0}),
		testSeries("b", series.Datapoints{1: 3, 2: 0}),
	}

	out := evaluate(t, "NORMALIZE", in)
	require.Len(t, out, 2)
	assert.Equal(t, series.Datapoints{1: 0.25}, out[0].Datapoints)
	assert.Equal(t, series.Datapoints{1: 0.75}, out[1].Datapoints)

	out = evaluate(t, "NORMALIZE", in, "2")
	assert.Equal(t, series.Datapoints{1: 1.5, 2: 0}, out[1].Datapoints)
}

func TestMoving_WindowOneIsIdentity(t *testing.T) {
	dps := series.Datapoints{0: 3, 1000: -1, 5000: 7.5, 6000: 2}
	for _, kind := range []string{"avg", "median", "sum"} {
		out := evaluate(t, "MOVING", one(testSeries("a", dps)), "1", kind)
		assert.Equal(t, dps, out[0].Datapoints, kind)
	}
}

func TestMoving_CountMode(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 1000: 3, 2000: 5, 3000: 13})

	out := evaluate(t, "MOVING", one(s), "2")[0].Datapoints

	require.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 2.0, out[1000])
	assert.Equal(t, 4.0, out[2000])
	assert.Equal(t, 9.0, out[3000])

	med := evaluate(t, "MOVING", one(s), "3", "median")[0].Datapoints
	assert.Equal(t, 3.0, med[2000])
	assert.Equal(t, 5.0, med[3000])
}

func TestMoving_IntervalMode(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 1000: 3, 2000: 5, 10000: 7})

	out := evaluate(t, "MOVING", one(s), "2s", "sum")

	assert.Equal(t, series.Datapoints{0: 1, 1000: 4, 2000: 8, 10000: 7}, out[0].Datapoints)
}

func TestMovingStepper_EvictsFromRunningTotals(t *testing.T) {
	m := newMovingStepper(0, 2000, "avg")
	for _, p := range []series.Point{{Timestamp: 0, Value: 1}, {Timestamp: 1000, Value: 3}, {Timestamp: 2000, Value: 5}} {
		m.Step(p)
	}
	assert.Equal(t, 2, m.acc.Count)
	assert.Equal(t, 8.0, m.acc.Sum)

	r, ok := m.Step(series.Point{Timestamp: 10000, Value: 7})
	require.True(t, ok)
	assert.Equal(t, 7.0, r.Value)
	assert.Equal(t, 1, m.acc.Count)

	s := testSeries("a", series.Datapoints{0: 2, 1000: math.NaN(), 2000: 4})
	out := evaluate(t, "MOVING", one(s), "2s")[0].Datapoints
	assert.Equal(t, series.Datapoints{0: 2, 1000: 1, 2000: 2}, out)
}

func TestDownsample_OneMinuteAverage(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 2, 30000: 4, 60000: 10})

	out := evaluate(t, "DOWNSAMPLE", one(s), "1m-avg")

	assert.Equal(t, series.Datapoints{0: 3, 60000: 10}, out[0].Datapoints)
}

func TestDownsample_Absolute(t *testing.T) {
	s := testSeries("a", series.Datapoints{10000: 1, 40000: 3, 70000: 5})
	qc := NewQueryContext(context.Background(), 10000, 100000)

	out, err := Evaluate(qc, "DOWNSAMPLE", one(s), []string{"1m-sum", "abs"})

	require.NoError(t, err)
	assert.Equal(t, series.Datapoints{10000: 4, 70000: 5}, out[0].Datapoints)
}

func TestDerivative(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 10, 1000: 15, 2000: 13})
	assert.Equal(t, series.Datapoints{1000: 5, 2000: -2}, evaluate(t, "DERIVATIVE", one(s))[0].Datapoints)

	r := testSeries("a", series.Datapoints{0: 0, 2000: 10})
	assert.Equal(t, series.Datapoints{2000: 5}, evaluate(t, "DERIVATIVE", one(r), "1s")[0].Datapoints)
}

func TestIntegralDerivativeRoundTrip(t *testing.T) {
	dps := series.Datapoints{0: 4, 1000: -2, 3000: 10, 7000: 0.5}
	s := testSeries("a", dps)

	integral := evaluate(t, "INTEGRAL", one(s))
	assert.Equal(t, series.Datapoints{0: 4, 1000: 2, 3000: 12, 7000: 12.5}, integral[0].Datapoints)

	back := evaluate(t, "DERIVATIVE", integral)[0].Datapoints
	require.Len(t, back, 3)
	for _, ts := range []int64{1000, 3000, 7000} {
		assert.InDelta(t, dps[ts], back[ts], 1e-9)
	}
}

func TestRate(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 0, 1000: 10, 2000: 5})

	assert.Equal(t, series.Datapoints{1000: 10, 2000: -5}, evaluate(t, "RATE", one(s), "1s")[0].Datapoints)
	assert.Equal(t, series.Datapoints{1000: 10}, evaluate(t, "RATE", one(s), "1s", "true")[0].Datapoints)
}

func TestRate_Interpolated(t *testing.T) {
	s := testSeries("a", series.Datapoints{1000: 10, 3000: 30})
	qc := NewQueryContext(context.Background(), 0, 4000)

	out, err := Evaluate(qc, "RATE", one(s), []string{"1s", "false", "true"})

	require.NoError(t, err)
	assert.Equal(t, series.Datapoints{1000: 10, 2000: 10, 3000: 10, 4000: 10}, out[0].Datapoints)

	qc.MaxDatapoints = 3
	_, err = Evaluate(qc, "RATE", one(s), []string{"1s", "false", "true"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestPropagate(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 3000: math.NaN(), 4000: 4})

	out := evaluate(t, "PROPAGATE", one(s), "1s")

	assert.Equal(t, series.Datapoints{0: 1, 1000: 1, 2000: 1, 3000: 1, 4000: 4}, out[0].Datapoints)
}

func TestFill_InsertsGridPoints(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 30000: 2, 40000: 3})

	out := evaluate(t, "FILL", one(s), "10s", "0", "-1")

	assert.Equal(t, series.Datapoints{0: 1, 10000: -1, 20000: -1, 30000: 2, 40000: 3}, out[0].Datapoints)
}

func TestFill_Offset(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 30000: 2})

	out := evaluate(t, "FILL", one(s), "10s", "5s", "0")

	assert.Equal(t, series.Datapoints{0: 1, 5000: 0, 15000: 0, 25000: 0, 30000: 2}, out[0].Datapoints)
}

func TestFill_WithoutSeries(t *testing.T) {
	out := evaluate(t, "FILL", nil, "0", "30000", "10s", "0", "5")

	require.Len(t, out, 1)
	assert.Equal(t, series.DefaultName, out[0].Scope)
	assert.Equal(t, series.DefaultName, out[0].Name)
	assert.Equal(t, series.Datapoints{0: 5, 10000: 5, 20000: 5, 30000: 5}, out[0].Datapoints)

	qc := testContext()
	qc.MaxDatapoints = 3
	_, err := Evaluate(qc, "FILL", nil, []string{"0", "30000", "10s", "0", "5"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestReduceDatapoints(t *testing.T) {
	dps := make(series.Datapoints)
	for i := int64(0); i < 10; i++ {
		dps[i*1000] = float64(i)
	}

	out := evaluate(t, "REDUCE_DATAPOINTS", one(testSeries("a", dps)), "5", "max")

	assert.Len(t, out[0].Datapoints, 5)
	assert.Equal(t, 9.0, out[0].Datapoints[9000])

	same := evaluate(t, "REDUCE_DATAPOINTS", one(testSeries("a", dps)), "20", "avg")
	assert.Equal(t, dps, same[0].Datapoints)
}
