package interpolation

import (
	"math"
	"testing"

	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_FillsBracketedGaps(t *testing.T) {
	a := series.New("s", "a", series.Datapoints{0: 0, 10: 10, 20: 20})
	b := series.New("s", "b", series.Datapoints{5: 100, 15: 200})

	out := Interpolate([]*series.Series{a, b})
	require.Len(t, out, 2)

	assert.Equal(t, series.Datapoints{0: 0, 5: 5, 10: 10, 15: 15, 20: 20}, out[0].Datapoints)
	// b has no point before 5 or after 15, so 0 and 20 are not synthesized.
	assert.Equal(t, series.Datapoints{5: 100, 10: 150, 15: 200}, out[1].Datapoints)
	assert.Equal(t, "b", out[1].Name)

	assert.Len(t, a.Datapoints, 3, "input must not be modified")
}

func TestInterpolate_NeverExtrapolates(t *testing.T) {
	inputs := []*series.Series{
		series.New("s", "a", series.Datapoints{0: 1, 100: 2, 200: 3, 300: 4}),
		series.New("s", "b", series.Datapoints{150: 7, 160: 8}),
		series.New("s", "c", series.Datapoints{50: 1, 250: 9, 350: 1}),
	}

	out := Interpolate(inputs)
	for i, s := range out {
		ts := inputs[i].Datapoints.Timestamps()
		first, last := ts[0], ts[len(ts)-1]
		for synthesized := range s.Datapoints {
			assert.GreaterOrEqual(t, synthesized, first)
			assert.LessOrEqual(t, synthesized, last)
		}
		for orig, v := range inputs[i].Datapoints {
			assert.Equal(t, v, s.Datapoints[orig], "existing points are unchanged")
		}
	}
}

func TestInterpolate_TiedTimestampsAdvanceTogether(t *testing.T) {
	a := series.New("s", "a", series.Datapoints{0: 1, 10: 2})
	b := series.New("s", "b", series.Datapoints{0: 5, 10: 6})

	out := Interpolate([]*series.Series{a, b})
	assert.Equal(t, a.Datapoints, out[0].Datapoints)
	assert.Equal(t, b.Datapoints, out[1].Datapoints)
}

func TestInterpolate_NullBracketSkipped(t *testing.T) {
	a := series.New("s", "a", series.Datapoints{0: math.NaN(), 10: 2})
	b := series.New("s", "b", series.Datapoints{5: 1})

	out := Interpolate([]*series.Series{a, b})
	_, ok := out[0].Datapoints[5]
	assert.False(t, ok)
}

func TestInterpolate_Empty(t *testing.T) {
	assert.Empty(t, Interpolate(nil))
}
