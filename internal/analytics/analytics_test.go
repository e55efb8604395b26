package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedReducers(t *testing.T) {
	values := []float64{4, 1, math.NaN(), 3, 2}

	tests := []struct {
		name string
		want float64
	}{
		{"avg", 2.5},
		{"sum", 10},
		{"min", 1},
		{"max", 4},
		{"count", 4},
		{"median", 2.5},
		{"p50", 2},
		{"p100", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := LookupReducer(tt.name)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, fn(values), 1e-9)
		})
	}

	_, err := LookupReducer("mode")
	assert.Error(t, err)
	_, err = LookupReducer("p0")
	assert.Error(t, err)
}

func TestDevNeedsTwoValues(t *testing.T) {
	assert.True(t, math.IsNaN(Dev([]float64{5})))
	assert.InDelta(t, math.Sqrt(2), Dev([]float64{1, 3}), 1e-9)
}

func TestEmptyReductionsAreNull(t *testing.T) {
	assert.True(t, math.IsNaN(Avg(nil)))
	assert.True(t, math.IsNaN(Sum([]float64{math.NaN()})))
	assert.Equal(t, 0.0, Count(nil))
}

func TestAccumulator(t *testing.T) {
	a := NewAccumulator()
	for _, v := range []float64{1, 2, 3, math.NaN()} {
		a.Add(v)
	}
	assert.Equal(t, 3, a.Count)
	assert.Equal(t, 2.0, a.Avg())
	assert.Equal(t, 1.0, a.Min)
	assert.Equal(t, 3.0, a.Max)

	a.Remove(1)
	assert.Equal(t, 2.5, a.Avg())
}

func TestNormalizeScores(t *testing.T) {
	out := NormalizeScores(Scores{1: 5, 2: 10, 3: 15})
	assert.Equal(t, 0.0, out[1])
	assert.Equal(t, 50.0, out[2])
	assert.Equal(t, 100.0, out[3])

	flat := NormalizeScores(Scores{1: 7, 2: 7})
	assert.Equal(t, Scores{1: 0, 2: 0}, flat)
}

func TestZNormalize(t *testing.T) {
	z := ZNormalize([]float64{1, 2, 3})
	assert.InDelta(t, 0, z[1], 1e-12)
	assert.InDelta(t, -z[0], z[2], 1e-12)

	assert.Equal(t, []float64{0, 0}, ZNormalize([]float64{4, 4}))
}
