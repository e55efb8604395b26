package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoltWinters_ConstantSeries(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5, 5}
	res, err := NewHoltWintersForecaster().Analyze(values, Config{Alpha: 0.5, Beta: 0.5, Gamma: 0.5, SeasonLength: 2})
	require.NoError(t, err)

	for i := range values {
		assert.InDelta(t, 5, res.Forecast[i], 1e-9)
		assert.InDelta(t, 0, res.Deviation[i], 1e-9)
	}
	assert.Equal(t, 6, res.ModelInfo.DataPoints)
}

func TestHoltWinters_HandComputedSteps(t *testing.T) {
	// alpha=1, beta=0, gamma=0: level follows the data, no trend or season.
	values := []float64{1, 3, 2}
	res, err := NewHoltWintersForecaster().Analyze(values, Config{Alpha: 1, Beta: 0, Gamma: 0, SeasonLength: 1})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 3}, res.Forecast)
	assert.Equal(t, []float64{0, 0, 0}, res.Deviation)
}

func TestHoltWinters_DeviationTracksError(t *testing.T) {
	values := []float64{10, 20}
	res, err := NewHoltWintersForecaster().Analyze(values, Config{Alpha: 0.5, Beta: 0, Gamma: 1, SeasonLength: 5})
	require.NoError(t, err)

	// prediction at 1 is 10, |20-10| with gamma=1 gives 10.
	assert.InDelta(t, 10, res.Deviation[1], 1e-9)
}

func TestHoltWinters_NullsPropagate(t *testing.T) {
	values := []float64{1, math.NaN(), 3}
	res, err := NewHoltWintersForecaster().Analyze(values, Config{Alpha: 0.5, Beta: 0.5, Gamma: 0.5, SeasonLength: 1})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(res.Forecast[1]))
	// The model restarts from the actual value after a gap.
	assert.InDelta(t, 3, res.Forecast[2], 1e-9)
}

func TestHoltWinters_InvalidConfig(t *testing.T) {
	f := NewHoltWintersForecaster()

	_, err := f.Analyze(nil, Config{Alpha: 1.5, SeasonLength: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = f.Analyze(nil, Config{Alpha: 0.5, SeasonLength: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"holt_winters"}, ListForecasters())
	f, err := GetForecaster("holt_winters")
	require.NoError(t, err)
	assert.Equal(t, "holt_winters", f.Name())
}

func TestErrorMetrics(t *testing.T) {
	actual := []float64{1, 2, math.NaN()}
	pred := []float64{2, 4, 1}
	assert.InDelta(t, 1.5, CalculateMAE(actual, pred), 1e-9)
	assert.InDelta(t, math.Sqrt(2.5), CalculateRMSE(actual, pred), 1e-9)
}
