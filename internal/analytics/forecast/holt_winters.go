package forecast

import (
	"math"
)

// HoltWintersForecaster implements additive triple exponential smoothing
// in the form used for monitoring confidence bands: one-step-ahead forecast
// plus a seasonally smoothed absolute deviation.
type HoltWintersForecaster struct{}

// NewHoltWintersForecaster creates a new Holt-Winters forecaster
func NewHoltWintersForecaster() *HoltWintersForecaster {
	return &HoltWintersForecaster{}
}

func init() {
	RegisterForecaster("holt_winters", NewHoltWintersForecaster())
}

// Name returns the algorithm name
func (f *HoltWintersForecaster) Name() string {
	return "holt_winters"
}

// Analyze runs the smoothing over values in order. A NaN value produces NaN
// outputs and leaves the model state for later points to restart from.
func (f *HoltWintersForecaster) Analyze(values []float64, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	alpha, beta, gamma := config.Alpha, config.Beta, config.Gamma
	season := config.SeasonLength
	n := len(values)

	intercepts := make([]float64, n)
	slopes := make([]float64, n)
	seasonals := make([]float64, n)
	predictions := make([]float64, n)
	deviations := make([]float64, n)

	lookback := func(comp []float64, i int) float64 {
		j := i - season
		if j < 0 || math.IsNaN(comp[j]) {
			return 0
		}
		return comp[j]
	}

	for i, actual := range values {
		if math.IsNaN(actual) {
			intercepts[i], slopes[i], seasonals[i] = math.NaN(), math.NaN(), math.NaN()
			predictions[i], deviations[i] = math.NaN(), math.NaN()
			continue
		}

		lastSeasonal := lookback(seasonals, i)
		lastSeasonalDev := lookback(deviations, i)

		var lastIntercept, lastSlope, prediction float64
		if i == 0 {
			lastIntercept = actual
			lastSlope = 0
			prediction = actual
		} else {
			lastIntercept = intercepts[i-1]
			lastSlope = slopes[i-1]
			if math.IsNaN(lastIntercept) {
				lastIntercept = actual
			}
			if math.IsNaN(lastSlope) {
				lastSlope = 0
			}
			prediction = lastIntercept + lastSlope + lastSeasonal
		}

		intercept := alpha*(actual-lastSeasonal) + (1-alpha)*(lastIntercept+lastSlope)
		slope := beta*(intercept-lastIntercept) + (1-beta)*lastSlope
		seasonal := gamma*(actual-intercept) + (1-gamma)*lastSeasonal
		deviation := gamma*math.Abs(actual-prediction) + (1-gamma)*lastSeasonalDev

		intercepts[i] = intercept
		slopes[i] = slope
		seasonals[i] = seasonal
		predictions[i] = prediction
		deviations[i] = deviation
	}

	return &Result{
		Forecast:  predictions,
		Deviation: deviations,
		ModelInfo: ModelInfo{
			Algorithm: "holt_winters",
			Parameters: map[string]interface{}{
				"alpha":  alpha,
				"beta":   beta,
				"gamma":  gamma,
				"season": season,
			},
			MAE:        CalculateMAE(values, predictions),
			RMSE:       CalculateRMSE(values, predictions),
			DataPoints: n,
		},
	}, nil
}
