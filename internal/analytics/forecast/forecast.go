// Package forecast provides smoothing-based forecasters over evenly ordered values.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidConfig is wrapped when smoothing parameters are out of range
var ErrInvalidConfig = errors.New("invalid forecast configuration")

// ModelInfo contains metadata about the fitted model
type ModelInfo struct {
	Algorithm  string                 `json:"algorithm"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	MAE        float64                `json:"mae,omitempty"`  // Mean Absolute Error
	RMSE       float64                `json:"rmse,omitempty"` // Root Mean Squared Error
	DataPoints int                    `json:"data_points"`
}

// Result holds one-step-ahead predictions aligned with the input values.
// Entries for null inputs are NaN.
type Result struct {
	Forecast  []float64 `json:"forecast"`
	Deviation []float64 `json:"deviation"`
	ModelInfo ModelInfo `json:"model_info"`
}

// Config holds smoothing parameters
type Config struct {
	Alpha        float64 // Level smoothing (0-1)
	Beta         float64 // Trend smoothing (0-1)
	Gamma        float64 // Seasonal smoothing (0-1)
	SeasonLength int     // Points per season
}

// Validate checks that all factors lie in [0,1] and the season is positive
func (c Config) Validate() error {
	for name, v := range map[string]float64{"alpha": c.Alpha, "beta": c.Beta, "gamma": c.Gamma} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.SeasonLength < 1 {
		return fmt.Errorf("%w: season length must be positive, got %d", ErrInvalidConfig, c.SeasonLength)
	}
	return nil
}

// Forecaster fits a model to values and returns aligned predictions
type Forecaster interface {
	Name() string
	Analyze(values []float64, config Config) (*Result, error)
}

var forecasterRegistry = make(map[string]Forecaster)

// RegisterForecaster adds a forecaster to the registry
func RegisterForecaster(name string, forecaster Forecaster) {
	forecasterRegistry[name] = forecaster
}

// GetForecaster returns a forecaster by name
func GetForecaster(name string) (Forecaster, error) {
	if forecaster, ok := forecasterRegistry[name]; ok {
		return forecaster, nil
	}
	return nil, fmt.Errorf("unknown forecaster: %s", name)
}

// ListForecasters returns the registered forecaster names, sorted
func ListForecasters() []string {
	names := make([]string, 0, len(forecasterRegistry))
	for name := range forecasterRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CalculateMAE calculates Mean Absolute Error, skipping NaN pairs
func CalculateMAE(actual, predicted []float64) float64 {
	sum, n := 0.0, 0
	for i := range actual {
		if i >= len(predicted) || math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Abs(actual[i] - predicted[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CalculateRMSE calculates Root Mean Squared Error, skipping NaN pairs
func CalculateRMSE(actual, predicted []float64) float64 {
	sum, n := 0.0, 0
	for i := range actual {
		if i >= len(predicted) || math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		diff := actual[i] - predicted[i]
		sum += diff * diff
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
