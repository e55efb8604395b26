// Package analytics provides the numeric building blocks shared by transforms:
// named reducers, statistics helpers and score normalization. Anomaly scoring
// and forecasting live in the anomaly and forecast subpackages.
package analytics

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// Values extracts the values of points in order
func Values(points []series.Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// NonNull returns the values that are not NaN
func NonNull(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Scores maps timestamps to a score; absent timestamps carry no score
type Scores map[int64]float64

// ToDatapoints converts scores to series datapoints
func (s Scores) ToDatapoints() series.Datapoints {
	out := make(series.Datapoints, len(s))
	for ts, v := range s {
		out[ts] = v
	}
	return out
}
