package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// NormalizeScores rescales scores to 0..100 with (v-min)*100/(max-min).
// A constant score set normalizes to all zeros.
func NormalizeScores(scores Scores) Scores {
	out := make(Scores, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for ts, v := range scores {
		if hi == lo {
			out[ts] = 0
			continue
		}
		out[ts] = (v - lo) * 100 / (hi - lo)
	}
	return out
}

// PopMeanStdDev returns the population mean and standard deviation
func PopMeanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return mean, math.Sqrt(variance)
}

// ZNormalize returns (v-mean)/std using population statistics.
// A zero-variance input yields all zeros.
func ZNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	mean, std := PopMeanStdDev(values)
	if std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
