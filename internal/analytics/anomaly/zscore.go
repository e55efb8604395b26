package anomaly

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"gonum.org/v1/gonum/stat/distuv"
)

// ZScoreDetector scores each point by |z| against the whole series
type ZScoreDetector struct{}

// DensityDetector scores each point by the negative log of the fitted
// Gaussian density, so rarer values score higher
type DensityDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
	RegisterDetector("density", &DensityDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Score implements Detector
func (z *ZScoreDetector) Score(points []series.Point, _ DetectorConfig) (analytics.Scores, error) {
	mean, std := analytics.PopMeanStdDev(analytics.Values(points))
	scores := make(analytics.Scores, len(points))
	for _, p := range points {
		scores[p.Timestamp] = math.Abs(CalculateZScore(p.Value, mean, std))
	}
	return analytics.NormalizeScores(scores), nil
}

// Name returns the algorithm name
func (d *DensityDetector) Name() string {
	return "density"
}

// Score implements Detector
func (d *DensityDetector) Score(points []series.Point, _ DetectorConfig) (analytics.Scores, error) {
	mean, std := analytics.PopMeanStdDev(analytics.Values(points))
	scores := make(analytics.Scores, len(points))
	if std == 0 {
		for _, p := range points {
			scores[p.Timestamp] = 0
		}
		return scores, nil
	}

	dist := distuv.Normal{Mu: mean, Sigma: std}
	for _, p := range points {
		scores[p.Timestamp] = -dist.LogProb(p.Value)
	}
	return analytics.NormalizeScores(scores), nil
}

// CalculateZScore calculates Z-Score for a single value given mean and stdDev
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}
