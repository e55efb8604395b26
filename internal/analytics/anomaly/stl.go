package anomaly

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	stlSeasonalSpan = 7
	stlInnerPasses  = 2
)

// STLDetector scores points from the residual of a seasonal-trend decomposition
type STLDetector struct{}

func init() {
	RegisterDetector("stl", &STLDetector{})
}

// Name returns the algorithm name
func (d *STLDetector) Name() string {
	return "stl"
}

// Score implements Detector. With config.Raw the score is |residual|; otherwise
// it is (2*Phi(|z|)-1)*100 where z is the standardized residual.
func (d *STLDetector) Score(points []series.Point, config DetectorConfig) (analytics.Scores, error) {
	scores := make(analytics.Scores, len(points))
	if len(points) == 0 {
		return scores, nil
	}

	values := analytics.Values(points)
	period := SeasonFrequency(points, config)
	if period == 0 {
		period = AutoSeason(values)
	}
	residual := DecomposeSTL(values, period).Residual

	if config.Raw {
		for i, p := range points {
			scores[p.Timestamp] = math.Abs(residual[i])
		}
		return scores, nil
	}

	mean, std := analytics.PopMeanStdDev(residual)
	for i, p := range points {
		if std == 0 {
			scores[p.Timestamp] = 0
			continue
		}
		z := math.Abs(residual[i]-mean) / std
		scores[p.Timestamp] = (2*distuv.UnitNormal.CDF(z) - 1) * 100
	}
	return scores, nil
}

// AutoSeason picks the lag in [2, n/2] with the strongest autocorrelation.
// It returns 0 when no lag correlates positively.
func AutoSeason(values []float64) int {
	n := len(values)
	best, bestCorr := 0, 0.0
	for lag := 2; lag <= n/2; lag++ {
		c := stat.Correlation(values[:n-lag], values[lag:], nil)
		if math.IsNaN(c) {
			continue
		}
		if c > bestCorr {
			best, bestCorr = lag, c
		}
	}
	return best
}

// STLResult holds the three components; they sum to the input
type STLResult struct {
	Seasonal []float64
	Trend    []float64
	Residual []float64
}

// DecomposeSTL runs the inner loop of Cleveland's STL (no robustness
// iterations). A period below 2, or fewer than two full periods of data,
// yields a trend-only decomposition.
func DecomposeSTL(values []float64, period int) STLResult {
	n := len(values)
	res := STLResult{
		Seasonal: make([]float64, n),
		Trend:    make([]float64, n),
		Residual: make([]float64, n),
	}
	if n == 0 {
		return res
	}

	seasonal := period >= 2 && n >= 2*period
	np := period
	if np < 2 {
		np = 2
	}
	trendSpan := nextOdd(int(math.Ceil(1.5 * float64(np) / (1 - 1.5/float64(stlSeasonalSpan)))))
	lowPassSpan := nextOdd(np)

	if !seasonal {
		res.Trend = loess(values, trendSpan, 1)
		for i := range values {
			res.Residual[i] = values[i] - res.Trend[i]
		}
		return res
	}

	detrended := make([]float64, n)
	deseasonal := make([]float64, n)
	for pass := 0; pass < stlInnerPasses; pass++ {
		for i := range values {
			detrended[i] = values[i] - res.Trend[i]
		}

		cycle := smoothCycleSubseries(detrended, np)
		low := movingAverage(movingAverage(movingAverage(cycle, np), np), 3)
		low = loess(low, lowPassSpan, 1)
		for i := 0; i < n; i++ {
			res.Seasonal[i] = cycle[np+i] - low[i]
		}

		for i := range values {
			deseasonal[i] = values[i] - res.Seasonal[i]
		}
		res.Trend = loess(deseasonal, trendSpan, 1)
	}

	for i := range values {
		res.Residual[i] = values[i] - res.Seasonal[i] - res.Trend[i]
	}
	return res
}

// smoothCycleSubseries smooths each cycle-subseries with degree-0 loess and
// extends it by one period on each side; the result has n + 2*np values.
func smoothCycleSubseries(values []float64, np int) []float64 {
	n := len(values)
	out := make([]float64, n+2*np)
	for k := 0; k < np; k++ {
		var sub []float64
		for i := k; i < n; i += np {
			sub = append(sub, values[i])
		}
		m := len(sub)
		for j := -1; j <= m; j++ {
			out[(j+1)*np+k] = loessAt(sub, float64(j), stlSeasonalSpan, 0)
		}
	}
	return out
}

func movingAverage(values []float64, width int) []float64 {
	n := len(values) - width + 1
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	sum := 0.0
	for i := 0; i < width; i++ {
		sum += values[i]
	}
	out[0] = sum / float64(width)
	for i := 1; i < n; i++ {
		sum += values[i+width-1] - values[i-1]
		out[i] = sum / float64(width)
	}
	return out
}

func loess(values []float64, span, degree int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = loessAt(values, float64(i), span, degree)
	}
	return out
}

// loessAt fits a tricube-weighted local polynomial of degree 0 or 1 to the
// points at positions 0..n-1 and evaluates it at x.
func loessAt(values []float64, x float64, span, degree int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}

	q := span
	if q > n {
		q = n
	}
	lo := int(math.Round(x)) - q/2
	if lo < 0 {
		lo = 0
	}
	if lo+q > n {
		lo = n - q
	}
	hi := lo + q - 1

	h := math.Max(x-float64(lo), float64(hi)-x)
	if span > n {
		h += float64(span-n) / 2
	}
	if h <= 0 {
		h = 1
	}

	var sw, swx, swy, swxx, swxy float64
	for i := lo; i <= hi; i++ {
		r := math.Abs(float64(i)-x) / h
		if r >= 1 {
			r = 0.999
		}
		w := math.Pow(1-r*r*r, 3)
		xi := float64(i)
		sw += w
		swx += w * xi
		swy += w * values[i]
		swxx += w * xi * xi
		swxy += w * xi * values[i]
	}
	if sw == 0 {
		return values[int(math.Max(0, math.Min(float64(n-1), math.Round(x))))]
	}

	mean := swy / sw
	if degree == 0 {
		return mean
	}
	xbar := swx / sw
	varx := swxx/sw - xbar*xbar
	if varx <= 1e-12 {
		return mean
	}
	slope := (swxy/sw - xbar*mean) / varx
	return mean + slope*(x-xbar)
}

func nextOdd(v int) int {
	if v < 3 {
		return 3
	}
	if v%2 == 0 {
		return v + 1
	}
	return v
}
