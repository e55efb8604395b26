package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// KMeansDetector clusters the values and scores each point by its distance
// to the assigned centroid relative to that cluster's mean distance
type KMeansDetector struct{}

func init() {
	RegisterDetector("kmeans", &KMeansDetector{})
}

// Name returns the algorithm name
func (k *KMeansDetector) Name() string {
	return "kmeans"
}

// Score implements Detector. Points whose cluster has a zero mean distance are omitted.
func (k *KMeansDetector) Score(points []series.Point, config DetectorConfig) (analytics.Scores, error) {
	if config.K < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidConfig, config.K)
	}
	scores := make(analytics.Scores, len(points))
	if len(points) == 0 {
		return scores, nil
	}

	maxIter := config.MaxIterations
	if maxIter <= 0 {
		maxIter = utils.DefaultKMeansMaxIterations
	}

	values := analytics.Values(points)
	model := FitKMeans(values, config.K, maxIter)

	meanDist := make([]float64, len(model.Centroids))
	counts := make([]int, len(model.Centroids))
	for i, v := range values {
		c := model.Assignments[i]
		meanDist[c] += math.Abs(v - model.Centroids[c])
		counts[c]++
	}
	for c := range meanDist {
		if counts[c] > 0 {
			meanDist[c] /= float64(counts[c])
		}
	}

	for _, p := range points {
		// Cluster is looked up through the first occurrence of the value.
		c := model.Assignments[indexOf(values, p.Value)]
		if meanDist[c] == 0 {
			continue
		}
		scores[p.Timestamp] = math.Abs(p.Value-model.Centroids[c]) / meanDist[c]
	}
	return analytics.NormalizeScores(scores), nil
}

func indexOf(values []float64, v float64) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return 0
}

// KMeansModel is the result of a one-dimensional clustering
type KMeansModel struct {
	Centroids   []float64
	Assignments []int
	Iterations  int
}

// FitKMeans runs Lloyd's algorithm on scalar values. Centroids are seeded
// deterministically at evenly spaced quantiles of the sorted values; k is
// capped at the number of values.
func FitKMeans(values []float64, k, maxIter int) KMeansModel {
	n := len(values)
	if k > n {
		k = n
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centroids := make([]float64, k)
	for j := range centroids {
		centroids[j] = sorted[(2*j+1)*n/(2*k)]
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, v := range values {
			best := nearest(centroids, v)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for j := range centroids {
			if counts[j] > 0 {
				centroids[j] = sums[j] / float64(counts[j])
			}
		}
	}

	return KMeansModel{Centroids: centroids, Assignments: assign, Iterations: iter}
}

func nearest(centroids []float64, v float64) int {
	best := 0
	bestDist := math.Abs(v - centroids[0])
	for j := 1; j < len(centroids); j++ {
		if d := math.Abs(v - centroids[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
