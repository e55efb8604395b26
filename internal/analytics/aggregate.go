package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ReduceFunc collapses a set of values into one. NaN inputs are ignored;
// a NaN result means "no value".
type ReduceFunc func(values []float64) float64

// Accumulator keeps running statistics for one bucket or window
type Accumulator struct {
	Count      int
	Sum        float64
	Min        float64
	Max        float64
	SumSquares float64
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Add folds a value in; NaN is ignored
func (a *Accumulator) Add(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.Count++
	a.Sum += v
	a.SumSquares += v * v
	if v < a.Min {
		a.Min = v
	}
	if v > a.Max {
		a.Max = v
	}
}

// Remove takes a previously added value back out. Min and Max are not restored.
func (a *Accumulator) Remove(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.Count--
	a.Sum -= v
	a.SumSquares -= v * v
}

// Avg returns the mean, or NaN when empty
func (a *Accumulator) Avg() float64 {
	if a.Count == 0 {
		return math.NaN()
	}
	return a.Sum / float64(a.Count)
}

// Sum returns the sum of non-null values, or NaN when there are none
func Sum(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Sum(v)
}

// Avg returns the mean of non-null values
func Avg(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// Min returns the minimum of non-null values
func Min(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

// Max returns the maximum of non-null values
func Max(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

// Dev returns the sample standard deviation; fewer than two values yield NaN
func Dev(values []float64) float64 {
	v := NonNull(values)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// Median returns the median of non-null values
func Median(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	m, err := stats.Median(v)
	if err != nil {
		return math.NaN()
	}
	return m
}

// Count returns the number of non-null values
func Count(values []float64) float64 {
	return float64(len(NonNull(values)))
}

// Range returns max - min
func Range(values []float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v) - floats.Min(v)
}

// Percentile returns the nearest-rank p-th percentile (0 < p <= 100)
func Percentile(values []float64, p float64) float64 {
	v := NonNull(values)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	return stat.Quantile(p/100, stat.Empirical, v, nil)
}

// PercentileFunc returns a ReduceFunc computing the p-th percentile
func PercentileFunc(p float64) ReduceFunc {
	return func(values []float64) float64 {
		return Percentile(values, p)
	}
}

var namedReducers = map[string]ReduceFunc{
	"avg":    Avg,
	"sum":    Sum,
	"min":    Min,
	"max":    Max,
	"dev":    Dev,
	"count":  Count,
	"median": Median,
}

// ParsePercentile parses "p90" / "p99.9" style names into a percentile in (0, 100]
func ParsePercentile(name string) (float64, bool) {
	if !strings.HasPrefix(name, "p") || len(name) < 2 {
		return 0, false
	}
	p, err := strconv.ParseFloat(name[1:], 64)
	if err != nil || p <= 0 || p > 100 {
		return 0, false
	}
	return p, true
}

// LookupReducer resolves a reducer name (avg, sum, min, max, dev, count, median, pNN)
func LookupReducer(name string) (ReduceFunc, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if fn, ok := namedReducers[key]; ok {
		return fn, nil
	}
	if p, ok := ParsePercentile(key); ok {
		return PercentileFunc(p), nil
	}
	return nil, fmt.Errorf("unknown reducer %q", name)
}
