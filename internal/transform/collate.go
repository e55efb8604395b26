package transform

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// Collate aligns series by timestamp. Each entry lists one value per input
// series, in input order, so the result never depends on the order in which
// series were produced.
//
// With fullJoin false a timestamp is kept only when every series has it;
// with fullJoin true it is kept when any series has it and missing inputs
// contribute NaN.
func Collate(in []*series.Series, fullJoin bool) map[int64][]float64 {
	out := make(map[int64][]float64)
	if len(in) == 0 {
		return out
	}

	counts := make(map[int64]int)
	for _, s := range in {
		for ts := range s.Datapoints {
			counts[ts]++
		}
	}

	for ts, n := range counts {
		if !fullJoin && n < len(in) {
			continue
		}
		values := make([]float64, len(in))
		for i, s := range in {
			v, ok := s.Datapoints[ts]
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		out[ts] = values
	}
	return out
}

// present returns the non-null values.
func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// orZero replaces NaN by 0.
func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
