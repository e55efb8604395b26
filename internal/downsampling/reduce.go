package downsampling

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// Strategy names how a chunk of points collapses into one
type Strategy string

const (
	StrategyAvg    Strategy = "avg"
	StrategyMin    Strategy = "min"
	StrategyMax    Strategy = "max"
	StrategyMedian Strategy = "median"
	StrategySum    Strategy = "sum"
	StrategyCount  Strategy = "count"
	StrategyNth    Strategy = "nth"    // newest point of each chunk
	StrategyRandom Strategy = "random" // one random point of each chunk
	StrategyLTTB   Strategy = "lttb"   // largest-triangle selection over the whole series
)

// ValidStrategies returns all reduction strategies
func ValidStrategies() []Strategy {
	return []Strategy{
		StrategyAvg, StrategyMin, StrategyMax, StrategyMedian, StrategySum,
		StrategyCount, StrategyNth, StrategyRandom, StrategyLTTB,
	}
}

// ParseStrategy validates a strategy name
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, v := range ValidStrategies() {
		if v == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown reduction strategy %q", name)
}

// ReduceOptions configures ReduceDatapoints
type ReduceOptions struct {
	Max         int
	Strategy    Strategy
	MinInterval int64      // a chunk closes only once it spans at least this many ms
	Rand        *rand.Rand // source for StrategyRandom
}

// ReduceDatapoints caps a series at opts.Max points. Points are walked newest
// first and split into Max chunks; the first len%Max chunks hold one extra
// point. Each chunk is stamped with its newest timestamp.
func ReduceDatapoints(dps series.Datapoints, opts ReduceOptions) (series.Datapoints, error) {
	if opts.Max <= 0 {
		return nil, fmt.Errorf("max datapoints must be positive, got %d", opts.Max)
	}
	n := len(dps)
	if n <= opts.Max {
		return dps.Clone(), nil
	}

	points := dps.Points()
	if opts.Strategy == StrategyLTTB {
		return series.FromPoints(LTTB(points, opts.Max)), nil
	}

	var reduce analytics.ReduceFunc
	switch opts.Strategy {
	case StrategyNth, StrategyRandom:
	default:
		fn, err := analytics.LookupReducer(string(opts.Strategy))
		if err != nil {
			return nil, err
		}
		reduce = fn
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	base, extra := n/opts.Max, n%opts.Max
	out := make(series.Datapoints, opts.Max)

	var chunk []series.Point
	chunkIdx := 0
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		ts := chunk[0].Timestamp
		switch opts.Strategy {
		case StrategyNth:
			out[ts] = chunk[0].Value
		case StrategyRandom:
			out[ts] = chunk[rng.Intn(len(chunk))].Value
		default:
			values := make([]float64, len(chunk))
			for i, p := range chunk {
				values[i] = p.Value
			}
			if v := reduce(values); !series.IsNull(v) {
				out[ts] = v
			}
		}
		chunk = chunk[:0]
		chunkIdx++
	}

	for i := n - 1; i >= 0; i-- {
		chunk = append(chunk, points[i])
		target := base
		if chunkIdx < extra {
			target++
		}
		if len(chunk) < target {
			continue
		}
		if opts.MinInterval > 0 && chunk[0].Timestamp-chunk[len(chunk)-1].Timestamp < opts.MinInterval {
			continue
		}
		flush()
	}
	flush()

	return out, nil
}
