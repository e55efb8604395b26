package downsampling

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBucketSpec(t *testing.T) {
	spec, err := ParseBucketSpec("5m-p95")
	require.NoError(t, err)
	assert.Equal(t, 5*utils.MillisPerMinute, spec.Width)
	assert.Equal(t, "m", spec.Unit)
	assert.Equal(t, int64(5), spec.Count)
	assert.Equal(t, "p95", spec.Name)

	for _, bad := range []string{"5m", "-avg", "0m-avg", "5x-avg", "5m-mode"} {
		_, err := ParseBucketSpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestDownsample_OneMinuteAverage(t *testing.T) {
	spec, err := ParseBucketSpec("1m-avg")
	require.NoError(t, err)

	out := Downsample(series.Datapoints{0: 2, 30000: 4, 60000: 10}, spec, BucketOptions{})

	assert.Equal(t, series.Datapoints{0: 3, 60000: 10}, out)
}

func TestDownsample_Reducers(t *testing.T) {
	dps := series.Datapoints{0: 1, 1000: 5, 2000: 3, 10000: 7, 11000: math.NaN()}

	tests := []struct {
		spec string
		want series.Datapoints
	}{
		{"10s-sum", series.Datapoints{0: 9, 10000: 7}},
		{"10s-max", series.Datapoints{0: 5, 10000: 7}},
		{"10s-count", series.Datapoints{0: 3, 10000: 1}},
		{"10s-median", series.Datapoints{0: 3, 10000: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			spec, err := ParseBucketSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Downsample(dps, spec, BucketOptions{}))
		})
	}
}

func TestBucketStart_DayInLocation(t *testing.T) {
	spec, err := ParseBucketSpec("1d-avg")
	require.NoError(t, err)
	tokyo := time.FixedZone("+09:00", 9*3600)

	// 2024-01-02 03:00 UTC is 12:00 in Tokyo; local midnight is 2024-01-01 15:00 UTC.
	ts := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC).UnixMilli()
	start := spec.BucketStart(ts, BucketOptions{Location: tokyo})

	assert.Equal(t, time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), spec.BucketStart(ts, BucketOptions{}))
}

func TestBucketStart_WeekStartsMonday(t *testing.T) {
	spec, err := ParseBucketSpec("1w-sum")
	require.NoError(t, err)

	// 2024-01-04 is a Thursday.
	ts := time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), spec.BucketStart(ts, BucketOptions{}))
}

func TestBucketStart_Absolute(t *testing.T) {
	spec, err := ParseBucketSpec("1m-avg")
	require.NoError(t, err)

	opts := BucketOptions{Absolute: true, Anchor: 15000}
	assert.Equal(t, int64(15000), spec.BucketStart(20000, opts))
	assert.Equal(t, int64(75000), spec.BucketStart(80000, opts))
	assert.Equal(t, int64(-45000), spec.BucketStart(0, opts))
}

func TestBucketStart_NegativeTimestamps(t *testing.T) {
	spec, err := ParseBucketSpec("10s-avg")
	require.NoError(t, err)
	assert.Equal(t, int64(-10000), spec.BucketStart(-1, BucketOptions{}))
}

func seq(n int) series.Datapoints {
	dps := make(series.Datapoints, n)
	for i := 0; i < n; i++ {
		dps[int64(i)*1000] = float64(i)
	}
	return dps
}

func TestReduceDatapoints_ChunksNewestFirst(t *testing.T) {
	// 10 points into 4 chunks of sizes 3,3,2,2 walking from the newest.
	out, err := ReduceDatapoints(seq(10), ReduceOptions{Max: 4, Strategy: StrategySum})
	require.NoError(t, err)

	assert.Equal(t, series.Datapoints{
		9000: 9 + 8 + 7,
		6000: 6 + 5 + 4,
		3000: 3 + 2,
		1000: 1 + 0,
	}, out)
}

func TestReduceDatapoints_Strategies(t *testing.T) {
	dps := seq(10)

	nth, err := ReduceDatapoints(dps, ReduceOptions{Max: 5, Strategy: StrategyNth})
	require.NoError(t, err)
	assert.Equal(t, series.Datapoints{9000: 9, 7000: 7, 5000: 5, 3000: 3, 1000: 1}, nth)

	count, err := ReduceDatapoints(dps, ReduceOptions{Max: 5, Strategy: StrategyCount})
	require.NoError(t, err)
	for _, v := range count {
		assert.Equal(t, 2.0, v)
	}

	random, err := ReduceDatapoints(dps, ReduceOptions{Max: 5, Strategy: StrategyRandom, Rand: rand.New(rand.NewSource(7))})
	require.NoError(t, err)
	assert.Len(t, random, 5)
	for ts, v := range random {
		// Each chunk holds the chunk timestamp and the point just before it.
		assert.Contains(t, []float64{float64(ts / 1000), float64(ts/1000 - 1)}, v)
	}

	lttb, err := ReduceDatapoints(dps, ReduceOptions{Max: 4, Strategy: StrategyLTTB})
	require.NoError(t, err)
	assert.Len(t, lttb, 4)
	assert.Contains(t, lttb, int64(0))
	assert.Contains(t, lttb, int64(9000))
}

func TestReduceDatapoints_MinInterval(t *testing.T) {
	// Chunks must span at least 3s, so fewer than Max chunks are produced.
	out, err := ReduceDatapoints(seq(10), ReduceOptions{Max: 5, Strategy: StrategyMax, MinInterval: 3000})
	require.NoError(t, err)

	assert.Equal(t, series.Datapoints{9000: 9, 5000: 5, 1000: 1}, out)
}

func TestReduceDatapoints_UnderLimit(t *testing.T) {
	dps := seq(3)
	out, err := ReduceDatapoints(dps, ReduceOptions{Max: 5, Strategy: StrategyAvg})
	require.NoError(t, err)
	assert.Equal(t, dps, out)

	_, err = ReduceDatapoints(dps, ReduceOptions{Max: 0, Strategy: StrategyAvg})
	assert.Error(t, err)

	_, err = ParseStrategy("mode")
	assert.Error(t, err)
}

func TestLTTB_KeepsEndpoints(t *testing.T) {
	points := seq(100).Points()
	out := LTTB(points, 10)

	require.Len(t, out, 10)
	assert.Equal(t, points[0], out[0])
	assert.Equal(t, points[99], out[9])
	assert.Equal(t, points, LTTB(points, 200))
}
