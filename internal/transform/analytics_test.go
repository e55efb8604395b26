package transform

import (
	"context"
	"math"
	"testing"

	"github.com/soltixdb/soltix-transform/internal/datastore"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_NeverExtrapolates(t *testing.T) {
	in := []*series.Series{
		testSeries("a", series.Datapoints{0: 0, 2000: 2}),
		testSeries("b", series.Datapoints{1000: 5, 3000: 7}),
	}

	out := evaluate(t, "INTERPOLATE", in)

	require.Len(t, out, 2)
	assert.Equal(t, series.Datapoints{0: 0, 1000: 1, 2000: 2}, out[0].Datapoints)
	assert.Equal(t, series.Datapoints{1000: 5, 2000: 6, 3000: 7}, out[1].Datapoints)
}

func TestInterpolate_Reduced(t *testing.T) {
	in := []*series.Series{
		testSeries("a", series.Datapoints{0: 0, 2000: 2}),
		testSeries("b", series.Datapoints{1000: 5, 3000: 7}),
	}

	out := evaluate(t, "INTERPOLATE", in, "sum")

	require.Len(t, out, 1)
	assert.Equal(t, series.Datapoints{1000: 6, 2000: 8}, out[0].Datapoints)
}

func scoreRange(t *testing.T, dps series.Datapoints) (lo, hi float64) {
	t.Helper()
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range dps {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func TestAnomaly_NormalizedRange(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 1000: 2, 2000: 3, 3000: 10, 4000: math.NaN()})

	for _, name := range []string{"ANOMALY_ZSCORE", "ANOMALY_DENSITY"} {
		out := evaluate(t, name, one(s))[0].Datapoints
		require.Len(t, out, 4, name)
		lo, hi := scoreRange(t, out)
		assert.Equal(t, 0.0, lo, name)
		assert.Equal(t, 100.0, hi, name)
		assert.Equal(t, 100.0, out[3000], name)
	}
}

func TestAnomaly_ConstantSeriesScoresZero(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 5, 1000: 5, 2000: 5})

	for _, name := range []string{"ANOMALY_ZSCORE", "ANOMALY_DENSITY"} {
		out := evaluate(t, name, one(s))[0].Datapoints
		assert.Equal(t, series.Datapoints{0: 0, 1000: 0, 2000: 0}, out, name)
	}
}

func periodicWithSpike() *series.Series {
	dps := make(series.Datapoints)
	for i := int64(0); i < 48; i++ {
		dps[i*1000] = 10 + 5*math.Sin(float64(i)*math.Pi/6)
	}
	dps[30000] = 60
	return testSeries("a", dps)
}

func TestAnomaly_Algorithms(t *testing.T) {
	s := periodicWithSpike()
	tests := []struct {
		name string
		args []string
	}{
		{"ANOMALY_KMEANS", []string{"2"}},
		{"ANOMALY_RPCA", []string{"12"}},
		{"ANOMALY_RPCA", []string{"12s"}},
		{"ANOMALY_STL", []string{"12"}},
		{"ANOMALY_STL", nil},
		{"ANOMALY_CONTEXTUAL_KMEANS", []string{"10s", "2"}},
		{"ANOMALY_CONTEXTUAL_RPCA", []string{"24s", "12"}},
		{"ANOMALY_CONTEXTUAL_STL", []string{"24s"}},
	}
	for _, tt := range tests {
		out := evaluate(t, tt.name, one(s), tt.args...)[0].Datapoints
		require.NotEmpty(t, out, tt.name)
		lo, hi := scoreRange(t, out)
		assert.GreaterOrEqual(t, lo, 0.0, tt.name)
		assert.LessOrEqual(t, hi, 100.0+1e-9, tt.name)
	}
}

func TestAnomaly_STLRaw(t *testing.T) {
	out := evaluate(t, "ANOMALY_STL", one(periodicWithSpike()), "12", "raw")[0].Datapoints
	require.Len(t, out, 48)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestAnomaly_ContextualWarmup(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 1, 1000: 9, 2000: 2, 3000: 3, 4000: 20})

	out := evaluate(t, "ANOMALY_CONTEXTUAL_ZSCORE", one(s), "2s")[0].Datapoints

	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[1000])
	assert.Equal(t, 100.0, out[4000])
}

func TestHoltWinters_WithoutBootstrap(t *testing.T) {
	s := testSeries("a", series.Datapoints{0: 3, 1000: 4, 2000: 5, 3000: 4})

	out := evaluate(t, "HOLT_WINTERS_FORECAST", one(s), "0.5", "0.1", "0.1", "2")[0].Datapoints
	require.Len(t, out, 4)
	assert.Equal(t, 3.0, out[0])

	dev := evaluate(t, "HOLT_WINTERS_DEVIATION", one(s), "0.5", "0.1", "0.1", "2")[0].Datapoints
	require.Len(t, dev, 4)
	for _, v := range dev {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestHoltWinters_BootstrapFromStore(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore(2)
	history := make(series.Datapoints)
	for ts := int64(5000); ts < 10000; ts += 1000 {
		history[ts] = 100
	}
	require.NoError(t, store.Write(ctx, testSeries("cpu", history)))

	qc := NewQueryContext(ctx, 10000, 20000)
	qc.Fetcher = store
	s := testSeries("cpu", series.Datapoints{10000: 0, 11000: 0})

	out, err := Evaluate(qc, "HOLT_WINTERS_FORECAST", one(s), []string{"0.5", "0.1", "0.1", "1"})

	require.NoError(t, err)
	require.Len(t, out[0].Datapoints, 2)
	assert.InDelta(t, 100, out[0].Datapoints[10000], 1e-9)
}

type recordingFetcher struct {
	datastore.Fetcher
	queries []datastore.Query
}

func (f *recordingFetcher) FetchSeries(ctx context.Context, q datastore.Query) (*series.Series, error) {
	f.queries = append(f.queries, q)
	return f.Fetcher.FetchSeries(ctx, q)
}

func TestHoltWinters_NoBootstrapBeforeEpoch(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemoryStore(2)
	require.NoError(t, store.Write(ctx, testSeries("cpu", series.Datapoints{5000: 100, 6000: 100})))
	s := testSeries("cpu", series.Datapoints{0: 3, 1000: 4})

	for _, start := range []int64{0, 1} {
		fetcher := &recordingFetcher{Fetcher: store}
		qc := NewQueryContext(ctx, start, 1000)
		qc.Fetcher = fetcher

		out, err := Evaluate(qc, "HOLT_WINTERS_FORECAST", one(s), []string{"0.5", "0.1", "0.1", "1"})

		require.NoError(t, err)
		assert.Empty(t, fetcher.queries)
		assert.Equal(t, 3.0, out[0].Datapoints[0])
	}

	fetcher := &recordingFetcher{Fetcher: store}
	qc := NewQueryContext(ctx, 2, 1000)
	qc.Fetcher = fetcher
	_, err := Evaluate(qc, "HOLT_WINTERS_FORECAST", one(s), []string{"0.5", "0.1", "0.1", "1"})
	require.NoError(t, err)
	require.Len(t, fetcher.queries, 1)
	assert.Equal(t, int64(1), fetcher.queries[0].End)
}
