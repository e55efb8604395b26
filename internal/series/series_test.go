package series

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatapoints_SortedAccessors(t *testing.T) {
	dps := Datapoints{3000: 3, 1000: 1, 2000: 2}

	assert.Equal(t, []int64{1000, 2000, 3000}, dps.Timestamps())
	assert.Equal(t, []float64{1, 2, 3}, dps.Values())
	assert.Equal(t, Point{Timestamp: 1000, Value: 1}, dps.Points()[0])
}

func TestDatapoints_NullsToZero(t *testing.T) {
	dps := Datapoints{1: Null(), 2: 5}
	out := dps.NullsToZero()

	assert.Equal(t, 0.0, out[1])
	assert.Equal(t, 5.0, out[2])
	assert.True(t, math.IsNaN(dps[1]), "original must not be modified")
}

func TestDatapoints_Subset(t *testing.T) {
	dps := Datapoints{1: 1, 2: 2, 3: 3, 4: 4}
	assert.Equal(t, Datapoints{2: 2, 3: 3}, dps.Subset(2, 3))
}

func TestSeries_CloneIsDeep(t *testing.T) {
	s := New("scope", "cpu", Datapoints{1: 1})
	s.SetTag("host", "a")

	c := s.Clone()
	c.Datapoints[1] = 99
	c.Tags["host"] = "b"

	assert.Equal(t, 1.0, s.Datapoints[1])
	assert.Equal(t, "a", s.Tags["host"])
}

func TestSeries_Identity(t *testing.T) {
	s := New("system", "cpu", nil)
	s.SetTag("host", "web1")
	s.SetTag("dc", "east")

	assert.Equal(t, "system:cpu{dc=east,host=web1}", s.Identity())
	assert.Equal(t, "system:mem", New("system", "mem", nil).Identity())
}

func TestDistill(t *testing.T) {
	a := New("system", "cpu", nil)
	a.Units = "pct"
	a.Tags = map[string]string{"dc": "east", "host": "a"}
	b := New("system", "mem", nil)
	b.Units = "pct"
	b.Tags = map[string]string{"dc": "east", "host": "b"}

	d := Distill([]*Series{a, b})

	assert.Equal(t, "system", d.Scope)
	assert.Equal(t, "", d.Name)
	assert.Equal(t, "pct", d.Units)
	assert.Equal(t, map[string]string{"dc": "east"}, d.Tags)
	assert.Empty(t, d.Datapoints)

	def := DistillOrDefault([]*Series{a, b})
	assert.Equal(t, DefaultName, def.Name)
	assert.Equal(t, "system", def.Scope)
}

func TestDistill_MissingTagDropped(t *testing.T) {
	a := New("s", "m", nil)
	a.Tags = map[string]string{"dc": "east"}
	b := New("s", "m", nil)

	assert.Empty(t, Distill([]*Series{a, b}).Tags)
}

type pagedSource struct {
	points []Point
	calls  int
}

func (p *pagedSource) NextPage(_ context.Context, after int64, limit int) ([]Point, error) {
	p.calls++
	var out []Point
	for _, pt := range p.points {
		if pt.Timestamp > after {
			out = append(out, pt)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func newSource(n int) *pagedSource {
	src := &pagedSource{}
	for i := 0; i < n; i++ {
		src.points = append(src.points, Point{Timestamp: int64(i) * 1000, Value: float64(i)})
	}
	return src
}

func TestScanCursor_PagesLazily(t *testing.T) {
	src := newSource(10)
	c := NewScanCursor(context.Background(), New("s", "m", nil), src, 0, 4)

	p, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(0), p.Timestamp)
	assert.Equal(t, 1, c.Fetches())

	for i := 0; i < 4; i++ {
		_, ok := c.Next()
		require.True(t, ok)
	}
	assert.Equal(t, 1, c.Fetches())

	_, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, 2, c.Fetches())
	assert.Len(t, c.Consumed(), 5)
}

func TestScanCursor_StartBound(t *testing.T) {
	src := newSource(10)
	c := NewScanCursor(context.Background(), New("s", "m", nil), src, 5000, 100)

	p, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, int64(5000), p.Timestamp)
}

func TestCollect_ReplaysConsumedPrefix(t *testing.T) {
	src := newSource(10)
	c := NewScanCursor(context.Background(), New("s", "m", nil), src, 0, 3)

	for i := 0; i < 4; i++ {
		c.Next()
	}
	fetchesBefore := c.Fetches()

	s, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, 9.0, s.Datapoints[9000])
	// 10 points in pages of 3: 4 pages, the last one short.
	assert.Equal(t, 4, c.Fetches())
	assert.Equal(t, 2, fetchesBefore)

	_, ok := c.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Err(), ErrCursorConsumed)
}

func TestSliceCursor(t *testing.T) {
	s := New("s", "m", Datapoints{2: 2, 1: 1, 3: 3})
	c := NewSliceCursor(s)

	p, _ := c.Next()
	assert.Equal(t, int64(1), p.Timestamp)
	p, _ = c.Peek()
	assert.Equal(t, int64(2), p.Timestamp)
	assert.Equal(t, []Point{{Timestamp: 1, Value: 1}}, c.Consumed())

	out, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, s.Datapoints, out.Datapoints)
}

func TestSyncCursor_ConcurrentConsumers(t *testing.T) {
	src := newSource(1000)
	c := NewSyncCursor(NewScanCursor(context.Background(), New("s", "m", nil), src, 0, 64))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]int)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, ok := c.Next()
				if !ok {
					return
				}
				mu.Lock()
				seen[p.Timestamp]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
	for ts, n := range seen {
		assert.Equal(t, 1, n, "timestamp %d consumed more than once", ts)
	}
}
