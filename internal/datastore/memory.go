package datastore

import (
	"context"
	"sync"

	"github.com/soltixdb/soltix-transform/internal/series"
)

type memorySeries struct {
	identity *series.Series
	points   []series.Point
}

// MemoryStore keeps series in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	series   map[string]*memorySeries
	pageSize int
	closed   bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = series.DefaultPageSize
	}
	return &MemoryStore{
		series:   make(map[string]*memorySeries),
		pageSize: pageSize,
	}
}

// Write merges the datapoints of s into the stored series.
func (m *MemoryStore) Write(_ context.Context, s *series.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	id := s.Identity()
	existing, ok := m.series[id]
	if !ok {
		m.series[id] = &memorySeries{
			identity: s.WithDatapoints(nil),
			points:   sortedPoints(s),
		}
		return nil
	}
	existing.points = mergePoints(existing.points, sortedPoints(s))
	if s.Units != "" {
		existing.identity.Units = s.Units
	}
	if s.DisplayName != "" {
		existing.identity.DisplayName = s.DisplayName
	}
	return nil
}

func (m *MemoryStore) identityFor(q Query) *series.Series {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if stored, ok := m.series[q.Identity()]; ok {
		return stored.identity
	}
	return q.Series()
}

// page serves one page of a stored series.
func (m *MemoryStore) page(id string, after, end int64, limit int) ([]series.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	stored, ok := m.series[id]
	if !ok {
		return nil, nil
	}
	return pageOf(stored.points, after, end, limit), nil
}

// FetchCursor implements Fetcher.
func (m *MemoryStore) FetchCursor(ctx context.Context, q Query) (series.Cursor, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	src := &memoryPages{store: m, id: q.Identity(), end: q.end()}
	return series.NewScanCursor(ctx, m.identityFor(q), src, q.Start, m.pageSize), nil
}

// FetchSeries implements Fetcher.
func (m *MemoryStore) FetchSeries(ctx context.Context, q Query) (*series.Series, error) {
	c, err := m.FetchCursor(ctx, q)
	if err != nil {
		return nil, err
	}
	return fetchAll(c)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.series = nil
	return nil
}

type memoryPages struct {
	store *MemoryStore
	id    string
	end   int64
}

func (p *memoryPages) NextPage(_ context.Context, after int64, limit int) ([]series.Point, error) {
	return p.store.page(p.id, after, p.end, limit)
}
