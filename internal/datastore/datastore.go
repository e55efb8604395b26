// Package datastore supplies raw series to the transform engine, either
// fully materialized or through lazily paging cursors.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore is closed")

// Query selects one series and a time range. End <= 0 means unbounded.
type Query struct {
	Scope string            `json:"scope" yaml:"scope"`
	Name  string            `json:"metric" yaml:"metric"`
	Tags  map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Start int64             `json:"start" yaml:"start"`
	End   int64             `json:"end" yaml:"end"`
}

// QueryFor builds a query for the identity of s.
func QueryFor(s *series.Series, start, end int64) Query {
	tags := make(map[string]string, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	return Query{Scope: s.Scope, Name: s.Name, Tags: tags, Start: start, End: end}
}

// Series returns an empty series carrying the query identity.
func (q Query) Series() *series.Series {
	s := series.New(q.Scope, q.Name, nil)
	for k, v := range q.Tags {
		s.SetTag(k, v)
	}
	return s
}

// Identity renders the identity of the queried series.
func (q Query) Identity() string {
	return q.Series().Identity()
}

func (q Query) end() int64 {
	if q.End <= 0 {
		return math.MaxInt64
	}
	return q.End
}

// Validate checks the query.
func (q Query) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("query metric name is required")
	}
	if q.End > 0 && q.End < q.Start {
		return fmt.Errorf("query end %d is before start %d", q.End, q.Start)
	}
	return nil
}

// Fetcher supplies series for a query.
type Fetcher interface {
	FetchSeries(ctx context.Context, q Query) (*series.Series, error)
	FetchCursor(ctx context.Context, q Query) (series.Cursor, error)
}

// Store is a Fetcher that also accepts writes.
type Store interface {
	Fetcher
	Write(ctx context.Context, s *series.Series) error
	Close() error
}

// New creates the store selected by cfg.Type.
func New(cfg config.DatastoreConfig, pageSize int, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	switch utils.StoreType(cfg.Type) {
	case "", utils.StoreTypeMemory:
		return NewMemoryStore(pageSize), nil
	case utils.StoreTypeBadger:
		return NewBadgerStore(cfg.Badger, pageSize, logger)
	case utils.StoreTypeRedis:
		return NewRedisStore(cfg.Redis, pageSize, logger)
	default:
		return nil, fmt.Errorf("unsupported datastore type: %s", cfg.Type)
	}
}

// fetchAll drains a cursor created by the store itself.
func fetchAll(c series.Cursor) (*series.Series, error) {
	return series.Collect(c)
}

// sortedPoints returns the datapoints of s as a time-ascending slice.
func sortedPoints(s *series.Series) []series.Point {
	return s.Datapoints.Points()
}

// mergePoints merges two time-ascending slices; b wins on equal timestamps.
func mergePoints(a, b []series.Point) []series.Point {
	out := make([]series.Point, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Timestamp < b[j].Timestamp:
			out = append(out, a[i])
			i++
		case a[i].Timestamp > b[j].Timestamp:
			out = append(out, b[j])
			j++
		default:
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// pageOf returns up to limit points with after < ts <= end from a sorted slice.
func pageOf(points []series.Point, after, end int64, limit int) []series.Point {
	i := sort.Search(len(points), func(i int) bool { return points[i].Timestamp > after })
	out := make([]series.Point, 0, limit)
	for ; i < len(points) && len(out) < limit; i++ {
		if points[i].Timestamp > end {
			break
		}
		out = append(out, points[i])
	}
	return out
}
