package series

import (
	"context"
	"errors"
	"sync"
)

// ErrCursorConsumed is reported when a closed cursor is advanced again.
var ErrCursorConsumed = errors.New("cursor already consumed")

// DefaultPageSize is the number of points a ScanCursor loads per fetch.
const DefaultPageSize = 1024

// Cursor is a forward-only, single-owner view over one series' points in
// time-ascending order. Cursors are not safe for concurrent use; wrap them in
// a SyncCursor when several code paths must share one.
type Cursor interface {
	// Identity returns the series identity without datapoints.
	Identity() *Series
	// Peek returns the next point without consuming it.
	Peek() (Point, bool)
	// Next consumes and returns the next point.
	Next() (Point, bool)
	// Consumed returns the points already consumed, oldest first.
	Consumed() []Point
	// Err returns the first error hit while advancing.
	Err() error
	// Close releases the cursor; further advancing reports ErrCursorConsumed.
	Close() error
}

// PageSource loads points lazily for a ScanCursor.
type PageSource interface {
	// NextPage returns up to limit points with a timestamp strictly greater
	// than after, time-ascending. An empty page means the source is exhausted.
	NextPage(ctx context.Context, after int64, limit int) ([]Point, error)
}

// ScanCursor pages through a PageSource and remembers what it has handed out,
// so a later consumer can replay the prefix without fetching it again.
type ScanCursor struct {
	ctx      context.Context
	identity *Series
	src      PageSource
	pageSize int

	page      []Point
	pos       int
	after     int64
	exhausted bool
	closed    bool
	consumed  []Point
	fetches   int
	err       error
}

// NewScanCursor creates a cursor returning points with timestamp >= start.
func NewScanCursor(ctx context.Context, identity *Series, src PageSource, start int64, pageSize int) *ScanCursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ScanCursor{
		ctx:      ctx,
		identity: identity.WithDatapoints(nil),
		src:      src,
		pageSize: pageSize,
		after:    start - 1,
	}
}

// Identity implements Cursor.
func (c *ScanCursor) Identity() *Series {
	return c.identity
}

func (c *ScanCursor) fill() bool {
	if c.closed {
		if c.err == nil {
			c.err = ErrCursorConsumed
		}
		return false
	}
	if c.err != nil {
		return false
	}
	for c.pos >= len(c.page) {
		if c.exhausted {
			return false
		}
		page, err := c.src.NextPage(c.ctx, c.after, c.pageSize)
		c.fetches++
		if err != nil {
			c.err = err
			return false
		}
		if len(page) == 0 {
			c.exhausted = true
			return false
		}
		if len(page) < c.pageSize {
			c.exhausted = true
		}
		c.page = page
		c.pos = 0
		c.after = page[len(page)-1].Timestamp
	}
	return true
}

// Peek implements Cursor.
func (c *ScanCursor) Peek() (Point, bool) {
	if !c.fill() {
		return Point{}, false
	}
	return c.page[c.pos], true
}

// Next implements Cursor.
func (c *ScanCursor) Next() (Point, bool) {
	if !c.fill() {
		return Point{}, false
	}
	p := c.page[c.pos]
	c.pos++
	c.consumed = append(c.consumed, p)
	return p, true
}

// Consumed implements Cursor.
func (c *ScanCursor) Consumed() []Point {
	out := make([]Point, len(c.consumed))
	copy(out, c.consumed)
	return out
}

// Fetches returns how many pages were requested from the source.
func (c *ScanCursor) Fetches() int {
	return c.fetches
}

// Err implements Cursor.
func (c *ScanCursor) Err() error {
	return c.err
}

// Close implements Cursor.
func (c *ScanCursor) Close() error {
	c.closed = true
	c.page = nil
	return nil
}

// SliceCursor is a Cursor over an already materialized series.
type SliceCursor struct {
	identity *Series
	points   []Point
	pos      int
	closed   bool
	err      error
}

// NewSliceCursor creates a cursor over the points of s.
func NewSliceCursor(s *Series) *SliceCursor {
	return &SliceCursor{
		identity: s.WithDatapoints(nil),
		points:   s.Datapoints.Points(),
	}
}

// Identity implements Cursor.
func (c *SliceCursor) Identity() *Series {
	return c.identity
}

// Peek implements Cursor.
func (c *SliceCursor) Peek() (Point, bool) {
	if c.closed {
		c.err = ErrCursorConsumed
		return Point{}, false
	}
	if c.pos >= len(c.points) {
		return Point{}, false
	}
	return c.points[c.pos], true
}

// Next implements Cursor.
func (c *SliceCursor) Next() (Point, bool) {
	p, ok := c.Peek()
	if ok {
		c.pos++
	}
	return p, ok
}

// Consumed implements Cursor.
func (c *SliceCursor) Consumed() []Point {
	out := make([]Point, c.pos)
	copy(out, c.points[:c.pos])
	return out
}

// Err implements Cursor.
func (c *SliceCursor) Err() error {
	return c.err
}

// Close implements Cursor.
func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}

// SyncCursor guards a Cursor with a mutex for callers that share it.
type SyncCursor struct {
	mu sync.Mutex
	c  Cursor
}

// NewSyncCursor wraps c.
func NewSyncCursor(c Cursor) *SyncCursor {
	return &SyncCursor{c: c}
}

// Do runs fn while holding the lock, for sequences that must not interleave.
func (s *SyncCursor) Do(fn func(c Cursor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.c)
}

// Identity implements Cursor.
func (s *SyncCursor) Identity() *Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Identity()
}

// Peek implements Cursor.
func (s *SyncCursor) Peek() (Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Peek()
}

// Next implements Cursor.
func (s *SyncCursor) Next() (Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Next()
}

// Consumed implements Cursor.
func (s *SyncCursor) Consumed() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Consumed()
}

// Err implements Cursor.
func (s *SyncCursor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Err()
}

// Close implements Cursor.
func (s *SyncCursor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Close()
}

// Collect drains c and returns the full series, including the prefix consumed
// before the call. The cursor is closed afterwards.
func Collect(c Cursor) (*Series, error) {
	for {
		if _, ok := c.Next(); !ok {
			break
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	out := c.Identity().WithDatapoints(FromPoints(c.Consumed()))
	if err := c.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
