package anomaly

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// Contextual scores each point against a trailing window of recent history
// instead of the whole series
type Contextual struct {
	Inner  Detector
	Window int64 // milliseconds
}

// NewContextual wraps inner with a trailing window
func NewContextual(inner Detector, window int64) (*Contextual, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: contextual window must be positive", ErrInvalidConfig)
	}
	return &Contextual{Inner: inner, Window: window}, nil
}

// Name returns the algorithm name
func (c *Contextual) Name() string {
	return "contextual_" + c.Inner.Name()
}

// Score implements Detector. Points less than one window after the first
// point score 0; later points get the inner detector's score for the last
// point of the window [t-window, t]. A point the inner detector omits is omitted.
func (c *Contextual) Score(points []series.Point, config DetectorConfig) (analytics.Scores, error) {
	scores := make(analytics.Scores, len(points))
	if len(points) == 0 {
		return scores, nil
	}

	var window deque.Deque[series.Point]
	first := points[0].Timestamp
	buf := make([]series.Point, 0, len(points))

	for _, p := range points {
		window.PushBack(p)
		for window.Len() > 0 && window.Front().Timestamp < p.Timestamp-c.Window {
			window.PopFront()
		}

		if p.Timestamp-first < c.Window {
			scores[p.Timestamp] = 0
			continue
		}

		buf = buf[:0]
		for i := 0; i < window.Len(); i++ {
			buf = append(buf, window.At(i))
		}
		inner, err := c.Inner.Score(buf, config)
		if err != nil {
			return nil, err
		}
		if v, ok := inner[p.Timestamp]; ok {
			scores[p.Timestamp] = v
		}
	}
	return scores, nil
}
