// Package interpolation aligns several series by estimating each series'
// value at the other series' timestamps.
package interpolation

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

type track struct {
	cursor  *series.SliceCursor
	prev    series.Point
	hasPrev bool
	out     series.Datapoints
}

// Interpolate walks all inputs in timestamp order (a k-way merge). At each
// distinct timestamp, every series without a point there receives a value
// linearly interpolated between its bracketing points. Nothing is added
// before a series' first point or after its last one, and existing points are
// left unchanged. Inputs are not modified.
func Interpolate(in []*series.Series) []*series.Series {
	tracks := make([]*track, len(in))
	for i, s := range in {
		tracks[i] = &track{
			cursor: series.NewSliceCursor(s),
			out:    s.Datapoints.Clone(),
		}
	}

	for {
		ts, ok := nextTimestamp(tracks)
		if !ok {
			break
		}
		for _, t := range tracks {
			next, has := t.cursor.Peek()
			if has && next.Timestamp == ts {
				t.cursor.Next()
				t.prev, t.hasPrev = next, true
				continue
			}
			if !has || !t.hasPrev {
				continue
			}
			if v := linear(t.prev, next, ts); !math.IsNaN(v) {
				t.out[ts] = v
			}
		}
	}

	out := make([]*series.Series, len(in))
	for i, s := range in {
		out[i] = s.WithDatapoints(tracks[i].out)
	}
	return out
}

func nextTimestamp(tracks []*track) (int64, bool) {
	var min int64
	found := false
	for _, t := range tracks {
		p, ok := t.cursor.Peek()
		if !ok {
			continue
		}
		if !found || p.Timestamp < min {
			min, found = p.Timestamp, true
		}
	}
	return min, found
}

// linear interpolates between a and b at ts; a null endpoint yields NaN
func linear(a, b series.Point, ts int64) float64 {
	if b.Timestamp == a.Timestamp {
		return a.Value
	}
	frac := float64(ts-a.Timestamp) / float64(b.Timestamp-a.Timestamp)
	return a.Value + (b.Value-a.Value)*frac
}
