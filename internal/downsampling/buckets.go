// Package downsampling shrinks series: time-bucketed downsampling and
// max-datapoint reduction.
package downsampling

import (
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// BucketSpec describes a "<n><unit>-<reducer>" downsampling specifier
type BucketSpec struct {
	Width   int64  // milliseconds
	Unit    string // ms, s, m, h, d, w
	Count   int64  // n in <n><unit>
	Reducer analytics.ReduceFunc
	Name    string // reducer name as given
}

// ParseBucketSpec parses specifiers such as "1m-avg", "1h-p95" or "1d-max"
func ParseBucketSpec(spec string) (BucketSpec, error) {
	window, reducer, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok || window == "" || reducer == "" {
		return BucketSpec{}, fmt.Errorf("invalid downsample specifier %q: expected <n><unit>-<reducer>", spec)
	}
	width, err := utils.ParseWindow(window)
	if err != nil {
		return BucketSpec{}, fmt.Errorf("invalid downsample specifier %q: %w", spec, err)
	}
	fn, err := analytics.LookupReducer(reducer)
	if err != nil {
		return BucketSpec{}, fmt.Errorf("invalid downsample specifier %q: %w", spec, err)
	}
	unit := utils.DurationUnit(window)
	return BucketSpec{
		Width:   width,
		Unit:    unit,
		Count:   width / unitWidth(unit),
		Reducer: fn,
		Name:    reducer,
	}, nil
}

func unitWidth(unit string) int64 {
	switch unit {
	case "s":
		return utils.MillisPerSecond
	case "m":
		return utils.MillisPerMinute
	case "h":
		return utils.MillisPerHour
	case "d":
		return utils.MillisPerDay
	case "w":
		return utils.MillisPerWeek
	default:
		return 1
	}
}

// BucketOptions control bucket alignment
type BucketOptions struct {
	// Location aligns day and week buckets to local midnight (UTC when nil)
	Location *time.Location

	// Absolute anchors buckets at Anchor instead of unit boundaries
	Absolute bool
	Anchor   int64
}

// BucketStart returns the start of the bucket containing ts
func (b BucketSpec) BucketStart(ts int64, opts BucketOptions) int64 {
	if opts.Absolute {
		return opts.Anchor + utils.FloorDiv(ts-opts.Anchor, b.Width)*b.Width
	}

	switch b.Unit {
	case "d", "w":
		loc := opts.Location
		if loc == nil {
			loc = time.UTC
		}
		t := time.UnixMilli(ts).In(loc)
		y, m, d := t.Date()
		// Civil day number of the local date, 1970-01-01 = 0.
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli() / utils.MillisPerDay
		var back int64
		if b.Unit == "d" {
			back = utils.FloorMod(day, b.Count)
		} else {
			// 1970-01-01 was a Thursday; shift so weeks start on Monday.
			weekday := utils.FloorMod(day+3, 7)
			week := utils.FloorDiv(day-weekday, 7)
			back = weekday + utils.FloorMod(week, b.Count)*7
		}
		return time.Date(y, m, d-int(back), 0, 0, 0, 0, loc).UnixMilli()
	default:
		return ts - utils.FloorMod(ts, b.Width)
	}
}

// Downsample groups the datapoints into buckets and reduces each bucket.
// Null values are ignored by the reducer; a bucket reducing to null is dropped.
func Downsample(dps series.Datapoints, spec BucketSpec, opts BucketOptions) series.Datapoints {
	buckets := make(map[int64][]float64)
	for _, ts := range dps.Timestamps() {
		start := spec.BucketStart(ts, opts)
		buckets[start] = append(buckets[start], dps[ts])
	}

	out := make(series.Datapoints, len(buckets))
	for start, values := range buckets {
		v := spec.Reducer(values)
		if series.IsNull(v) {
			continue
		}
		out[start] = v
	}
	return out
}
