// Package series provides the time-indexed numeric series shared by every
// transform, plus the forward-only cursors used by scanning evaluation.
package series

import (
	"math"
	"sort"
	"strings"
)

// DefaultName is the scope/name given to results whose inputs disagree.
const DefaultName = "result"

// Point is a single timestamped value. Timestamps are epoch milliseconds.
type Point struct {
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
	Value     float64 `json:"value" yaml:"value"`
}

// Datapoints maps epoch milliseconds to a value. NaN represents null.
type Datapoints map[int64]float64

// Null returns the value used to represent a missing datapoint value.
func Null() float64 {
	return math.NaN()
}

// IsNull reports whether v represents a null value.
func IsNull(v float64) bool {
	return math.IsNaN(v)
}

// Timestamps returns the keys sorted ascending.
func (d Datapoints) Timestamps() []int64 {
	keys := make([]int64, 0, len(d))
	for ts := range d {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Points returns the datapoints as a time-ascending slice.
func (d Datapoints) Points() []Point {
	keys := d.Timestamps()
	points := make([]Point, len(keys))
	for i, ts := range keys {
		points[i] = Point{Timestamp: ts, Value: d[ts]}
	}
	return points
}

// Values returns the values in time-ascending order.
func (d Datapoints) Values() []float64 {
	keys := d.Timestamps()
	values := make([]float64, len(keys))
	for i, ts := range keys {
		values[i] = d[ts]
	}
	return values
}

// Clone returns a copy of the datapoints.
func (d Datapoints) Clone() Datapoints {
	out := make(Datapoints, len(d))
	for ts, v := range d {
		out[ts] = v
	}
	return out
}

// NullsToZero returns a copy in which every null value is replaced by 0.
func (d Datapoints) NullsToZero() Datapoints {
	out := make(Datapoints, len(d))
	for ts, v := range d {
		if IsNull(v) {
			v = 0
		}
		out[ts] = v
	}
	return out
}

// Subset returns the datapoints with start <= ts <= end.
func (d Datapoints) Subset(start, end int64) Datapoints {
	out := make(Datapoints)
	for ts, v := range d {
		if ts >= start && ts <= end {
			out[ts] = v
		}
	}
	return out
}

// FromPoints builds datapoints from a slice; later duplicates overwrite earlier ones.
func FromPoints(points []Point) Datapoints {
	out := make(Datapoints, len(points))
	for _, p := range points {
		out[p.Timestamp] = p.Value
	}
	return out
}

// Series is a named, tagged, time-indexed numeric dataset.
type Series struct {
	Scope       string            `json:"scope" yaml:"scope"`
	Name        string            `json:"metric" yaml:"metric"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Units       string            `json:"units,omitempty" yaml:"units,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Datapoints  Datapoints        `json:"datapoints" yaml:"datapoints"`
}

// New creates a series with the given scope, name and datapoints.
func New(scope, name string, dps Datapoints) *Series {
	if dps == nil {
		dps = make(Datapoints)
	}
	return &Series{
		Scope:      scope,
		Name:       name,
		Tags:       make(map[string]string),
		Datapoints: dps,
	}
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	out := s.WithDatapoints(s.Datapoints.Clone())
	return out
}

// WithDatapoints returns a copy of the identity carrying dps.
func (s *Series) WithDatapoints(dps Datapoints) *Series {
	tags := make(map[string]string, len(s.Tags))
	for k, v := range s.Tags {
		tags[k] = v
	}
	if dps == nil {
		dps = make(Datapoints)
	}
	return &Series{
		Scope:       s.Scope,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Units:       s.Units,
		Tags:        tags,
		Datapoints:  dps,
	}
}

// Len returns the number of datapoints.
func (s *Series) Len() int {
	return len(s.Datapoints)
}

// SetTag sets a tag, allocating the map when needed.
func (s *Series) SetTag(key, value string) {
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

// Identity renders scope:name{k=v,...} with tags sorted by key.
func (s *Series) Identity() string {
	var b strings.Builder
	b.WriteString(s.Scope)
	b.WriteByte(':')
	b.WriteString(s.Name)
	if len(s.Tags) > 0 {
		keys := make([]string, 0, len(s.Tags))
		for k := range s.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(s.Tags[k])
		}
		b.WriteByte('}')
	}
	return b.String()
}

// String implements fmt.Stringer.
func (s *Series) String() string {
	return s.Identity()
}
