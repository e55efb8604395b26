package models

import (
	"fmt"
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// SeriesPayload is the wire form of a series. Null datapoints are encoded as
// JSON null since NaN has no JSON representation.
type SeriesPayload struct {
	Scope       string             `json:"scope" yaml:"scope"`
	Metric      string             `json:"metric" yaml:"metric"`
	DisplayName string             `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Units       string             `json:"units,omitempty" yaml:"units,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Datapoints  map[int64]*float64 `json:"datapoints" yaml:"datapoints"`
}

// Validate validates the payload
func (p *SeriesPayload) Validate() error {
	if p.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	for ts, v := range p.Datapoints {
		if v != nil && math.IsInf(*v, 0) {
			return fmt.Errorf("datapoint %d of %s is not finite", ts, p.Metric)
		}
	}
	return nil
}

// ToSeries converts the payload to a series.
func (p *SeriesPayload) ToSeries() *series.Series {
	dps := make(series.Datapoints, len(p.Datapoints))
	for ts, v := range p.Datapoints {
		if v == nil {
			dps[ts] = series.Null()
			continue
		}
		dps[ts] = *v
	}
	s := series.New(p.Scope, p.Metric, dps)
	s.DisplayName = p.DisplayName
	s.Units = p.Units
	for k, v := range p.Tags {
		s.SetTag(k, v)
	}
	return s
}

// FromSeries converts a series to its wire form.
func FromSeries(s *series.Series) SeriesPayload {
	p := SeriesPayload{
		Scope:       s.Scope,
		Metric:      s.Name,
		DisplayName: s.DisplayName,
		Units:       s.Units,
		Datapoints:  make(map[int64]*float64, len(s.Datapoints)),
	}
	if len(s.Tags) > 0 {
		p.Tags = make(map[string]string, len(s.Tags))
		for k, v := range s.Tags {
			p.Tags[k] = v
		}
	}
	for ts, v := range s.Datapoints {
		if series.IsNull(v) {
			p.Datapoints[ts] = nil
			continue
		}
		v := v
		p.Datapoints[ts] = &v
	}
	return p
}

// FromSeriesList converts a list of series, preserving order.
func FromSeriesList(in []*series.Series) []SeriesPayload {
	out := make([]SeriesPayload, 0, len(in))
	for _, s := range in {
		out = append(out, FromSeries(s))
	}
	return out
}

// ToSeriesList validates and converts a list of payloads.
func ToSeriesList(in []SeriesPayload) ([]*series.Series, error) {
	out := make([]*series.Series, 0, len(in))
	for i := range in {
		if err := in[i].Validate(); err != nil {
			return nil, fmt.Errorf("series[%d]: %w", i, err)
		}
		out = append(out, in[i].ToSeries())
	}
	return out, nil
}
