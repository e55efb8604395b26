package transform

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/metadata"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// seriesRanker computes the value a filter ranks a series by. Rankers by
// name compare strings; all others compare numbers with nulls last.
type seriesRanker struct {
	byName bool
	value  func(s *series.Series) float64
}

func (r seriesRanker) less(a, b *series.Series, ascending bool) bool {
	if r.byName {
		if ascending {
			return seriesLabel(a) < seriesLabel(b)
		}
		return seriesLabel(a) > seriesLabel(b)
	}
	va, vb := r.value(a), r.value(b)
	switch {
	case math.IsNaN(va):
		return false
	case math.IsNaN(vb):
		return true
	case ascending:
		return va < vb
	default:
		return va > vb
	}
}

func seriesLabel(s *series.Series) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// lookupRanker resolves avg, min, max, recent, name or dev.
func lookupRanker(fn, name string) (seriesRanker, error) {
	values := func(reduce analytics.ReduceFunc) seriesRanker {
		return seriesRanker{value: func(s *series.Series) float64 {
			return reduce(s.Datapoints.Values())
		}}
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avg":
		return values(analytics.Avg), nil
	case "min":
		return values(analytics.Min), nil
	case "max":
		return values(analytics.Max), nil
	case "dev":
		return values(analytics.Dev), nil
	case "recent":
		return seriesRanker{value: mostRecent}, nil
	case "name":
		return seriesRanker{byName: true}, nil
	}
	return seriesRanker{}, argError(fn, "unknown type %q, expected avg|min|max|recent|name|dev", name)
}

// mostRecent returns the latest non-null value.
func mostRecent(s *series.Series) float64 {
	latest, v := int64(math.MinInt64), math.NaN()
	for ts, x := range s.Datapoints {
		if !math.IsNaN(x) && ts >= latest {
			latest, v = ts, x
		}
	}
	return v
}

func sortedBy(in []*series.Series, r seriesRanker, ascending bool) []*series.Series {
	out := make([]*series.Series, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return r.less(out[i], out[j], ascending) })
	return out
}

// topFilter implements HIGHEST and LOWEST.
type topFilter struct {
	name    string
	highest bool
}

func (f topFilter) Prepare(_ *QueryContext, args []string) (FilterFunc, error) {
	if err := checkArity(f.name, args, 1, 2); err != nil {
		return nil, err
	}
	k, err := parseCount(f.name, "count", args[0])
	if err != nil {
		return nil, err
	}
	r, err := lookupRanker(f.name, optionalArg(args, 1, "avg"))
	if err != nil {
		return nil, err
	}
	return func(_ *QueryContext, in []*series.Series) ([]*series.Series, error) {
		out := sortedBy(in, r, !f.highest)
		if k < len(out) {
			out = out[:k]
		}
		return out, nil
	}, nil
}

type sortFilter struct{}

func (sortFilter) Prepare(_ *QueryContext, args []string) (FilterFunc, error) {
	const fn = "SORT"
	if err := checkArity(fn, args, 2, 2); err != nil {
		return nil, err
	}
	r, err := lookupRanker(fn, args[0])
	if err != nil {
		return nil, err
	}
	order, err := parseEnum(fn, "order", args[1], "ascending", "descending")
	if err != nil {
		return nil, err
	}
	return func(_ *QueryContext, in []*series.Series) ([]*series.Series, error) {
		return sortedBy(in, r, order == "ascending"), nil
	}, nil
}

// thresholdFilter implements ABOVE and BELOW. A series whose ranked value
// is null never passes.
type thresholdFilter struct {
	name  string
	above bool
}

func (f thresholdFilter) Prepare(_ *QueryContext, args []string) (FilterFunc, error) {
	if err := checkArity(f.name, args, 1, 2); err != nil {
		return nil, err
	}
	limit, err := parseFloat(f.name, "limit", args[0])
	if err != nil {
		return nil, err
	}
	r, err := lookupRanker(f.name, optionalArg(args, 1, "avg"))
	if err != nil {
		return nil, err
	}
	if r.byName {
		return nil, argError(f.name, "type name cannot be compared with a limit")
	}
	return func(_ *QueryContext, in []*series.Series) ([]*series.Series, error) {
		out := make([]*series.Series, 0, len(in))
		for _, s := range in {
			v := r.value(s)
			if (f.above && v > limit) || (!f.above && v < limit) {
				out = append(out, s)
			}
		}
		return out, nil
	}, nil
}

// regexFilter implements INCLUDE and EXCLUDE on the series name.
type regexFilter struct {
	name    string
	include bool
}

func (f regexFilter) Prepare(_ *QueryContext, args []string) (FilterFunc, error) {
	if err := checkArity(f.name, args, 1, 1); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(args[0])
	if err != nil {
		return nil, argError(f.name, "invalid pattern %q: %v", args[0], err)
	}
	return func(_ *QueryContext, in []*series.Series) ([]*series.Series, error) {
		out := make([]*series.Series, 0, len(in))
		for _, s := range in {
			if re.MatchString(s.Name) == f.include {
				out = append(out, s)
			}
		}
		return out, nil
	}, nil
}

// metadataFilter keeps series whose metadata value for key equals value.
type metadataFilter struct{}

func (metadataFilter) Prepare(qc *QueryContext, args []string) (FilterFunc, error) {
	const fn = "METADATA_FILTER"
	if err := checkArity(fn, args, 2, 3); err != nil {
		return nil, err
	}
	key, value := args[0], args[1]
	extractor := strings.ToLower(optionalArg(args, 2, metadata.ExtractorTag))
	if qc.Metadata == nil && extractor != metadata.ExtractorTag {
		return nil, argError(fn, "no metadata lookup configured for extractor %q", extractor)
	}
	return func(qc *QueryContext, in []*series.Series) ([]*series.Series, error) {
		lookup := qc.Metadata
		if lookup == nil {
			lookup = tagLookup{}
		}
		out := make([]*series.Series, 0, len(in))
		for _, s := range in {
			ok, err := lookup.IsMetadataEqual(qc.Context(), s, key, value, extractor)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, s)
			}
		}
		return out, nil
	}, nil
}

// tagLookup answers tag comparisons without a metadata service.
type tagLookup struct{}

func (tagLookup) IsMetadataEqual(_ context.Context, s *series.Series, key, value, _ string) (bool, error) {
	v, ok := s.Tags[key]
	return ok && v == value, nil
}
