package transform

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// SeriesMapper transforms one series. It must not modify its input.
type SeriesMapper func(s *series.Series) (*series.Series, error)

// ValueMapping is the policy of a per-series mapping. Prepare validates the
// arguments once per invocation.
type ValueMapping interface {
	Prepare(qc *QueryContext, args []string) (SeriesMapper, error)
}

// NullPreserving is implemented by mappings that see null values as NaN
// instead of having them replaced by 0 first.
type NullPreserving interface {
	PreservesNulls() bool
}

// MappingTransform applies a ValueMapping to each input series.
type MappingTransform struct {
	name    string
	mapping ValueMapping
}

// NewMapping creates a mapping transform.
func NewMapping(name string, m ValueMapping) *MappingTransform {
	return &MappingTransform{name: name, mapping: m}
}

// Name implements Transform.
func (t *MappingTransform) Name() string { return t.name }

// Apply implements Transform.
func (t *MappingTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	fn, err := t.mapping.Prepare(qc, args)
	if err != nil {
		return nil, err
	}
	return mapAll(in, fn, preservesNulls(t.mapping))
}

func preservesNulls(v interface{}) bool {
	np, ok := v.(NullPreserving)
	return ok && np.PreservesNulls()
}

func mapAll(in []*series.Series, fn SeriesMapper, keepNulls bool) ([]*series.Series, error) {
	out := make([]*series.Series, 0, len(in))
	for _, s := range in {
		src := s
		if !keepNulls {
			src = s.WithDatapoints(s.Datapoints.NullsToZero())
		}
		r, err := fn(src)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// pointMapper builds a mapper from a per-point function; keep=false drops
// the point.
func pointMapper(f func(ts int64, v float64) (int64, float64, bool)) SeriesMapper {
	return func(s *series.Series) (*series.Series, error) {
		out := make(series.Datapoints, len(s.Datapoints))
		for ts, v := range s.Datapoints {
			if nts, nv, keep := f(ts, v); keep {
				out[nts] = nv
			}
		}
		return s.WithDatapoints(out), nil
	}
}

// ValueReducer collapses the values collated at one timestamp. A NaN result
// omits the timestamp.
type ValueReducer interface {
	Reduce(values []float64) float64
}

// ReduceFunc adapts a function to ValueReducer.
type ReduceFunc func(values []float64) float64

// Reduce implements ValueReducer.
func (f ReduceFunc) Reduce(values []float64) float64 { return f(values) }

// ReducerTransform reduces N series to one.
type ReducerTransform struct {
	name      string
	reducer   ValueReducer
	minSeries int
	fullJoin  bool
}

// NewReducer creates a reducer transform that needs at least minSeries inputs.
func NewReducer(name string, r ValueReducer, minSeries int) *ReducerTransform {
	if minSeries < 1 {
		minSeries = 1
	}
	return &ReducerTransform{name: name, reducer: r, minSeries: minSeries}
}

// AlwaysFullJoin makes the reducer ignore the join argument and keep every timestamp.
func (t *ReducerTransform) AlwaysFullJoin() *ReducerTransform {
	t.fullJoin = true
	return t
}

// Name implements Transform.
func (t *ReducerTransform) Name() string { return t.name }

// Apply implements Transform. An empty input list is returned as is.
func (t *ReducerTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	rest, union := stripUnion(args)
	if err := checkArity(t.name, rest, 0, 0); err != nil {
		return nil, err
	}
	return reduceSeries(t.name, in, t.reducer, t.minSeries, union || t.fullJoin)
}

func reduceSeries(fn string, in []*series.Series, r ValueReducer, minSeries int, fullJoin bool) ([]*series.Series, error) {
	if len(in) == 0 {
		return []*series.Series{}, nil
	}
	if len(in) < minSeries {
		return nil, seriesError(fn, minSeries, len(in))
	}

	dps := make(series.Datapoints)
	for ts, values := range Collate(in, fullJoin) {
		v := r.Reduce(values)
		if math.IsNaN(v) {
			continue
		}
		dps[ts] = v
	}
	out := series.DistillOrDefault(in)
	out.Datapoints = dps
	return []*series.Series{out}, nil
}

// ValueReducerOrMapping serves both as a reducer (no constants) and as a
// mapping (one or more constants). The first Params arguments are shared by
// both modes.
type ValueReducerOrMapping interface {
	Params() int
	MinSeries() int
	PrepareReduce(qc *QueryContext, params []string) (ValueReducer, error)
	PrepareMap(qc *QueryContext, params, constants []string) (SeriesMapper, error)
}

// ReducerOrMappingTransform picks the mode from the argument count.
type ReducerOrMappingTransform struct {
	name   string
	policy ValueReducerOrMapping
}

// NewReducerOrMapping creates a reducer-or-mapping transform.
func NewReducerOrMapping(name string, p ValueReducerOrMapping) *ReducerOrMappingTransform {
	return &ReducerOrMappingTransform{name: name, policy: p}
}

// Name implements Transform.
func (t *ReducerOrMappingTransform) Name() string { return t.name }

// Apply implements Transform.
func (t *ReducerOrMappingTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	rest, union := stripUnion(args)
	n := t.policy.Params()
	if len(rest) < n {
		return nil, argError(t.name, "expects at least %d argument(s), got %d", n, len(rest))
	}
	params, constants := rest[:n], rest[n:]

	if len(constants) == 0 {
		r, err := t.policy.PrepareReduce(qc, params)
		if err != nil {
			return nil, err
		}
		return reduceSeries(t.name, in, r, t.policy.MinSeries(), union)
	}

	if union {
		return nil, argError(t.name, "%s only applies when reducing", UnionArg)
	}
	fn, err := t.policy.PrepareMap(qc, params, constants)
	if err != nil {
		return nil, err
	}
	return mapAll(in, fn, preservesNulls(t.policy))
}

// ValueZipper combines one original value with the base value at the same
// timestamp. A missing side arrives as NaN; a NaN result omits the point.
type ValueZipper interface {
	Zip(original, base float64) float64
}

// ZipFunc adapts a function to ValueZipper.
type ZipFunc func(original, base float64) float64

// Zip implements ValueZipper.
func (f ZipFunc) Zip(original, base float64) float64 { return f(original, base) }

// ZipperTransform zips series 1..n-1 against the last series.
type ZipperTransform struct {
	name   string
	zipper ValueZipper
}

// NewZipper creates a zipper transform.
func NewZipper(name string, z ValueZipper) *ZipperTransform {
	return &ZipperTransform{name: name, zipper: z}
}

// Name implements Transform.
func (t *ZipperTransform) Name() string { return t.name }

// Apply implements Transform. The base is the last input; each other input
// keeps its identity and its own timestamps (plus base-only ones with UNION).
func (t *ZipperTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	rest, union := stripUnion(args)
	if err := checkArity(t.name, rest, 0, 0); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return []*series.Series{}, nil
	}
	if len(in) < 2 {
		return nil, seriesError(t.name, 2, len(in))
	}

	base := in[len(in)-1]
	out := make([]*series.Series, 0, len(in)-1)
	for _, orig := range in[:len(in)-1] {
		dps := make(series.Datapoints, len(orig.Datapoints))
		emit := func(ts int64) {
			o, ok := orig.Datapoints[ts]
			if !ok {
				o = math.NaN()
			}
			b, ok := base.Datapoints[ts]
			if !ok {
				b = math.NaN()
			}
			if v := t.zipper.Zip(o, b); !math.IsNaN(v) {
				dps[ts] = v
			}
		}
		for ts := range orig.Datapoints {
			emit(ts)
		}
		if union {
			for ts := range base.Datapoints {
				if _, ok := orig.Datapoints[ts]; !ok {
					emit(ts)
				}
			}
		}
		out = append(out, orig.WithDatapoints(dps))
	}
	return out, nil
}

// FilterFunc selects and orders series.
type FilterFunc func(qc *QueryContext, in []*series.Series) ([]*series.Series, error)

// ValueFilter is the policy of a filter transform.
type ValueFilter interface {
	Prepare(qc *QueryContext, args []string) (FilterFunc, error)
}

// FilterTransform applies a ValueFilter to the whole input list.
type FilterTransform struct {
	name   string
	filter ValueFilter
}

// NewFilter creates a filter transform.
func NewFilter(name string, f ValueFilter) *FilterTransform {
	return &FilterTransform{name: name, filter: f}
}

// Name implements Transform.
func (t *FilterTransform) Name() string { return t.name }

// Apply implements Transform.
func (t *FilterTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	fn, err := t.filter.Prepare(qc, args)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return []*series.Series{}, nil
	}
	return fn(qc, in)
}

// ValueUnionReducer synthesizes the output value at a timestamp from the
// values present there, in input order.
type ValueUnionReducer interface {
	Synthesize(values []float64) float64
}

// UnionFunc adapts a function to ValueUnionReducer.
type UnionFunc func(values []float64) float64

// Synthesize implements ValueUnionReducer.
func (f UnionFunc) Synthesize(values []float64) float64 { return f(values) }

// UnionTransform merges the timestamp sets of all inputs.
type UnionTransform struct {
	name    string
	reducer ValueUnionReducer
}

// NewUnion creates a union transform.
func NewUnion(name string, r ValueUnionReducer) *UnionTransform {
	return &UnionTransform{name: name, reducer: r}
}

// Name implements Transform.
func (t *UnionTransform) Name() string { return t.name }

// Apply implements Transform.
func (t *UnionTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	rest, _ := stripUnion(args)
	if err := checkArity(t.name, rest, 0, 0); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return []*series.Series{}, nil
	}

	dps := make(series.Datapoints)
	for ts, values := range Collate(in, true) {
		if v := t.reducer.Synthesize(present(values)); !math.IsNaN(v) {
			dps[ts] = v
		}
	}
	out := series.DistillOrDefault(in)
	out.Datapoints = dps
	return []*series.Series{out}, nil
}
