package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
)

var registry = map[string]func() Transform{
	"IDENTITY":   func() Transform { return identityTransform{} },
	"ALIAS":      func() Transform { return NewMapping("ALIAS", aliasMapping{}) },
	"ALIASBYTAG": func() Transform { return NewMapping("ALIASBYTAG", aliasByTagMapping{}) },
	"JOIN":       func() Transform { return joinTransform{} },
	"LIMIT":      func() Transform { return limitTransform{} },

	"ABSOLUTE":       newAbsolute,
	"LOG":            func() Transform { return NewMapping("LOG", logMapping{}) },
	"SHIFT":          func() Transform { return NewMapping("SHIFT", shiftMapping{}) },
	"CULL_ABOVE":     func() Transform { return NewMapping("CULL_ABOVE", cullMapping{name: "CULL_ABOVE", above: true}) },
	"CULL_BELOW":     func() Transform { return NewMapping("CULL_BELOW", cullMapping{name: "CULL_BELOW"}) },
	"SLICE":          func() Transform { return NewMapping("SLICE", sliceMapping{}) },
	"FILL_CALCULATE": func() Transform { return NewMapping("FILL_CALCULATE", fillCalculateMapping{}) },
	"NORMALIZE":      func() Transform { return normalizeTransform{} },

	"AVERAGE":   func() Transform { return NewReducer("AVERAGE", ReduceFunc(analytics.Avg), 1) },
	"MIN":       func() Transform { return NewReducer("MIN", ReduceFunc(analytics.Min), 1) },
	"MAX":       func() Transform { return NewReducer("MAX", ReduceFunc(analytics.Max), 1) },
	"DEVIATION": func() Transform { return NewReducer("DEVIATION", ReduceFunc(analytics.Dev), 1) },
	"MEDIAN":    func() Transform { return NewReducer("MEDIAN", ReduceFunc(analytics.Median), 1) },
	"RANGE":     func() Transform { return NewReducer("RANGE", ReduceFunc(analytics.Range), 1) },

	"SUM":        func() Transform { return NewReducerOrMapping("SUM", sumPolicy) },
	"DIFF":       func() Transform { return NewReducerOrMapping("DIFF", diffPolicy) },
	"SCALE":      func() Transform { return NewReducerOrMapping("SCALE", scalePolicy) },
	"MULTIPLY":   func() Transform { return NewReducerOrMapping("MULTIPLY", scalePolicy) },
	"DIVIDE":     func() Transform { return NewReducerOrMapping("DIVIDE", dividePolicy) },
	"PERCENTILE": func() Transform { return NewReducerOrMapping("PERCENTILE", percentilePolicy{}) },

	"SUM_V":    func() Transform { return NewZipper("SUM_V", ZipFunc(zipSum)) },
	"DIFF_V":   func() Transform { return NewZipper("DIFF_V", ZipFunc(zipDiff)) },
	"SCALE_V":  func() Transform { return NewZipper("SCALE_V", ZipFunc(zipScale)) },
	"DIVIDE_V": func() Transform { return NewZipper("DIVIDE_V", ZipFunc(zipDivide)) },

	"UNION":            func() Transform { return NewUnion("UNION", UnionFunc(unionFirst)) },
	"COUNT":            func() Transform { return NewUnion("COUNT", UnionFunc(unionCount)) },
	"ZEROIFMISSINGSUM": func() Transform { return NewUnion("ZEROIFMISSINGSUM", UnionFunc(unionSum)) },

	"HIGHEST":         func() Transform { return NewFilter("HIGHEST", topFilter{name: "HIGHEST", highest: true}) },
	"LOWEST":          func() Transform { return NewFilter("LOWEST", topFilter{name: "LOWEST"}) },
	"SORT":            func() Transform { return NewFilter("SORT", sortFilter{}) },
	"ABOVE":           func() Transform { return NewFilter("ABOVE", thresholdFilter{name: "ABOVE", above: true}) },
	"BELOW":           func() Transform { return NewFilter("BELOW", thresholdFilter{name: "BELOW"}) },
	"INCLUDE":         func() Transform { return NewFilter("INCLUDE", regexFilter{name: "INCLUDE", include: true}) },
	"EXCLUDE":         func() Transform { return NewFilter("EXCLUDE", regexFilter{name: "EXCLUDE"}) },
	"METADATA_FILTER": func() Transform { return NewFilter("METADATA_FILTER", metadataFilter{}) },

	"MOVING":            newMoving,
	"DOWNSAMPLE":        func() Transform { return NewMapping("DOWNSAMPLE", downsampleMapping{}) },
	"DERIVATIVE":        newDerivative,
	"INTEGRAL":          newIntegral,
	"RATE":              func() Transform { return NewMapping("RATE", rateMapping{}) },
	"PROPAGATE":         func() Transform { return NewMapping("PROPAGATE", propagateMapping{}) },
	"FILL":              func() Transform { return fillTransform{} },
	"REDUCE_DATAPOINTS": func() Transform { return NewMapping("REDUCE_DATAPOINTS", reduceDatapointsMapping{}) },

	"INTERPOLATE": func() Transform { return interpolateTransform{} },

	"ANOMALY_DENSITY": func() Transform { return anomalyTransform{name: "ANOMALY_DENSITY", detector: "density"} },
	"ANOMALY_ZSCORE":  func() Transform { return anomalyTransform{name: "ANOMALY_ZSCORE", detector: "zscore"} },
	"ANOMALY_KMEANS":  func() Transform { return anomalyTransform{name: "ANOMALY_KMEANS", detector: "kmeans"} },
	"ANOMALY_RPCA":    func() Transform { return anomalyTransform{name: "ANOMALY_RPCA", detector: "rpca"} },
	"ANOMALY_STL":     func() Transform { return anomalyTransform{name: "ANOMALY_STL", detector: "stl"} },
	"ANOMALY_CONTEXTUAL_DENSITY": func() Transform {
		return anomalyTransform{name: "ANOMALY_CONTEXTUAL_DENSITY", detector: "density", contextual: true}
	},
	"ANOMALY_CONTEXTUAL_ZSCORE": func() Transform {
		return anomalyTransform{name: "ANOMALY_CONTEXTUAL_ZSCORE", detector: "zscore", contextual: true}
	},
	"ANOMALY_CONTEXTUAL_KMEANS": func() Transform {
		return anomalyTransform{name: "ANOMALY_CONTEXTUAL_KMEANS", detector: "kmeans", contextual: true}
	},
	"ANOMALY_CONTEXTUAL_RPCA": func() Transform {
		return anomalyTransform{name: "ANOMALY_CONTEXTUAL_RPCA", detector: "rpca", contextual: true}
	},
	"ANOMALY_CONTEXTUAL_STL": func() Transform {
		return anomalyTransform{name: "ANOMALY_CONTEXTUAL_STL", detector: "stl", contextual: true}
	},
	"HOLT_WINTERS_FORECAST":  func() Transform { return holtWintersTransform{name: "HOLT_WINTERS_FORECAST"} },
	"HOLT_WINTERS_DEVIATION": func() Transform { return holtWintersTransform{name: "HOLT_WINTERS_DEVIATION", deviation: true} },
}

// Lookup returns the transform registered under name, ignoring case.
func Lookup(name string) (Transform, error) {
	factory, ok := registry[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return factory(), nil
}

// Names returns every registered function name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate runs the named function over materialized series.
func Evaluate(qc *QueryContext, name string, in []*series.Series, args []string) ([]*series.Series, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	out, err := t.Apply(qc, in, args)
	if err != nil {
		return nil, err
	}
	qc.Logger().Debug("Evaluated transform",
		"function", t.Name(),
		"inputs", len(in),
		"outputs", len(out),
		"duration", time.Since(started).String())
	return out, nil
}
