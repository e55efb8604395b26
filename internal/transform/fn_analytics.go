package transform

import (
	"sort"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/analytics/anomaly"
	"github.com/soltixdb/soltix-transform/internal/analytics/forecast"
	"github.com/soltixdb/soltix-transform/internal/datastore"
	"github.com/soltixdb/soltix-transform/internal/interpolation"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// interpolateTransform aligns all inputs on the union of their timestamps,
// optionally reducing the aligned set to one series.
type interpolateTransform struct{}

func (interpolateTransform) Name() string { return "INTERPOLATE" }

func (interpolateTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	const fn = "INTERPOLATE"
	if err := checkArity(fn, args, 0, 1); err != nil {
		return nil, err
	}
	var reduce analytics.ReduceFunc
	if len(args) == 1 {
		name, err := parseEnum(fn, "reducer", args[0], "sum", "avg", "min", "max", "dev", "count")
		if err != nil {
			return nil, err
		}
		if reduce, err = analytics.LookupReducer(name); err != nil {
			return nil, argError(fn, "%v", err)
		}
	}

	aligned := interpolation.Interpolate(in)
	if reduce == nil {
		return aligned, nil
	}
	return reduceSeries(fn, aligned, ReduceFunc(reduce), 1, false)
}

// anomalyTransform scores every input series with a detector. Null values
// are skipped.
type anomalyTransform struct {
	name       string
	detector   string
	contextual bool
}

func (t anomalyTransform) Name() string { return t.name }

func (t anomalyTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	det, cfg, err := t.prepare(qc, args)
	if err != nil {
		return nil, err
	}
	out := make([]*series.Series, 0, len(in))
	for _, s := range in {
		scores, err := det.Score(nonNullPoints(s.Datapoints), cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s.WithDatapoints(scores.ToDatapoints()))
	}
	qc.Logger().Debug("Scored series", "function", t.name, "series", len(out))
	return out, nil
}

func (t anomalyTransform) prepare(qc *QueryContext, args []string) (anomaly.Detector, anomaly.DetectorConfig, error) {
	cfg := anomaly.DefaultConfig()
	det, err := anomaly.GetDetector(t.detector)
	if err != nil {
		return nil, cfg, argError(t.name, "%v", err)
	}

	rest := args
	var window int64
	if t.contextual {
		if len(rest) == 0 {
			return nil, cfg, argError(t.name, "expects a window argument")
		}
		if window, err = parseWindow(t.name, "window", rest[0]); err != nil {
			return nil, cfg, err
		}
		rest = rest[1:]
	}

	switch t.detector {
	case "zscore", "density":
		err = checkArity(t.name, rest, 0, 0)
	case "kmeans":
		cfg.MaxIterations = qc.KMeansMaxIterations
		if err = checkArity(t.name, rest, 1, 1); err == nil {
			cfg.K, err = parseCount(t.name, "k", rest[0])
			if err == nil && cfg.K < 1 {
				err = argError(t.name, "k must be at least 1")
			}
		}
	case "rpca":
		cfg.MaxIterations = qc.RPCAMaxIterations
		if err = checkArity(t.name, rest, 1, 1); err == nil {
			err = t.parseSeason(rest[0], &cfg)
		}
	case "stl":
		if err = checkArity(t.name, rest, 0, 2); err != nil {
			break
		}
		for _, arg := range rest {
			if strings.EqualFold(strings.TrimSpace(arg), "raw") {
				cfg.Raw = true
				continue
			}
			if err = t.parseSeason(arg, &cfg); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, cfg, err
	}

	if t.contextual {
		ctx, err := anomaly.NewContextual(det, window)
		if err != nil {
			return nil, cfg, argError(t.name, "%v", err)
		}
		return ctx, cfg, nil
	}
	return det, cfg, nil
}

func (t anomalyTransform) parseSeason(arg string, cfg *anomaly.DetectorConfig) error {
	if err := anomaly.ParseSeason(strings.TrimSpace(arg), cfg); err != nil {
		return argError(t.name, "%v", err)
	}
	return nil
}

// holtWintersTransform runs additive Holt-Winters over a bootstrap window
// preceding the query followed by the series itself.
type holtWintersTransform struct {
	name      string
	deviation bool
}

func (t holtWintersTransform) Name() string { return t.name }

func (t holtWintersTransform) Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	if err := checkArity(t.name, args, 4, 4); err != nil {
		return nil, err
	}
	var factors [3]float64
	for i, what := range []string{"alpha", "beta", "gamma"} {
		v, err := parseFloat(t.name, what, args[i])
		if err != nil {
			return nil, err
		}
		factors[i] = v
	}
	var season anomaly.DetectorConfig
	if err := anomaly.ParseSeason(strings.TrimSpace(args[3]), &season); err != nil {
		return nil, argError(t.name, "%v", err)
	}
	model, err := forecast.GetForecaster("holt_winters")
	if err != nil {
		return nil, err
	}

	out := make([]*series.Series, 0, len(in))
	for _, s := range in {
		bootstrap, err := t.bootstrap(qc, s)
		if err != nil {
			return nil, err
		}
		own := s.Datapoints.Points()
		if len(own) > 0 {
			bootstrap = before(bootstrap, own[0].Timestamp)
		}
		all := append(bootstrap, own...)

		cfg := forecast.Config{
			Alpha:        factors[0],
			Beta:         factors[1],
			Gamma:        factors[2],
			SeasonLength: anomaly.SeasonFrequency(all, season),
		}
		if cfg.SeasonLength < 1 {
			cfg.SeasonLength = 1
		}
		res, err := model.Analyze(analytics.Values(all), cfg)
		if err != nil {
			return nil, argError(t.name, "%v", err)
		}

		values := res.Forecast
		if t.deviation {
			values = res.Deviation
		}
		dps := make(series.Datapoints, len(own))
		for i, p := range own {
			if v := values[len(bootstrap)+i]; !series.IsNull(v) {
				dps[p.Timestamp] = v
			}
		}
		out = append(out, s.WithDatapoints(dps))
	}
	return out, nil
}

// bootstrap fetches the history before the query start. Without a fetcher,
// or when the query starts at the epoch, the model starts from the series
// itself.
func (t holtWintersTransform) bootstrap(qc *QueryContext, s *series.Series) ([]series.Point, error) {
	if qc.Fetcher == nil || qc.BootstrapWindow <= 0 || qc.Start-1 <= 0 {
		return nil, nil
	}
	q := datastore.QueryFor(s, qc.Start-qc.BootstrapWindow, qc.Start-1)
	hist, err := qc.Fetcher.FetchSeries(qc.Context(), q)
	if err != nil {
		return nil, err
	}
	qc.Logger().Debug("Fetched forecast bootstrap", "series", s.Identity(), "points", hist.Len())
	return hist.Datapoints.Points(), nil
}

// before returns the leading points older than ts.
func before(points []series.Point, ts int64) []series.Point {
	i := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= ts })
	return points[:i]
}
