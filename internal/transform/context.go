package transform

import (
	"context"
	"time"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/datastore"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/metadata"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// QueryContext carries what a transform may need beyond its inputs: the
// requested time range, collaborators and engine limits. It is read-only
// during evaluation; WithRange returns a modified copy.
type QueryContext struct {
	Ctx context.Context

	// Start and End bound the requested output, in epoch milliseconds.
	Start int64
	End   int64

	Fetcher  datastore.Fetcher
	Metadata metadata.Lookup
	Location *time.Location
	Log      *logging.Logger

	MaxDatapoints       int
	RPCAMaxIterations   int
	KMeansMaxIterations int
	RandomSeed          int64
	BootstrapWindow     int64 // milliseconds
	PageSize            int
}

// NewQueryContext returns a context with default limits and no collaborators.
func NewQueryContext(ctx context.Context, start, end int64) *QueryContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &QueryContext{
		Ctx:                 ctx,
		Start:               start,
		End:                 end,
		Location:            time.UTC,
		Log:                 logging.Nop(),
		MaxDatapoints:       utils.DefaultMaxDatapoints,
		RPCAMaxIterations:   utils.DefaultRPCAMaxIterations,
		KMeansMaxIterations: utils.DefaultKMeansMaxIterations,
		RandomSeed:          1,
		BootstrapWindow:     utils.DefaultBootstrapWindow.Milliseconds(),
		PageSize:            utils.DefaultPageSize,
	}
}

// ApplyEngineConfig copies the engine limits from cfg.
func (qc *QueryContext) ApplyEngineConfig(cfg config.EngineConfig) *QueryContext {
	out := *qc
	if cfg.MaxDatapoints > 0 {
		out.MaxDatapoints = cfg.MaxDatapoints
	}
	if cfg.RPCAMaxIterations > 0 {
		out.RPCAMaxIterations = cfg.RPCAMaxIterations
	}
	if cfg.KMeansMaxIterations > 0 {
		out.KMeansMaxIterations = cfg.KMeansMaxIterations
	}
	if cfg.BootstrapWindow > 0 {
		out.BootstrapWindow = cfg.BootstrapWindow.Milliseconds()
	}
	if cfg.PageSize > 0 {
		out.PageSize = cfg.PageSize
	}
	out.RandomSeed = cfg.RandomSeed
	out.Location = cfg.GetLocation()
	return &out
}

// WithRange returns a copy covering [start, end].
func (qc *QueryContext) WithRange(start, end int64) *QueryContext {
	out := *qc
	out.Start = start
	out.End = end
	return &out
}

// Context returns the request context, never nil.
func (qc *QueryContext) Context() context.Context {
	if qc == nil || qc.Ctx == nil {
		return context.Background()
	}
	return qc.Ctx
}

// Logger returns the logger, never nil.
func (qc *QueryContext) Logger() *logging.Logger {
	if qc == nil || qc.Log == nil {
		return logging.Nop()
	}
	return qc.Log
}

func (qc *QueryContext) location() *time.Location {
	if qc.Location == nil {
		return time.UTC
	}
	return qc.Location
}

// checkSize fails when a transform would synthesize more than MaxDatapoints.
func (qc *QueryContext) checkSize(fn string, n int64) error {
	if qc.MaxDatapoints > 0 && n > int64(qc.MaxDatapoints) {
		return argError(fn, "would produce %d datapoints, limit is %d", n, qc.MaxDatapoints)
	}
	return nil
}
