package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/soltix-transform/internal/analytics/anomaly"
	"github.com/soltixdb/soltix-transform/internal/analytics/forecast"
	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/datastore"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/metadata"
	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/transform"
)

// TransformService evaluates functions over inline or stored series
type TransformService struct {
	logger    *logging.Logger
	engineCfg config.EngineConfig
	store     datastore.Store
	metadata  metadata.Service
}

// NewTransformService creates a new TransformService
func NewTransformService(
	logger *logging.Logger,
	engineCfg config.EngineConfig,
	store datastore.Store,
	metadataService metadata.Service,
) *TransformService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TransformService{
		logger:    logger,
		engineCfg: engineCfg,
		store:     store,
		metadata:  metadataService,
	}
}

// Open builds the datastore and metadata lookup selected by cfg.
func Open(cfg *config.Config, logger *logging.Logger) (*TransformService, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	store, err := datastore.New(cfg.Datastore, cfg.Engine.PageSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}

	meta, err := metadata.New(cfg.Metadata, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}

	logger.Info("Transform service ready",
		"datastore", cfg.Datastore.Type,
		"metadata", cfg.Metadata.Type,
		"max_datapoints", cfg.Engine.MaxDatapoints,
		"timezone", cfg.Engine.Timezone)

	return NewTransformService(logger, cfg.Engine, store, meta), nil
}

// Store returns the backing datastore
func (s *TransformService) Store() datastore.Store {
	return s.store
}

// Functions returns the registered function names
func (s *TransformService) Functions() []string {
	return transform.Names()
}

// Detectors returns the anomaly detectors behind the ANOMALY_* functions
func (s *TransformService) Detectors() []string {
	return anomaly.ListDetectors()
}

// Forecasters returns the models behind the HOLT_WINTERS_* functions
func (s *TransformService) Forecasters() []string {
	return forecast.ListForecasters()
}

// QueryContext builds the evaluation context for [start, end].
func (s *TransformService) QueryContext(ctx context.Context, start, end int64) *transform.QueryContext {
	qc := transform.NewQueryContext(ctx, start, end).ApplyEngineConfig(s.engineCfg)
	qc.Log = s.logger.WithContext(qc.Context())
	if s.store != nil {
		qc.Fetcher = s.store
	}
	if s.metadata != nil {
		qc.Metadata = s.metadata
	}
	return qc
}

// Evaluate applies one function to inline series
func (s *TransformService) Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluateResponse, error) {
	started := time.Now()

	in, err := models.ToSeriesList(req.Series)
	if err != nil {
		return nil, NewServiceError(CodeInvalidRequest, err.Error())
	}

	out, err := s.EvaluateSeries(ctx, req.Function, req.Args, in, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	return s.respond(req.Function, req.Start, req.End, out, started), nil
}

// EvaluateSeries applies one function to already decoded series
func (s *TransformService) EvaluateSeries(ctx context.Context, function string, args []string, in []*series.Series, start, end int64) ([]*series.Series, error) {
	ctx = logging.WithFunction(ctx, function)
	out, err := transform.Evaluate(s.QueryContext(ctx, start, end), function, in, args)
	if err != nil {
		s.logger.Debug("Evaluation rejected", "function", function, "error", err)
		return nil, classify(function, err)
	}
	return out, nil
}

// EvaluateQueries opens a cursor per query and runs a paged scan over them
func (s *TransformService) EvaluateQueries(ctx context.Context, req *models.QueryEvaluateRequest) (*models.EvaluateResponse, error) {
	started := time.Now()
	if s.store == nil {
		return nil, NewServiceError(CodeFetchFailed, "no datastore configured")
	}

	cursors := make([]series.Cursor, 0, len(req.Queries))
	defer func() {
		for _, c := range cursors {
			_ = c.Close()
		}
	}()

	for _, q := range req.Queries {
		if q.Start == 0 && q.End == 0 {
			q.Start, q.End = req.Start, req.End
		}
		c, err := s.store.FetchCursor(ctx, q)
		if err != nil {
			s.logger.Error("Failed to open cursor", "series", q.Identity(), "error", err)
			return nil, NewServiceErrorWithDetails(CodeFetchFailed, "Failed to read series",
				map[string]interface{}{"series": q.Identity(), "error": err.Error()})
		}
		cursors = append(cursors, c)
	}

	qc := s.QueryContext(logging.WithFunction(ctx, req.Function), req.Start, req.End)
	out, err := transform.ScanPaged(qc, req.Function, cursors, req.Args, req.Start, req.End)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, NewServiceError(CodeFetchFailed, err.Error())
		}
		return nil, classify(req.Function, err)
	}

	return s.respond(req.Function, req.Start, req.End, out, started), nil
}

// Write stores series in the datastore
func (s *TransformService) Write(ctx context.Context, in []*series.Series) (int, error) {
	if s.store == nil {
		return 0, NewServiceError(CodeWriteFailed, "no datastore configured")
	}
	points := 0
	for _, ser := range in {
		if err := s.store.Write(ctx, ser); err != nil {
			s.logger.Error("Failed to write series", "series", ser.Identity(), "error", err)
			return points, NewServiceErrorWithDetails(CodeWriteFailed, "Failed to write series",
				map[string]interface{}{"series": ser.Identity(), "error": err.Error()})
		}
		points += ser.Len()
	}
	return points, nil
}

// Close releases the datastore and metadata lookup
func (s *TransformService) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.metadata != nil {
		errs = append(errs, s.metadata.Close())
	}
	return errors.Join(errs...)
}

func (s *TransformService) respond(function string, start, end int64, out []*series.Series, started time.Time) *models.EvaluateResponse {
	latency := time.Since(started)
	s.logger.Info("Evaluation completed",
		"function", function,
		"outputs", len(out),
		"latency_ms", latency.Milliseconds())

	return &models.EvaluateResponse{
		Function: function,
		Start:    start,
		End:      end,
		Series:   models.FromSeriesList(out),
		Count:    len(out),
		TookMs:   latency.Milliseconds(),
	}
}
