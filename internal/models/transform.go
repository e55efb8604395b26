package models

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/soltix-transform/internal/datastore"
)

// EvaluateRequest applies one function to inline series
type EvaluateRequest struct {
	Function string          `json:"function" yaml:"function"`
	Args     []string        `json:"args,omitempty" yaml:"args,omitempty"`
	Series   []SeriesPayload `json:"series" yaml:"series"`
	Start    int64           `json:"start" yaml:"start"` // epoch milliseconds
	End      int64           `json:"end" yaml:"end"`     // epoch milliseconds
}

// Validate validates the request and fills the range from the series when unset
func (r *EvaluateRequest) Validate() error {
	if err := validateFunction(r.Function); err != nil {
		return err
	}

	for i := range r.Series {
		if err := r.Series[i].Validate(); err != nil {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			}
		}
	}

	if r.Start == 0 && r.End == 0 {
		r.Start, r.End = spanOf(r.Series)
	}

	return validateRange(r.Start, r.End)
}

// QueryEvaluateRequest applies one function to series read from the datastore
type QueryEvaluateRequest struct {
	Function string            `json:"function"`
	Args     []string          `json:"args,omitempty"`
	Queries  []datastore.Query `json:"queries"`
	Start    int64             `json:"start"`
	End      int64             `json:"end"`
}

// Validate validates the request
func (r *QueryEvaluateRequest) Validate() error {
	if err := validateFunction(r.Function); err != nil {
		return err
	}

	if len(r.Queries) == 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "'queries' is required",
		}
	}

	for _, q := range r.Queries {
		if err := q.Validate(); err != nil {
			return &fiber.Error{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			}
		}
	}

	if r.End <= 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "start and end are required",
		}
	}

	return validateRange(r.Start, r.End)
}

// WriteSeriesRequest stores series into the datastore
type WriteSeriesRequest struct {
	Series []SeriesPayload `json:"series"`
}

// EvaluateResponse represents the output of one function evaluation
type EvaluateResponse struct {
	Function string          `json:"function"`
	Start    int64           `json:"start"`
	End      int64           `json:"end"`
	Series   []SeriesPayload `json:"series"`
	Count    int             `json:"count"`
	TookMs   int64           `json:"took_ms"`
}

// FunctionsResponse lists the registered function names
type FunctionsResponse struct {
	Functions []string `json:"functions"`
	Count     int      `json:"count"`
}

// WriteSeriesResponse represents write response
type WriteSeriesResponse struct {
	Accepted  int    `json:"accepted"`
	Points    int    `json:"points"`
	RequestID string `json:"request_id"`
}

func validateFunction(name string) error {
	if strings.TrimSpace(name) == "" {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "'function' is required",
		}
	}
	return nil
}

func validateRange(start, end int64) error {
	if start < 0 || end < 0 {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "start and end must be non-negative epoch milliseconds",
		}
	}
	if end < start {
		return &fiber.Error{
			Code:    fiber.StatusBadRequest,
			Message: "end must be after start",
		}
	}
	return nil
}

// spanOf returns the smallest range covering every datapoint.
func spanOf(in []SeriesPayload) (int64, int64) {
	var start, end int64
	first := true
	for i := range in {
		for ts := range in[i].Datapoints {
			if first || ts < start {
				start = ts
			}
			if first || ts > end {
				end = ts
			}
			first = false
		}
	}
	return start, end
}
