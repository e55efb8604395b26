// Package services provides the business logic layer between the transport
// surfaces (HTTP, gRPC, CLI, ingest) and the transform engine.
package services

import (
	"errors"

	"github.com/soltixdb/soltix-transform/internal/transform"
)

// Error codes returned by the service layer
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInsufficientSeries = "INSUFFICIENT_SERIES"
	CodeUnknownFunction    = "UNKNOWN_FUNCTION"
	CodeFetchFailed        = "FETCH_FAILED"
	CodeWriteFailed        = "WRITE_FAILED"
	CodeEvaluationFailed   = "EVALUATION_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the error that caused e, if any.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// classify wraps a transform error with the matching code.
func classify(function string, err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	code := CodeEvaluationFailed
	switch {
	case errors.Is(err, transform.ErrUnknownFunction):
		code = CodeUnknownFunction
	case errors.Is(err, transform.ErrInvalidArgument):
		code = CodeInvalidArgument
	case errors.Is(err, transform.ErrInsufficientSeries):
		code = CodeInsufficientSeries
	}

	return &ServiceError{
		Code:    code,
		Message: err.Error(),
		Details: map[string]interface{}{"function": function},
		cause:   err,
	}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case CodeInvalidRequest, CodeInvalidArgument, CodeInsufficientSeries, CodeUnknownFunction:
		return true
	}
	return false
}
