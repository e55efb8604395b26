package models

// HealthResponse reports liveness and what the process can serve
type HealthResponse struct {
	Status    string `json:"status"` // healthy, or degraded without a datastore
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Functions int    `json:"functions"`
	Datastore bool   `json:"datastore"`

	Detectors   []string `json:"detectors"`
	Forecasters []string `json:"forecasters"`
}

// ErrorResponse is the JSON error envelope of every HTTP failure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code plus a human readable message
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse builds an envelope for code and message
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// WithPath records the request path
func (r ErrorResponse) WithPath(path string) ErrorResponse {
	r.Error.Path = path
	return r
}

// WithDetails attaches structured details; an empty map is dropped
func (r ErrorResponse) WithDetails(details map[string]interface{}) ErrorResponse {
	if len(details) > 0 {
		r.Error.Details = details
	}
	return r
}
