package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/services"
)

// TransformHandler implements TransformServer on top of the service layer
type TransformHandler struct {
	logger  *logging.Logger
	service *services.TransformService
}

// NewTransformHandler creates a new TransformHandler
func NewTransformHandler(svc *services.TransformService, logger *logging.Logger) *TransformHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TransformHandler{logger: logger, service: svc}
}

// Evaluate handles inline evaluation
func (h *TransformHandler) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.EvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	resp, err := h.service.Evaluate(ctx, &req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

// EvaluateQuery handles evaluation over stored series
func (h *TransformHandler) EvaluateQuery(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.QueryEvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	resp, err := h.service.EvaluateQueries(ctx, &req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

// Functions lists the registered function names
func (h *TransformHandler) Functions(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	names := h.service.Functions()
	values := make([]interface{}, len(names))
	for i, n := range names {
		values[i] = n
	}
	return structpb.NewList(values)
}

// fromStruct decodes a Struct through its JSON form. Numbers travel as
// doubles, which is exact for epoch milliseconds.
func fromStruct(in *structpb.Struct, out interface{}) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// toStatus maps validation and service errors to gRPC status codes.
func toStatus(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return status.Error(codes.InvalidArgument, fe.Message)
	}

	var se *services.ServiceError
	if !errors.As(err, &se) {
		return status.Error(codes.Internal, err.Error())
	}

	code := codes.Internal
	switch se.Code {
	case services.CodeUnknownFunction:
		code = codes.NotFound
	case services.CodeInvalidRequest, services.CodeInvalidArgument, services.CodeInsufficientSeries:
		code = codes.InvalidArgument
	case services.CodeFetchFailed, services.CodeWriteFailed:
		code = codes.Unavailable
	}
	return status.Error(code, se.Code+": "+se.Message)
}
