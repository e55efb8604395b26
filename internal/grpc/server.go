package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/services"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// RequestIDKey is the metadata key carrying the request id
const RequestIDKey = "x-request-id"

// Server represents the transform gRPC server
type Server struct {
	address    string
	grpcServer *grpc.Server
	logger     *logging.Logger
	handler    *TransformHandler
}

// NewServer creates a gRPC server serving svc on address
func NewServer(address string, svc *services.TransformService, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		address: address,
		logger:  logger,
		handler: NewTransformHandler(svc, logger),
	}

	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(utils.GRPCMaxMessageSize),
		grpc.MaxSendMsgSize(utils.GRPCMaxMessageSize),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor),
	)
	RegisterTransformServer(s.grpcServer, s.handler)
	return s
}

// Start listens on the server address and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	s.logger.Info("gRPC server starting", "address", s.address)

	go func() {
		if err := s.Serve(listener); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()

	<-ctx.Done()
	s.logger.Info("Shutting down gRPC server")
	s.Stop()
	return nil
}

// Serve serves on an existing listener
func (s *Server) Serve(listener net.Listener) error {
	return s.grpcServer.Serve(listener)
}

// Stop stops the gRPC server gracefully
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// loggingInterceptor attaches a request id to the context and logs each call.
func (s *Server) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDKey); len(ids) > 0 {
			requestID = ids[0]
		}
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx = logging.WithRequestID(ctx, requestID)

	start := time.Now()
	resp, err := handler(ctx, req)

	fields := []interface{}{
		"method", info.FullMethod,
		"request_id", requestID,
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields = append(fields, "code", status.Code(err).String(), "error", err)
		s.logger.Warn("gRPC call failed", fields...)
	} else {
		s.logger.Debug("gRPC call completed", fields...)
	}
	return resp, err
}
