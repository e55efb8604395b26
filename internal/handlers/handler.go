package handlers

import (
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger  *logging.Logger
	version string
	// Services
	transformService *services.TransformService
}

// New creates a new handler instance
func New(logger *logging.Logger, transformService *services.TransformService, version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{
		logger:           logger,
		version:          version,
		transformService: transformService,
	}
}
