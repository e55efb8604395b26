package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/soltix-transform/internal/models"
)

// Health reports liveness. Without a datastore only inline evaluation works,
// which is reported as degraded.
// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	hasStore := h.transformService.Store() != nil
	status := "healthy"
	if !hasStore {
		status = "degraded"
	}

	return c.JSON(models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Functions: len(h.transformService.Functions()),
		Datastore: hasStore,

		Detectors:   h.transformService.Detectors(),
		Forecasters: h.transformService.Forecasters(),
	})
}

// NotFound answers every unmatched route
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.NewErrorResponse("NOT_FOUND", "Route not found").WithPath(c.Path()))
}
