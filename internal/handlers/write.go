package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/models"
)

// WriteSeries stores series in the datastore so they can be queried later
// POST /v1/series
func (h *Handler) WriteSeries(c *fiber.Ctx) error {
	var req models.WriteSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	if len(req.Series) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.NewErrorResponse("INVALID_REQUEST", "'series' must contain at least one series"))
	}

	in, err := models.ToSeriesList(req.Series)
	if err != nil {
		return invalidRequest(c, err)
	}

	points, err := h.transformService.Write(c.UserContext(), in)
	if err != nil {
		return h.serviceError(c, err)
	}

	logging.InfoCtx(c.UserContext(), "Series accepted", "series", len(in), "points", points)

	requestID := logging.RequestID(c.UserContext())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return c.Status(fiber.StatusAccepted).JSON(models.WriteSeriesResponse{
		Accepted:  len(in),
		Points:    points,
		RequestID: requestID,
	})
}
