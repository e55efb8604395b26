package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/services"
)

// ListFunctions returns every registered function name
// GET /v1/functions
func (h *Handler) ListFunctions(c *fiber.Ctx) error {
	names := h.transformService.Functions()
	return c.JSON(models.FunctionsResponse{
		Functions: names,
		Count:     len(names),
	})
}

// Evaluate applies a function to series carried in the body
// POST /v1/evaluate
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	if err := req.Validate(); err != nil {
		return invalidRequest(c, err)
	}

	result, err := h.transformService.Evaluate(c.UserContext(), &req)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(result)
}

// EvaluateQuery applies a function to series read from the datastore
// POST /v1/evaluate/query
func (h *Handler) EvaluateQuery(c *fiber.Ctx) error {
	var req models.QueryEvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	if err := req.Validate(); err != nil {
		return invalidRequest(c, err)
	}

	result, err := h.transformService.EvaluateQueries(c.UserContext(), &req)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.JSON(result)
}

func invalidJSON(c *fiber.Ctx, err error) error {
	resp := models.NewErrorResponse("INVALID_JSON", "Failed to parse JSON body").
		WithDetails(map[string]interface{}{"error": err.Error()})
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}

func invalidRequest(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	message := err.Error()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return c.Status(status).JSON(models.NewErrorResponse(services.CodeInvalidRequest, message))
}

// serviceError maps service error codes to HTTP statuses.
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		h.logger.Error("Unexpected service error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.NewErrorResponse(services.CodeEvaluationFailed, err.Error()))
	}

	status := fiber.StatusInternalServerError
	switch svcErr.Code {
	case services.CodeUnknownFunction:
		status = fiber.StatusNotFound
	case services.CodeInvalidRequest, services.CodeInvalidArgument, services.CodeInsufficientSeries:
		status = fiber.StatusBadRequest
	case services.CodeFetchFailed, services.CodeWriteFailed:
		status = fiber.StatusBadGateway
	}

	resp := models.NewErrorResponse(svcErr.Code, svcErr.Message).
		WithPath(c.Path()).
		WithDetails(svcErr.Details)
	return c.Status(status).JSON(resp)
}
