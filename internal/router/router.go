package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/handlers"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/middleware"
	"github.com/soltixdb/soltix-transform/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, transformService *services.TransformService, cfg config.Config, version string) *handlers.Handler {
	h := handlers.New(logger, transformService, version)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.DefaultMiddlewareConfig()))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth))

	v1.Get("/functions", h.ListFunctions)
	v1.Post("/evaluate", withTimeout(h.Evaluate, cfg.Server))
	v1.Post("/evaluate/query", withTimeout(h.EvaluateQuery, cfg.Server))
	v1.Post("/series", withTimeout(h.WriteSeries, cfg.Server))

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// withTimeout bounds a handler by the configured request timeout.
func withTimeout(handler fiber.Handler, cfg config.ServerConfig) fiber.Handler {
	if cfg.RequestTimeout <= 0 {
		return handler
	}
	return timeout.NewWithContext(handler, cfg.RequestTimeout, context.DeadlineExceeded)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, transformService *services.TransformService, cfg config.Config, version string) *fiber.App {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "Soltix Transform",
		DisableStartupMessage: !cfg.IsDevelopment(),
		BodyLimit:             bodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, transformService, cfg, version)

	return app
}
