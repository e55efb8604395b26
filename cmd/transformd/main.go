package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/grpc"
	"github.com/soltixdb/soltix-transform/internal/ingest"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/router"
	"github.com/soltixdb/soltix-transform/internal/services"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Transform service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	transformService, err := services.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open transform service", "error", err)
	}
	defer func() { _ = transformService.Close() }()

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, transformService, *cfg, Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Series writes arriving over the queue land in the same datastore.
	var consumer *ingest.Consumer
	if cfg.Ingest.Enabled {
		logger.Info("Connecting to ingest queue", "type", cfg.Ingest.Type, "url", cfg.Ingest.URL)
		transport, err := ingest.New(cfg.Ingest, logger)
		if err != nil {
			logger.Fatal("Failed to connect to ingest queue", "error", err)
		}
		defer func() { _ = transport.Close() }()

		consumer = ingest.NewConsumer(transport, transformService, cfg.Ingest.Subject, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("Failed to start ingest consumer", "error", err)
		}
	}

	grpcDone := make(chan struct{})
	if cfg.Server.GRPCPort > 0 {
		grpcServer := grpc.NewServer(cfg.GetGRPCAddress(), transformService, logger)
		go func() {
			defer close(grpcDone)
			if err := grpcServer.Start(ctx); err != nil {
				logger.Fatal("Failed to start gRPC server", "error", err)
			}
		}()
	} else {
		close(grpcDone)
	}

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Warn("Failed to stop ingest consumer", "error", err)
		}
		stats := consumer.Stats()
		logger.Info("Ingest consumer stopped",
			"messages", stats.Messages, "points", stats.Points,
			"rejected", stats.Rejected, "failed", stats.Failed)
	}

	cancel()
	<-grpcDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
