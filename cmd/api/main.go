package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gracehq/chms/internal/api"
	"github.com/gracehq/chms/internal/api/middleware"
	"github.com/gracehq/chms/internal/config"
	"github.com/gracehq/chms/internal/export"
	"github.com/gracehq/chms/internal/logger"
	"github.com/gracehq/chms/internal/notify"
	"github.com/gracehq/chms/internal/repository"
	"github.com/gracehq/chms/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "chms",
	})
	logger.SetDefaultLogger(appLogger)

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize content repository and extractor table
	contentRepo := repository.NewContentRepository(db)
	extractors := export.NewExtractorTable(contentRepo)

	// Initialize artifact storage (local disk or S3-compatible)
	artifactStore, err := storage.NewArtifactStore(&cfg.Storage, cfg.Export.Directory)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	// Initialize completion webhook notifier
	notifier := notify.NewWebhookNotifier(&cfg.Webhook, appLogger)

	// Initialize export service with its worker pool
	exportService := export.NewService(
		export.NewRegistry(),
		extractors,
		artifactStore,
		notifier,
		appLogger,
		&export.Config{
			Workers:   cfg.Export.Workers,
			QueueSize: cfg.Export.QueueSize,
		},
	)

	// Setup router
	router := api.SetupRouter(exportService, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Let in-flight export jobs run to a terminal state
	exportService.Close()

	appLogger.Info("Server exited")
}
