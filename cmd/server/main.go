package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"epw-platform/internal/config"
	"epw-platform/internal/handlers"
	"epw-platform/internal/repository"
	"epw-platform/internal/services"
	"epw-platform/pkg/database"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("epw-api", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()
	zap.ReplaceGlobals(logger.Zap())

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting EPW platform API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_dir":    cfg.Ingestion.DataDir,
		"database":    cfg.Database.Enabled,
	})

	metricsCollector := metrics.NewCollector("epw_platform")

	catalog := services.NewCatalog(services.LoadOptions{
		StoreData:        cfg.Ingestion.StoreData,
		StrictActualYear: cfg.Ingestion.StrictActualYear,
	}, logger, metricsCollector)
	if err := os.MkdirAll(cfg.Ingestion.DataDir, 0o755); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Cannot create data directory", logging.Fields{
			"data_dir": cfg.Ingestion.DataDir,
		}, err)
	}
	loaded, failed, err := catalog.LoadDirectory(ctx, cfg.Ingestion.DataDir)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to scan data directory", logging.Fields{}, err)
	}
	logger.Info(ctx, "[CATALOG_READY] Weather files loaded", logging.Fields{
		"loaded": len(loaded),
		"failed": len(failed),
	})

	statsService := services.NewStatisticsService(nil, logger, metricsCollector)
	fetcher := services.NewFetcher("epw-download", services.FetcherConfig{
		Timeout:        cfg.Fetcher.Timeout,
		MaxRetries:     uint64(cfg.Fetcher.MaxRetries),
		RetryDelay:     cfg.Fetcher.RetryDelay,
		MaxBytes:       cfg.Fetcher.MaxBytes,
		BreakerTimeout: cfg.Fetcher.BreakerTimeout,
	}, cfg.Ingestion.DataDir, catalog, logger, metricsCollector)

	var (
		weatherHandler *handlers.WeatherHandler
		health         handlers.HealthChecker
	)
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		epwRepo := repository.NewEpwRepository(db, logger, metricsCollector)
		statsService = services.NewStatisticsService(epwRepo, logger, metricsCollector)
		weatherHandler = handlers.NewWeatherHandler(services.NewWeatherService(epwRepo, logger, metricsCollector), logger, metricsCollector)
		health = epwRepo
	}

	scheduler, err := services.NewScheduler(services.SchedulerConfig{
		RescanSpec: cfg.Ingestion.RescanSchedule,
		FetchSpec:  cfg.Fetcher.Schedule,
		FetchURLs:  cfg.Fetcher.URLs,
	}, cfg.Ingestion.DataDir, catalog, fetcher, logger)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid schedule", logging.Fields{}, err)
	}
	scheduler.Start()

	fileHandler := handlers.NewFileHandler(catalog, statsService, fetcher, logger, metricsCollector)
	router := handlers.NewRouter(fileHandler, weatherHandler, health, catalog, logger, metricsCollector)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
