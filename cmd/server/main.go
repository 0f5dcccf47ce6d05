package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/airports"
	"github.com/yegors/routewx/internal/api"
	"github.com/yegors/routewx/internal/config"
	"github.com/yegors/routewx/internal/forecast"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/storage/sqlite"
	"github.com/yegors/routewx/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting routewx server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)
	if unknown := cfg.UnknownKeys(); len(unknown) > 0 {
		log.Warn("Ignoring unknown configuration keys", logger.Strings("keys", unknown))
	}

	metrics := observability.NewMetrics()

	// Airport directory
	storage, err := sqlite.NewAirportStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to open airport storage", logger.Error(err))
		os.Exit(1)
	}
	defer storage.Close()
	importAirports(storage, cfg.Storage.AirportsCSVPath, log)

	directory := airports.NewCachedDirectory(storage, cfg.Airports.CacheSize, cfg.Airports.CacheTTL(), metrics, log)

	// Forecast pipeline
	sources := buildSources(cfg, clockwork.NewRealClock(), metrics, log)
	if len(sources) == 0 {
		log.Warn("No weather providers enabled; every forecast will use the default sample")
	}
	forecastService := forecast.NewService(cfg.Forecast, sources, clockwork.NewRealClock(), metrics, log)

	// Create API router
	handler := api.NewHandler(forecastService, directory, cfg, log)
	router := api.NewRouter(handler, cfg, metrics, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
			logger.Strings("providers", forecastService.Sources()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-serverErr:
		log.Error("HTTP server error", logger.String("addr", server.Addr), logger.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	log.Info("Server stopped")
}

// importAirports refreshes the directory from the CSV when one is configured.
// A failed import leaves the existing rows in place.
func importAirports(storage *sqlite.AirportStorage, path string, log *logger.Logger) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn("Airport CSV not found, using existing directory",
			logger.String("path", path))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := storage.ImportCSVFile(ctx, path)
	if err != nil {
		log.Warn("Failed to import airport CSV",
			logger.String("path", path),
			logger.Error(err))
		return
	}
	log.Info("Airport directory ready",
		logger.Int("imported", n),
		logger.Duration("took", time.Since(start)))
}
