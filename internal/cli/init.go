// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/hhspend, cmd/hhspend-import and cmd/hhspend-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hhspend/internal/backend"
	"hhspend/internal/config"
	"hhspend/internal/log"
	"hhspend/internal/storage"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string, component string) *slog.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
	})
	log.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// BackendConfig derives the backend configuration or exits the process.
func BackendConfig(logger *slog.Logger, cfg *config.Config) backend.Config {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	return bc
}

// InitStore opens the SQL store imports are written to: postgres when that
// is the configured backend, the SQLite file otherwise.
// Returns the repository or exits the process on failure.
func InitStore(ctx context.Context, logger *slog.Logger, bc backend.Config) *storage.Repository {
	driver, dsn := bc.StoreTarget()
	repo, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		logger.Error("Failed to open dataset store", log.FieldError, err, "driver", driver)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged once.
func SignalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
