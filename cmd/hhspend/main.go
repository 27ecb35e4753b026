package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"hhspend/internal/backend"
	"hhspend/internal/cli"
	apphttp "hhspend/internal/http"
	"hhspend/internal/log"
	"hhspend/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	bc := cli.BackendConfig(logger, cfg)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", bc.Type)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// A dataset that cannot be loaded is fatal; there is nothing to serve.
	forest, err := res.Dataset.LoadForest(ctx)
	if err != nil {
		logger.Error("Failed to load expenditure categories", log.FieldError, err, "backend", bc.Type)
		os.Exit(1)
	}
	multipliers, err := res.Dataset.ReadMultipliers(ctx)
	if err != nil {
		logger.Error("Failed to load estimator multipliers", log.FieldError, err, "backend", bc.Type)
		os.Exit(1)
	}

	opts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
	}
	if res.Pinger != nil {
		opts.Pinger = res.Pinger
	}
	srv, err := apphttp.NewServer(opts, forest, multipliers)
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting hhspend server", "port", cfg.Port, "backend", bc.Type, log.FieldCategories, forest.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	switch {
	case cfg.RefreshInterval > 0 && res.Refreshable:
		refresher := services.NewDatasetRefresher(res.Dataset, srv.SetDataset, cfg.RefreshInterval)
		g.Go(func() error {
			if err := refresher.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return refresher.Stop(stopCtx)
		})
	case cfg.RefreshInterval > 0:
		logger.Warn("DATASET_REFRESH_INTERVAL ignored: backend is read once at startup", "backend", bc.Type)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
