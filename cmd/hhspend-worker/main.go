package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"hhspend/internal/amqp"
	"hhspend/internal/backend"
	"hhspend/internal/cli"
	"hhspend/internal/log"
	"hhspend/internal/services"
	"hhspend/internal/source"
	"hhspend/internal/storage"
	"hhspend/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting hhspend-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	bc := cli.BackendConfig(logger, cfg)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	store := cli.InitStore(ctx, logger, bc)
	switch info, err := store.LastImport(ctx); {
	case errors.Is(err, storage.ErrEmptyDataset):
		logger.Info("Dataset store is empty, waiting for the first import request")
	case err != nil:
		logger.Warn("Could not read last import", log.FieldError, err)
	default:
		logger.Info("Dataset store ready",
			log.FieldSource, info.Source,
			log.FieldLocation, info.Location,
			log.FieldCategories, info.Categories,
			"imported_at", info.ImportedAt)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = store.Close()
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	importer := services.NewImportService(store, amqpClient, func(ctx context.Context, r *amqp.ImportRequestMessage) (source.Dataset, error) {
		return factory.OpenSource(ctx, bc, r)
	})
	defer func() {
		if err := importer.Close(); err != nil {
			logger.Error("Shutdown error", log.FieldError, err)
		}
	}()

	w := worker.NewImportWorker(amqpClient, importer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
