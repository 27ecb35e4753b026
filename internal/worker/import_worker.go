package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hhspend/internal/amqp"
)

// Consumer delivers import requests from the queue.
type Consumer interface {
	ConsumeImportRequests(ctx context.Context, handler func(context.Context, *amqp.ImportRequestMessage) error) error
}

// Importer performs one import.
type Importer interface {
	HandleImportRequest(ctx context.Context, msg *amqp.ImportRequestMessage) error
}

// ImportWorker handles dataset import requests from AMQP
type ImportWorker struct {
	consumer Consumer
	importer Importer
	// Start of the last successful import. Requests made before it were
	// covered by that import and are skipped.
	lastImport time.Time
}

func NewImportWorker(consumer Consumer, importer Importer) *ImportWorker {
	return &ImportWorker{
		consumer: consumer,
		importer: importer,
	}
}

// Run consumes until ctx is cancelled.
func (w *ImportWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Import worker started")
	err := w.consumer.ConsumeImportRequests(ctx, w.HandleImportMessage)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("consume import requests: %w", err)
	}
	slog.InfoContext(ctx, "Import worker stopped")
	return nil
}

// HandleImportMessage processes a single import request message.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportRequestMessage) error {
	if !w.lastImport.IsZero() && !msg.RequestedAt.IsZero() && msg.RequestedAt.Before(w.lastImport) {
		slog.InfoContext(ctx, "Skipping stale import request",
			"source", msg.Source,
			"requested_at", msg.RequestedAt,
			"last_import", w.lastImport)
		return nil
	}

	started := time.Now()
	if err := w.importer.HandleImportRequest(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Import failed",
			"source", msg.Source,
			"location", msg.Location,
			"error", err)
		return fmt.Errorf("import from %s: %w", msg.Source, err)
	}
	w.lastImport = started

	slog.InfoContext(ctx, "Import completed",
		"source", msg.Source,
		"location", msg.Location,
		"duration", time.Since(started))
	return nil
}
