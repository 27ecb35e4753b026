package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hhspend/internal/core"
	"hhspend/internal/source"
)

// ApplyFunc receives every freshly loaded dataset.
type ApplyFunc func(f *core.Forest, m core.Multipliers)

// DatasetRefresher periodically reloads the dataset from a source and hands
// the new snapshot to the web server. A loaded forest is never mutated; a
// refresh replaces it as a whole.
type DatasetRefresher struct {
	source   source.Dataset
	apply    ApplyFunc
	interval time.Duration

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDatasetRefresher(src source.Dataset, apply ApplyFunc, interval time.Duration) *DatasetRefresher {
	return &DatasetRefresher{
		source:   src,
		apply:    apply,
		interval: interval,
	}
}

// Refresh loads once and applies the result. A failed load keeps the
// previous snapshot in place.
func (r *DatasetRefresher) Refresh(ctx context.Context) error {
	forest, err := r.source.LoadForest(ctx)
	if err != nil {
		return fmt.Errorf("reload forest: %w", err)
	}
	multipliers, err := r.source.ReadMultipliers(ctx)
	if err != nil {
		return fmt.Errorf("reload multipliers: %w", err)
	}
	r.apply(forest, multipliers)
	slog.DebugContext(ctx, "Dataset refreshed", "categories", forest.Len())
	return nil
}

// Start begins the refresh loop. Returns an error if already running.
func (r *DatasetRefresher) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", r.interval)
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("dataset refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Dataset refresher started", "interval", r.interval)
	return nil
}

// Stop gracefully stops the refresher and waits for the loop to exit.
func (r *DatasetRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.doneCh:
		slog.InfoContext(ctx, "Dataset refresher stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Dataset refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the refresher is currently running
func (r *DatasetRefresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *DatasetRefresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "Dataset refresh failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
