package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hhspend/internal/amqp"
	"hhspend/internal/core"
	"hhspend/internal/log"
	"hhspend/internal/source"
	"hhspend/internal/storage"
)

var ErrNoSource = errors.New("no source opener configured")

// DatasetStore persists an imported dataset.
type DatasetStore interface {
	SaveDataset(ctx context.Context, f *core.Forest, m core.Multipliers, info storage.ImportInfo) error
	Close() error
}

// Publisher enqueues import requests for the worker.
type Publisher interface {
	PublishImportRequest(ctx context.Context, msg *amqp.ImportRequestMessage) error
	Close() error
}

// SourceOpener resolves an import request to a readable dataset.
type SourceOpener func(ctx context.Context, req *amqp.ImportRequestMessage) (source.Dataset, error)

// ImportResult summarises a completed import.
type ImportResult struct {
	Source      string
	Location    string
	Categories  int
	Roots       int
	Multipliers int
	Duration    time.Duration
}

// ImportService loads a dataset from a spreadsheet source and stores it so
// the web server can serve it from SQL.
type ImportService struct {
	store     DatasetStore
	publisher Publisher
	open      SourceOpener
	now       func() time.Time
}

func NewImportService(store DatasetStore, publisher Publisher, open SourceOpener) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
		open:      open,
		now:       time.Now,
	}
}

// Import reads the requested source and replaces the stored dataset.
func (s *ImportService) Import(ctx context.Context, req *amqp.ImportRequestMessage) (ImportResult, error) {
	if err := req.Validate(); err != nil {
		return ImportResult{}, err
	}
	if s.open == nil {
		return ImportResult{}, ErrNoSource
	}
	start := s.now()

	ds, err := s.open(ctx, req)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open %s source: %w", req.Source, err)
	}
	forest, err := ds.LoadForest(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load forest: %w", err)
	}
	if forest.Len() == 0 {
		return ImportResult{}, fmt.Errorf("load forest: %w", storage.ErrEmptyDataset)
	}
	multipliers, err := ds.ReadMultipliers(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read multipliers: %w", err)
	}

	info := storage.ImportInfo{
		Source:     req.Source,
		Location:   req.Location,
		Categories: forest.Len(),
		ImportedAt: s.now().UTC(),
	}
	if err := s.store.SaveDataset(ctx, forest, multipliers, info); err != nil {
		return ImportResult{}, fmt.Errorf("save dataset: %w", err)
	}

	result := ImportResult{
		Source:      req.Source,
		Location:    req.Location,
		Categories:  forest.Len(),
		Roots:       len(forest.Roots()),
		Multipliers: len(multipliers.HouseholdSize) + len(multipliers.Income) + len(multipliers.Dwelling),
		Duration:    s.now().Sub(start),
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogImport(ctx, result.Source, result.Location, result.Categories, result.Duration)
	return result, nil
}

// RequestImport enqueues the request when a publisher is available and
// imports inline otherwise. queued reports which path was taken.
func (s *ImportService) RequestImport(ctx context.Context, req *amqp.ImportRequestMessage) (queued bool, err error) {
	if err := req.Validate(); err != nil {
		return false, err
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, importing inline", "source", req.Source)
		_, err := s.Import(ctx, req)
		return false, err
	}
	if err := s.publisher.PublishImportRequest(ctx, req); err != nil {
		return false, fmt.Errorf("publish import request: %w", err)
	}
	slog.InfoContext(ctx, "Import request queued", "source", req.Source, "location", req.Location)
	return true, nil
}

// HandleImportRequest is the worker's message handler.
func (s *ImportService) HandleImportRequest(ctx context.Context, msg *amqp.ImportRequestMessage) error {
	slog.InfoContext(ctx, "Processing import request",
		"source", msg.Source,
		"location", msg.Location,
		"requested_at", msg.RequestedAt)
	_, err := s.Import(ctx, msg)
	return err
}

// Close closes both storage and AMQP connections
func (s *ImportService) Close() error {
	var errs []string

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("storage: %v", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("amqp: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %s", strings.Join(errs, "; "))
	}
	return nil
}
