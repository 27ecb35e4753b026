package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hhspend/internal/amqp"
	s3blob "hhspend/internal/blob/s3"
	"hhspend/internal/source"
	"hhspend/internal/source/google"
	"hhspend/internal/source/memory"
	"hhspend/internal/source/xlsx"
	"hhspend/internal/storage"
)

var ErrUnknownSource = errors.New("unknown import source")

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Type.IsSQL() {
		return f.createSQLBackend(ctx, config)
	}

	switch config.Type {
	case SheetsBackend, XLSXBackend:
		ds, err := f.OpenSource(ctx, config, &amqp.ImportRequestMessage{Source: config.Type.String()})
		if err != nil {
			return nil, err
		}
		return &BackendResult{Dataset: ds}, nil
	case MemoryBackend:
		return f.createMemoryBackend(config.DataDirectory)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, config Config) (*BackendResult, error) {
	driver, dsn := config.StoreTarget()
	repo, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", driver, err)
	}

	f.logger.Info("Initialized SQL backend", "driver", driver)

	return &BackendResult{
		Dataset:     repo,
		Cleanup:     repo.Close,
		Pinger:      repo,
		Refreshable: true,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(dataDir string) (*BackendResult, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Dataset: store}, nil
}

// OpenSource opens the spreadsheet an import request names. Empty
// request fields fall back to the configured location and sheet.
func (f *DefaultFactory) OpenSource(ctx context.Context, config Config, req *amqp.ImportRequestMessage) (source.Dataset, error) {
	switch BackendType(req.Source) {
	case XLSXBackend:
		cfg := xlsx.Config{
			Location:         firstNonEmpty(req.Location, config.WorkbookLocation),
			Sheet:            firstNonEmpty(req.Sheet, config.WorkbookSheet),
			MultipliersSheet: config.WorkbookMultipliersSheet,
		}
		if cfg.Location == "" {
			return nil, fmt.Errorf("xlsx source: workbook location is required")
		}
		if !s3blob.IsURI(cfg.Location) {
			f.logger.Info("Opening workbook", "location", cfg.Location)
			return xlsx.New(cfg, nil), nil
		}
		objects, err := s3blob.New(ctx, s3blob.Config{
			Region:    config.S3Region,
			Endpoint:  config.S3Endpoint,
			PathStyle: config.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		f.logger.Info("Opening workbook from S3", "location", cfg.Location)
		return xlsx.New(cfg, objects), nil

	case SheetsBackend:
		cli, err := google.New(ctx, google.Config{
			SpreadsheetID:    firstNonEmpty(req.Location, config.GoogleSpreadsheetID),
			Sheet:            firstNonEmpty(req.Sheet, config.GoogleSheetName),
			MultipliersSheet: config.GoogleMultipliersSheetName,
			CredentialsJSON:  config.GoogleServiceAccountJSON,
			CredentialsFile:  config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets source")
		return cli, nil

	case MemoryBackend:
		res, err := f.createMemoryBackend(firstNonEmpty(req.Location, config.DataDirectory))
		if err != nil {
			return nil, err
		}
		return res.Dataset, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
