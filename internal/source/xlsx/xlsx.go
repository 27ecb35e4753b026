// Package xlsx loads the expenditure dataset from an Excel workbook on
// local disk or S3.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	s3blob "hhspend/internal/blob/s3"
	"hhspend/internal/core"
	"hhspend/internal/source"
)

// ObjectOpener streams an object from a bucket.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type Config struct {
	// Location is a file path or an s3://bucket/key uri.
	Location string
	// Sheet holds the category table; the first sheet when empty.
	Sheet string
	// MultipliersSheet is optional.
	MultipliersSheet string
}

type Loader struct {
	cfg     Config
	objects ObjectOpener
}

var _ source.Dataset = (*Loader)(nil)

// New creates a loader. objects may be nil when Location is a local path.
func New(cfg Config, objects ObjectOpener) *Loader {
	return &Loader{cfg: cfg, objects: objects}
}

func (l *Loader) LoadForest(ctx context.Context) (*core.Forest, error) {
	wb, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet := l.cfg.Sheet
	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	f, err := source.ParseForest(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Workbook loaded", "location", l.cfg.Location, "sheet", sheet, "categories", f.Len())
	return f, nil
}

// ReadMultipliers returns empty tables when no multiplier sheet is
// configured or the workbook does not have it.
func (l *Loader) ReadMultipliers(ctx context.Context) (core.Multipliers, error) {
	if l.cfg.MultipliersSheet == "" {
		return core.Multipliers{}, nil
	}
	wb, err := l.open(ctx)
	if err != nil {
		return core.Multipliers{}, err
	}
	defer wb.Close()

	if idx, err := wb.GetSheetIndex(l.cfg.MultipliersSheet); err != nil || idx < 0 {
		slog.WarnContext(ctx, "Multiplier sheet not found", "location", l.cfg.Location, "sheet", l.cfg.MultipliersSheet)
		return core.Multipliers{}, nil
	}
	rows, err := wb.GetRows(l.cfg.MultipliersSheet)
	if err != nil {
		return core.Multipliers{}, fmt.Errorf("read sheet %q: %w", l.cfg.MultipliersSheet, err)
	}
	return source.ParseMultiplierRows(rows)
}

func (l *Loader) open(ctx context.Context) (*excelize.File, error) {
	if l.cfg.Location == "" {
		return nil, errors.New("workbook location not set")
	}
	var rc io.ReadCloser
	if s3blob.IsURI(l.cfg.Location) {
		if l.objects == nil {
			return nil, fmt.Errorf("no object store configured for %s", l.cfg.Location)
		}
		bucket, key, err := s3blob.ParseURI(l.cfg.Location)
		if err != nil {
			return nil, err
		}
		rc, err = l.objects.Open(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(l.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		rc = f
	}
	defer rc.Close()

	wb, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", l.cfg.Location, err)
	}
	return wb, nil
}
