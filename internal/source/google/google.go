// Package google loads the expenditure dataset from a Google Sheets
// spreadsheet shared with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"hhspend/internal/core"
	"hhspend/internal/source"
)

type Config struct {
	SpreadsheetID    string
	Sheet            string
	MultipliersSheet string
	// Service account credentials, inline JSON wins over the file.
	CredentialsJSON string
	CredentialsFile string
}

// rangeReader fetches a values range; the Sheets API in production.
type rangeReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type Client struct {
	reader           rangeReader
	spreadsheetID    string
	sheet            string
	multipliersSheet string
}

var _ source.Dataset = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&apiReader{svc: svc}, cfg), nil
}

func newClient(r rangeReader, cfg Config) *Client {
	sheet := strings.TrimSpace(cfg.Sheet)
	if sheet == "" {
		sheet = "Expenditure"
	}
	return &Client{
		reader:           r,
		spreadsheetID:    cfg.SpreadsheetID,
		sheet:            sheet,
		multipliersSheet: strings.TrimSpace(cfg.MultipliersSheet),
	}
}

// newSheetsService initializes a read-only Sheets service. Inline JSON wins
// over the file; with neither, Application Default Credentials are used.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	creds, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"project_id", creds.ProjectID,
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func credentials(ctx context.Context, cfg Config) (*goauth.Credentials, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	switch {
	case cfg.CredentialsJSON != "":
		creds, err := goauth.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), gsheet.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account json: %w", err)
		}
		return creds, nil
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds, err := goauth.CredentialsFromJSON(ctx, b, gsheet.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account file: %w", err)
		}
		return creds, nil
	default:
		creds, err := goauth.FindDefaultCredentials(ctx, gsheet.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS): %w", err)
		}
		return creds, nil
	}
}

type apiReader struct {
	svc *gsheet.Service
}

// Values reads formatted values so that indentation and thousands
// separators survive as the sheet shows them.
func (a *apiReader) Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) LoadForest(ctx context.Context) (*core.Forest, error) {
	values, err := c.reader.Values(ctx, c.spreadsheetID, quoteSheet(c.sheet))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.sheet, err)
	}
	f, err := source.ParseForest(toRows(values))
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", c.sheet, err)
	}
	slog.InfoContext(ctx, "Spreadsheet loaded", "sheet", c.sheet, "categories", f.Len())
	return f, nil
}

// ReadMultipliers returns empty tables when no multiplier sheet is
// configured.
func (c *Client) ReadMultipliers(ctx context.Context) (core.Multipliers, error) {
	if c.multipliersSheet == "" {
		return core.Multipliers{}, nil
	}
	values, err := c.reader.Values(ctx, c.spreadsheetID, quoteSheet(c.multipliersSheet))
	if err != nil {
		return core.Multipliers{}, fmt.Errorf("read %s: %w", c.multipliersSheet, err)
	}
	return source.ParseMultiplierRows(toRows(values))
}

// quoteSheet makes a whole-sheet A1 range; names with spaces need quotes.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// toRows stringifies cells without trimming; leading spaces carry depth.
func toRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out
}
