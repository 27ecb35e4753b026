package backend

import (
	"context"

	"hhspend/internal/amqp"
	"hhspend/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by backends with a remote connection worth
// checking from the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult contains the dataset source and optional cleanup function
type BackendResult struct {
	Dataset source.Dataset
	Cleanup CleanupFunc
	// Pinger is nil for sources read once at startup.
	Pinger Pinger
	// Refreshable backends change under the server (a worker writes them)
	// and are worth polling.
	Refreshable bool
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the dataset source the web server reads.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenSource opens the spreadsheet source an import request names.
	OpenSource(ctx context.Context, config Config, req *amqp.ImportRequestMessage) (source.Dataset, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory backend specific
	DataDirectory string

	// SQL specific
	SQLiteDBPath string
	PostgresDSN  string

	// Workbook specific
	WorkbookLocation         string
	WorkbookSheet            string
	WorkbookMultipliersSheet string
	S3Region                 string
	S3Endpoint               string
	S3PathStyle              bool

	// Google Sheets specific
	GoogleSpreadsheetID        string
	GoogleSheetName            string
	GoogleMultipliersSheetName string
	GoogleServiceAccountFile   string
	GoogleServiceAccountJSON   string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	XLSXBackend     BackendType = "xlsx"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend, XLSXBackend:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the backend is a database the import pipeline
// writes to.
func (bt BackendType) IsSQL() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
