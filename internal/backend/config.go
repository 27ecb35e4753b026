package backend

import (
	"fmt"

	"hhspend/internal/config"
	"hhspend/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	dataDir := appConfig.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	return Config{
		Type:          backendType,
		DataDirectory: dataDir,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresDSN:  appConfig.PostgresDSN,

		WorkbookLocation:         appConfig.WorkbookLocation,
		WorkbookSheet:            appConfig.WorkbookSheet,
		WorkbookMultipliersSheet: appConfig.WorkbookMultipliersSheet,
		S3Region:                 appConfig.S3Region,
		S3Endpoint:               appConfig.S3Endpoint,
		S3PathStyle:              appConfig.S3PathStyle,

		GoogleSpreadsheetID:        appConfig.GoogleSpreadsheetID,
		GoogleSheetName:            appConfig.GoogleSheetName,
		GoogleMultipliersSheetName: appConfig.GoogleMultipliersSheetName,
		GoogleServiceAccountFile:   appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON:   appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case XLSXBackend:
		if c.WorkbookLocation == "" {
			return fmt.Errorf("workbook location is required for xlsx backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory falls back to the embedded seed when files are missing
	}

	return nil
}

// StoreTarget returns the database imports are written to: the configured
// SQL backend, or the SQLite file otherwise.
func (c Config) StoreTarget() (storage.Driver, string) {
	if c.Type == PostgresBackend {
		return storage.DriverPostgres, c.PostgresDSN
	}
	return storage.DriverSQLite, c.SQLiteDBPath
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend, XLSXBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
