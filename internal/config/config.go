package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backends the web server can read the dataset from.
var validBackends = []string{"memory", "sqlite", "postgres", "sheets", "xlsx"}

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int

	// Backend selection
	DataBackend     string
	DataDir         string
	RefreshInterval time.Duration

	// Database
	SQLiteDBPath string
	PostgresDSN  string

	// Workbook
	WorkbookLocation         string
	WorkbookSheet            string
	WorkbookMultipliersSheet string
	S3Region                 string
	S3Endpoint               string
	S3PathStyle              bool

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleSheetName            string
	GoogleMultipliersSheetName string
	GoogleServiceAccountFile   string
	GoogleServiceAccountJSON   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rendered panel cache
	CacheTTL  time.Duration
	CacheSize int
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:     getEnv("DATA_BACKEND", "memory"),
		DataDir:         getEnv("DATA_DIR", "data"),
		RefreshInterval: getEnvDuration("DATASET_REFRESH_INTERVAL", 0),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hhspend.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		WorkbookLocation:         getEnv("WORKBOOK_LOCATION", ""),
		WorkbookSheet:            getEnv("WORKBOOK_SHEET", ""),
		WorkbookMultipliersSheet: getEnv("WORKBOOK_MULTIPLIERS_SHEET", "Multipliers"),
		S3Region:                 getEnv("S3_REGION", "ap-southeast-1"),
		S3Endpoint:               getEnv("S3_ENDPOINT", ""),
		S3PathStyle:              getEnvBool("S3_PATH_STYLE", false),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:            getEnv("GOOGLE_SHEET_NAME", "Expenditure"),
		GoogleMultipliersSheetName: getEnv("GOOGLE_MULTIPLIERS_SHEET_NAME", ""),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hhspend"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_imports"),

		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 256),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case "xlsx":
		errors = append(errors, c.validateWorkbook()...)
	case "sheets":
		errors = append(errors, c.validateSheets()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid dataset refresh interval %v: must not be negative", c.RefreshInterval))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 || c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 100000", c.CacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateWorkbook() []string {
	var errors []string
	loc := c.WorkbookLocation
	switch {
	case loc == "":
		errors = append(errors, "WORKBOOK_LOCATION is required when using xlsx backend")
	case strings.HasPrefix(loc, "s3://"):
		rest := strings.TrimPrefix(loc, "s3://")
		if bucket, key, ok := strings.Cut(rest, "/"); !ok || bucket == "" || key == "" {
			errors = append(errors, fmt.Sprintf("invalid workbook location '%s': expected s3://bucket/key", loc))
		}
		if c.S3Endpoint != "" {
			if u, err := url.Parse(c.S3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid S3 endpoint '%s'", c.S3Endpoint))
			}
		}
	default:
		if _, err := os.Stat(loc); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("workbook file does not exist: %s", loc))
		}
	}
	return errors
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
