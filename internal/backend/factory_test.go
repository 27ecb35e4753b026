package backend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"hhspend/internal/amqp"
	"hhspend/internal/config"
	"hhspend/internal/core"
	"hhspend/internal/source/xlsx"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("mongo").IsValid() {
		t.Error("mongo should not be valid")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sqlite,postgres,sheets,xlsx" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "csv"}); err == nil {
		t.Error("expected error for invalid backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:      "postgres",
		PostgresDSN:      "postgres://localhost/hhspend",
		WorkbookLocation: "s3://b/k.xlsx",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DataDirectory != "data" || cfg.WorkbookLocation != "s3://b/k.xlsx" {
		t.Errorf("unexpected config %+v", cfg)
	}
	driver, dsn := cfg.StoreTarget()
	if driver != "postgres" || dsn != "postgres://localhost/hhspend" {
		t.Errorf("StoreTarget() = %s, %s", driver, dsn)
	}

	cfg.Type = XLSXBackend
	cfg.SQLiteDBPath = "x.db"
	if driver, dsn := cfg.StoreTarget(); driver != "sqlite" || dsn != "x.db" {
		t.Errorf("StoreTarget() = %s, %s", driver, dsn)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"xlsx without location", Config{Type: XLSXBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Refreshable || res.Pinger != nil || res.Cleanup != nil {
		t.Errorf("memory backend should be static: %+v", res)
	}
	f, err := res.Dataset.LoadForest(context.Background())
	if err != nil || f.Len() == 0 {
		t.Fatalf("seeded forest: %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hhspend.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()
	if !res.Refreshable || res.Pinger == nil {
		t.Errorf("sql backend should be refreshable and pingable")
	}
	if err := res.Pinger.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hes.xlsx")
	wb := excelize.NewFile()
	header := []interface{}{"Category"}
	row := []interface{}{"Food"}
	for _, g := range core.AgeGroups() {
		header = append(header, g)
		row = append(row, 100)
	}
	if err := wb.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatal(err)
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	f := NewFactory(nil)
	ctx := context.Background()

	ds, err := f.OpenSource(ctx, Config{WorkbookLocation: path}, &amqp.ImportRequestMessage{Source: "xlsx"})
	if err != nil {
		t.Fatalf("OpenSource xlsx: %v", err)
	}
	if _, ok := ds.(*xlsx.Loader); !ok {
		t.Fatalf("expected xlsx loader, got %T", ds)
	}
	forest, err := ds.LoadForest(ctx)
	if err != nil || forest.Len() != 1 {
		t.Fatalf("LoadForest: %v", err)
	}

	if _, err := f.OpenSource(ctx, Config{}, &amqp.ImportRequestMessage{Source: "xlsx"}); err == nil {
		t.Error("expected error without workbook location")
	}
	if _, err := f.OpenSource(ctx, Config{}, &amqp.ImportRequestMessage{Source: "csv"}); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if _, err := f.OpenSource(ctx, Config{}, &amqp.ImportRequestMessage{Source: "memory", Location: dir}); err != nil {
		t.Errorf("memory source: %v", err)
	}
}
