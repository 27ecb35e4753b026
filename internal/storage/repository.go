// Package storage persists the expenditure dataset in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"hhspend/internal/core"
	"hhspend/internal/source"
)

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrEmptyDataset  = errors.New("no dataset imported yet")
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

func (d Driver) sqlName() string {
	if d == DriverPostgres {
		return "pgx"
	}
	return string(d)
}

// ImportInfo describes the dataset currently stored.
type ImportInfo struct {
	Source     string
	Location   string
	Categories int
	ImportedAt time.Time
}

type Repository struct {
	db     *sql.DB
	driver Driver
}

var _ source.Dataset = (*Repository)(nil)

// Open connects and migrates. For SQLite dsn is a file path.
func Open(ctx context.Context, driver Driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver.sqlName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(driver, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &Repository{db: db, driver: driver}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(q string) string {
	if r.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// SaveDataset replaces the stored forest and multipliers in one
// transaction. Reading the categories back by id reproduces the load order.
func (r *Repository) SaveDataset(ctx context.Context, f *core.Forest, m core.Multipliers, info ImportInfo) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM category_values",
		"DELETE FROM categories",
		"DELETE FROM multipliers",
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear dataset: %w", err)
		}
	}

	insertCat, err := tx.PrepareContext(ctx, r.rebind(
		"INSERT INTO categories (id, name, parent_id, depth, position) VALUES (?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer insertCat.Close()
	insertVal, err := tx.PrepareContext(ctx, r.rebind(
		"INSERT INTO category_values (category_id, age_group, amount_cents) VALUES (?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare value insert: %w", err)
	}
	defer insertVal.Close()

	// Records are pre-order, so ids follow the load order and a parent
	// is always inserted before its children.
	var stack []int64
	positions := make(map[int64]int)
	for i, rec := range f.Records() {
		id := int64(i + 1)
		stack = append(stack[:rec.Level], id)
		var parent sql.NullInt64
		if rec.Level > 0 {
			parent = sql.NullInt64{Int64: stack[rec.Level-1], Valid: true}
		}
		position := positions[parent.Int64]
		positions[parent.Int64]++

		if _, err := insertCat.ExecContext(ctx, id, rec.Name, parent, rec.Level, position); err != nil {
			return fmt.Errorf("insert category %q: %w", rec.Name, err)
		}
		for _, g := range core.AgeGroups() {
			v, ok := rec.Values[g]
			if !ok {
				return fmt.Errorf("%w %q for category %q", core.ErrMissingAgeGroup, g, rec.Name)
			}
			if _, err := insertVal.ExecContext(ctx, id, g, v.Cents); err != nil {
				return fmt.Errorf("insert value %q/%s: %w", rec.Name, g, err)
			}
		}
	}

	for _, kind := range []core.MultiplierKind{core.KindHouseholdSize, core.KindIncome, core.KindDwelling} {
		for i, factor := range m.Table(kind) {
			_, err := tx.ExecContext(ctx, r.rebind(
				"INSERT INTO multipliers (kind, selector, factor, position) VALUES (?, ?, ?, ?)"),
				string(kind), factor.Selector, factor.Value.String(), i)
			if err != nil {
				return fmt.Errorf("insert multiplier %s/%s: %w", kind, factor.Selector, err)
			}
		}
	}

	meta := map[string]string{
		"source":      info.Source,
		"location":    info.Location,
		"categories":  strconv.Itoa(f.Len()),
		"imported_at": info.ImportedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		_, err := tx.ExecContext(ctx, r.rebind(
			"INSERT INTO dataset_meta (meta_key, meta_value) VALUES (?, ?) "+
				"ON CONFLICT (meta_key) DO UPDATE SET meta_value = excluded.meta_value"), k, v)
		if err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.InfoContext(ctx, "Dataset saved", "driver", r.driver, "categories", f.Len(), "source", info.Source)
	return nil
}

// LoadForest rebuilds the stored forest. An empty store is ErrEmptyDataset.
func (r *Repository) LoadForest(ctx context.Context) (*core.Forest, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, depth FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	index := map[int64]int{}
	for rows.Next() {
		var (
			id    int64
			name  string
			depth int
		)
		if err := rows.Scan(&id, &name, &depth); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		index[id] = len(records)
		records = append(records, core.Record{Name: name, Level: depth, Values: map[string]core.Money{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	vals, err := r.db.QueryContext(ctx, "SELECT category_id, age_group, amount_cents FROM category_values")
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer vals.Close()
	for vals.Next() {
		var (
			id    int64
			group string
			cents int64
		)
		if err := vals.Scan(&id, &group, &cents); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		records[i].Values[group] = core.Money{Cents: cents}
	}
	if err := vals.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}

	return core.BuildForest(records)
}

func (r *Repository) ReadMultipliers(ctx context.Context) (core.Multipliers, error) {
	var m core.Multipliers
	rows, err := r.db.QueryContext(ctx, "SELECT kind, selector, factor FROM multipliers ORDER BY kind, position")
	if err != nil {
		return m, fmt.Errorf("query multipliers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, selector, factor string
		if err := rows.Scan(&kind, &selector, &factor); err != nil {
			return m, fmt.Errorf("scan multiplier: %w", err)
		}
		v, err := decimal.NewFromString(factor)
		if err != nil {
			return m, fmt.Errorf("multiplier %s/%s: %w", kind, selector, err)
		}
		if err := m.Set(core.MultiplierKind(kind), selector, v); err != nil {
			return m, err
		}
	}
	return m, rows.Err()
}

// LastImport returns metadata about the stored dataset.
func (r *Repository) LastImport(ctx context.Context) (ImportInfo, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT meta_key, meta_value FROM dataset_meta")
	if err != nil {
		return ImportInfo{}, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()
	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return ImportInfo{}, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return ImportInfo{}, err
	}
	if len(meta) == 0 {
		return ImportInfo{}, ErrEmptyDataset
	}
	info := ImportInfo{Source: meta["source"], Location: meta["location"]}
	info.Categories, _ = strconv.Atoi(meta["categories"])
	info.ImportedAt, _ = time.Parse(time.RFC3339, meta["imported_at"])
	return info, nil
}
