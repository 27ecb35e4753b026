// Package memory serves the seeded expenditure dataset from memory.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hhspend/internal/core"
	"hhspend/internal/source"
)

const (
	ExpenditureFile = "seed_expenditure.tsv"
	MultipliersFile = "seed_multipliers.tsv"
)

//go:embed seed_expenditure.tsv
var seedExpenditure []byte

//go:embed seed_multipliers.tsv
var seedMultipliers []byte

// Store holds a forest built once at construction.
type Store struct {
	forest      *core.Forest
	multipliers core.Multipliers
}

var _ source.Dataset = (*Store)(nil)

func New(f *core.Forest, m core.Multipliers) *Store {
	return &Store{forest: f, multipliers: m}
}

// NewSeeded builds a store from the embedded dataset.
func NewSeeded() (*Store, error) {
	return parse(seedExpenditure, seedMultipliers)
}

// NewFromFiles reads seed files from base, falling back to the embedded
// copy for any file that does not exist.
func NewFromFiles(base string) (*Store, error) {
	exp, err := readOr(filepath.Join(base, ExpenditureFile), seedExpenditure)
	if err != nil {
		return nil, err
	}
	mult, err := readOr(filepath.Join(base, MultipliersFile), seedMultipliers)
	if err != nil {
		return nil, err
	}
	return parse(exp, mult)
}

func (s *Store) LoadForest(_ context.Context) (*core.Forest, error) {
	return s.forest, nil
}

func (s *Store) ReadMultipliers(_ context.Context) (core.Multipliers, error) {
	return s.multipliers, nil
}

func readOr(path string, fallback []byte) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func parse(exp, mult []byte) (*Store, error) {
	rows, err := readTSV(exp)
	if err != nil {
		return nil, fmt.Errorf("expenditure seed: %w", err)
	}
	f, err := source.ParseForest(rows)
	if err != nil {
		return nil, fmt.Errorf("expenditure seed: %w", err)
	}
	mrows, err := readTSV(mult)
	if err != nil {
		return nil, fmt.Errorf("multiplier seed: %w", err)
	}
	m, err := source.ParseMultiplierRows(mrows)
	if err != nil {
		return nil, fmt.Errorf("multiplier seed: %w", err)
	}
	return New(f, m), nil
}

func readTSV(b []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = '\t'
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
