package source

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hhspend/internal/core"
)

func headerRow(first ...string) []string {
	h := append([]string{}, first...)
	h = append(h, "Average")
	return append(h, core.AgeGroups()[1:]...)
}

func amountRow(first ...string) []string {
	row := append([]string{}, first...)
	for range core.AgeGroups() {
		row = append(row, "1.00")
	}
	return row
}

func TestParseRowsIndented(t *testing.T) {
	rows := [][]string{
		{"Average Monthly Household Expenditure"},
		headerRow("Category"),
		amountRow("Total Expenditure"),
		amountRow("  Hidden Under Total"),
		amountRow("Food"),
		amountRow("  Groceries"),
		amountRow("  Dining Out"),
		{""},
		amountRow("Transport"),
	}
	recs, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []struct {
		name  string
		level int
	}{{"Food", 0}, {"Groceries", 1}, {"Dining Out", 1}, {"Transport", 0}}
	if len(recs) != len(want) {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	for i, w := range want {
		if recs[i].Name != w.name || recs[i].Level != w.level {
			t.Fatalf("record %d = %q/%d, want %q/%d", i, recs[i].Name, recs[i].Level, w.name, w.level)
		}
		if recs[i].Values[core.AgeTotal].Cents != 100 {
			t.Fatalf("Average column should map to Total: %+v", recs[i].Values)
		}
	}
}

func TestParseRowsLevelColumn(t *testing.T) {
	rows := [][]string{
		headerRow("Category", "Level"),
		amountRow("Food", "0"),
		amountRow("Groceries", "1"),
	}
	f, err := ParseForest(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, err := f.FindByName("Groceries")
	if err != nil || g.Depth != 1 {
		t.Fatalf("Groceries = %+v, %v", g, err)
	}

	rows = append(rows, amountRow("Bad", "x"))
	if _, err := ParseRows(rows); !errors.Is(err, ErrBadLevel) {
		t.Fatalf("expected ErrBadLevel, got %v", err)
	}
}

func TestParseRowsErrors(t *testing.T) {
	if _, err := ParseRows([][]string{{"Category", "Something"}}); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
	if _, err := ParseRows([][]string{{"Category", "Total", "Below 25"}}); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	bad := amountRow("Food")
	bad[3] = "lots"
	if _, err := ParseRows([][]string{headerRow("Category"), bad}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseRowsNilCells(t *testing.T) {
	row := amountRow("Food")
	row[1] = "-"
	row[2] = "na"
	recs, err := ParseRows([][]string{headerRow("Category"), row})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if recs[0].Values[core.AgeTotal].Cents != 0 || recs[0].Values[core.AgeBelow25].Cents != 0 {
		t.Fatalf("nil cells should parse as zero: %+v", recs[0].Values)
	}
}

func TestParseMultiplierRows(t *testing.T) {
	rows := [][]string{
		{"Kind", "Selector", "Factor"},
		{"Household Size", "1", "0.45"},
		{"", "", ""},
		{"dwelling", "HDB 4-Room", "0.95"},
	}
	m, err := ParseMultiplierRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, err := m.Lookup(core.KindDwelling, "HDB 4-Room")
	if err != nil || !v.Equal(decimal.RequireFromString("0.95")) {
		t.Fatalf("dwelling factor = %s, %v", v, err)
	}
	if len(m.HouseholdSize) != 1 || len(m.Income) != 0 {
		t.Fatalf("unexpected tables: %+v", m)
	}

	if _, err := ParseMultiplierRows([][]string{{"a", "b"}}); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if _, err := ParseMultiplierRows([][]string{{"Kind", "Selector", "Factor"}, {"colour", "red", "1"}}); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := ParseMultiplierRows([][]string{{"Kind", "Selector", "Factor"}, {"income", "x", "abc"}}); !errors.Is(err, core.ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}
}
