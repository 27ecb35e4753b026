package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hhspend/internal/core"
)

func TestSeededDataset(t *testing.T) {
	s, err := NewSeeded()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	f, err := s.LoadForest(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := f.FindByName("Total Household Expenditure"); err == nil {
		t.Fatalf("total rows must be dropped")
	}
	food, err := f.FindByName("Food")
	if err != nil || food.Depth != 1 {
		t.Fatalf("Food = %+v, %v", food, err)
	}
	if len(f.FindByLevel(0)) != 9 {
		t.Fatalf("expected 9 top-level categories, got %d", len(f.FindByLevel(0)))
	}

	// every parent equals the sum of its children in the seed
	for _, c := range f.All() {
		if !c.HasChildren() {
			continue
		}
		for _, g := range core.AgeGroups() {
			var sum int64
			for _, child := range f.Children(c) {
				sum += child.Values[g].Cents
			}
			if sum != c.Values[g].Cents {
				t.Fatalf("%s/%s: parent %d, children %d", c.Name, g, c.Values[g].Cents, sum)
			}
		}
	}

	// the root categories add up to the reported total of every age group
	reported := reportedTotals(t)
	if len(reported) != len(core.AgeGroups()) {
		t.Fatalf("reported totals cover %d age groups, want %d", len(reported), len(core.AgeGroups()))
	}
	totals, err := core.SpendingByAgeGroup(f, core.AgeGroups())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	for _, total := range totals {
		if want := reported[total.AgeGroup]; total.Amount != want {
			t.Errorf("%s: root categories sum to %d, reported %d", total.AgeGroup, total.Amount.Cents, want.Cents)
		}
	}
	if totals[0].AgeGroup != core.AgeTotal || totals[0].Amount.Cents != 368170 {
		t.Fatalf("Total = %+v", totals[0])
	}

	m, _ := s.ReadMultipliers(context.Background())
	if len(m.HouseholdSize) != 6 || len(m.Income) != 5 || len(m.Dwelling) != 6 {
		t.Fatalf("unexpected multipliers: %+v", m)
	}
}

// reportedTotals reads the seed's "Total Household Expenditure" row, which
// the loader drops, keyed by age group.
func reportedTotals(t *testing.T) map[string]core.Money {
	t.Helper()
	rows, err := readTSV(seedExpenditure)
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}
	header := rows[0]
	for _, row := range rows[1:] {
		if row[0] != "Total Household Expenditure" {
			continue
		}
		out := make(map[string]core.Money)
		for i, label := range header {
			group, ok := core.NormalizeAgeGroup(label)
			if !ok || i >= len(row) {
				continue
			}
			amount, err := core.ParseAmount(row[i])
			if err != nil {
				t.Fatalf("%s total %q: %v", group, row[i], err)
			}
			out[group] = amount
		}
		return out
	}
	t.Fatal("seed has no Total Household Expenditure row")
	return nil
}

func TestNewFromFilesOverride(t *testing.T) {
	dir := t.TempDir()
	// No files -> embedded seed
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	f, _ := s.LoadForest(context.Background())
	if f.Len() == 0 {
		t.Fatalf("expected embedded seed when files missing")
	}

	content := "Category\tLevel\tTotal\tBelow 25\t25 - 29\t30 - 34\t35 - 39\t40 - 44\t45 - 49\t50 - 54\t55 - 59\t60 - 64\t65 & Over\n" +
		"# comment\n" +
		"Food\t0\t5\t5\t5\t5\t5\t5\t5\t5\t5\t5\t5\n" +
		"Groceries\t1\t3\t3\t3\t3\t3\t3\t3\t3\t3\t3\t3\n"
	if err := os.WriteFile(filepath.Join(dir, ExpenditureFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	f, _ = s.LoadForest(context.Background())
	if f.Len() != 2 {
		t.Fatalf("expected 2 categories, got %d", f.Len())
	}
	m, _ := s.ReadMultipliers(context.Background())
	if m.Empty() {
		t.Fatalf("multipliers should fall back to the embedded seed")
	}

	if err := os.WriteFile(filepath.Join(dir, ExpenditureFile), []byte("nothing here\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected error for a seed without header")
	}
}
