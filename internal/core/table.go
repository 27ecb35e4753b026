package core

import (
	"fmt"
	"sort"
	"strings"
)

// Age group labels of the main income earner, in display order.
const (
	AgeTotal   = "Total"
	AgeBelow25 = "Below 25"
	Age25to29  = "25 - 29"
	Age30to34  = "30 - 34"
	Age35to39  = "35 - 39"
	Age40to44  = "40 - 44"
	Age45to49  = "45 - 49"
	Age50to54  = "50 - 54"
	Age55to59  = "55 - 59"
	Age60to64  = "60 - 64"
	Age65AndUp = "65 & Over"
	ageAverage = "Average"
)

// AgeGroups returns the closed set of age group labels.
func AgeGroups() []string {
	return []string{
		AgeTotal, AgeBelow25, Age25to29, Age30to34, Age35to39, Age40to44,
		Age45to49, Age50to54, Age55to59, Age60to64, Age65AndUp,
	}
}

// IsAgeGroup reports whether label is one of AgeGroups.
func IsAgeGroup(label string) bool {
	for _, g := range AgeGroups() {
		if g == label {
			return true
		}
	}
	return false
}

// NormalizeAgeGroup maps a spreadsheet header onto a known label. The
// second result is false for headers that are not age groups.
func NormalizeAgeGroup(header string) (string, bool) {
	h := strings.Join(strings.Fields(header), " ")
	if strings.EqualFold(h, ageAverage) {
		return AgeTotal, true
	}
	for _, g := range AgeGroups() {
		if strings.EqualFold(h, g) {
			return g, true
		}
	}
	// "25-29" style headers
	compact := strings.ReplaceAll(h, " ", "")
	for _, g := range AgeGroups() {
		if strings.EqualFold(compact, strings.ReplaceAll(g, " ", "")) {
			return g, true
		}
	}
	return "", false
}

// Row is a display-ready projection of one category.
type Row struct {
	Name        string
	Amount      Money
	HasChildren bool
}

// BuildTable projects categories into rows for one age group, sorted by
// amount descending. Ties keep their input order.
func BuildTable(categories []*Category, ageGroup string) ([]Row, error) {
	rows := make([]Row, 0, len(categories))
	for _, c := range categories {
		amount, err := c.ValueFor(ageGroup)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Name: c.Name, Amount: amount, HasChildren: c.HasChildren()})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.Cents > rows[j].Amount.Cents
	})
	return rows, nil
}

// SumRows totals the amount column.
func SumRows(rows []Row) Money {
	var total int64
	for _, r := range rows {
		total += r.Amount.Cents
	}
	return Money{Cents: total}
}

// AgeGroupTotal is the household expenditure summed over the root
// categories for one age group.
type AgeGroupTotal struct {
	AgeGroup string
	Amount   Money
}

// SpendingByAgeGroup totals the root categories for each group.
func SpendingByAgeGroup(f *Forest, groups []string) ([]AgeGroupTotal, error) {
	roots := f.FindByLevel(0)
	out := make([]AgeGroupTotal, 0, len(groups))
	for _, g := range groups {
		rows, err := BuildTable(roots, g)
		if err != nil {
			return nil, fmt.Errorf("spending for %q: %w", g, err)
		}
		out = append(out, AgeGroupTotal{AgeGroup: g, Amount: SumRows(rows)})
	}
	return out, nil
}
