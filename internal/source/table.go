// Package source defines the data-source ports and the tabular layout
// shared by the workbook and spreadsheet loaders.
package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"hhspend/internal/core"
)

var (
	ErrNoHeader      = errors.New("no header row with age group columns")
	ErrMissingColumn = errors.New("missing column")
	ErrBadLevel      = errors.New("invalid level")
)

// header describes where each field lives in a row.
type header struct {
	row   int
	name  int
	level int // -1 when depth comes from indentation
	ages  map[string]int
}

// findHeader returns the first row that carries at least one age group
// label. Every age group must then be present.
func findHeader(rows [][]string) (header, error) {
	for i, row := range rows {
		h := header{row: i, name: -1, level: -1, ages: map[string]int{}}
		for j, cell := range row {
			if g, ok := core.NormalizeAgeGroup(cell); ok {
				if _, dup := h.ages[g]; !dup {
					h.ages[g] = j
				}
				continue
			}
			if strings.EqualFold(strings.TrimSpace(cell), "level") {
				h.level = j
			}
		}
		if len(h.ages) == 0 {
			continue
		}
		for _, g := range core.AgeGroups() {
			if _, ok := h.ages[g]; !ok {
				return header{}, fmt.Errorf("%w: age group %q", ErrMissingColumn, g)
			}
		}
		// name column is the first one that is neither level nor an age group
		for j := range row {
			if j == h.level || isAgeColumn(h.ages, j) {
				continue
			}
			h.name = j
			break
		}
		if h.name < 0 {
			return header{}, fmt.Errorf("%w: category name", ErrMissingColumn)
		}
		return h, nil
	}
	return header{}, ErrNoHeader
}

func isAgeColumn(ages map[string]int, col int) bool {
	for _, c := range ages {
		if c == col {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// indentLevel derives the depth from leading spaces, two per level.
func indentLevel(name string) int {
	n := len(name) - len(strings.TrimLeft(name, " "))
	return n / 2
}

// IsTotalRow reports whether a row is an aggregate line. Such rows and
// everything nested below them are not categories.
func IsTotalRow(name string) bool {
	return strings.Contains(strings.ToLower(name), "total")
}

// ParseRows converts a sheet into pre-ordered forest records. Rows above
// the header and rows with an empty name are ignored.
func ParseRows(rows [][]string) ([]core.Record, error) {
	h, err := findHeader(rows)
	if err != nil {
		return nil, err
	}
	var (
		out       []core.Record
		skipBelow = -1
	)
	for i := h.row + 1; i < len(rows); i++ {
		row := rows[i]
		raw := cell(row, h.name)
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		level := indentLevel(raw)
		if h.level >= 0 {
			level, err = strconv.Atoi(strings.TrimSpace(cell(row, h.level)))
			if err != nil || level < 0 {
				return nil, fmt.Errorf("row %d %q: %w %q", i+1, name, ErrBadLevel, cell(row, h.level))
			}
		}

		if skipBelow >= 0 {
			if level > skipBelow {
				continue
			}
			skipBelow = -1
		}
		if IsTotalRow(name) {
			skipBelow = level
			continue
		}

		values := make(map[string]core.Money, len(h.ages))
		for g, col := range h.ages {
			m, err := core.ParseAmount(cell(row, col))
			if err != nil {
				return nil, fmt.Errorf("row %d %q, %s: %w", i+1, name, g, err)
			}
			values[g] = m
		}
		out = append(out, core.Record{Name: name, Level: level, Values: values})
	}
	return out, nil
}

// ParseForest is ParseRows followed by core.BuildForest.
func ParseForest(rows [][]string) (*core.Forest, error) {
	records, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}
	return core.BuildForest(records)
}

// ParseMultiplierRows reads a Kind | Selector | Factor sheet. The header
// row is required; blank rows are skipped.
func ParseMultiplierRows(rows [][]string) (core.Multipliers, error) {
	var m core.Multipliers
	hdr := -1
	kindCol, selCol, factorCol := -1, -1, -1
	for i, row := range rows {
		for j, c := range row {
			switch strings.ToLower(strings.TrimSpace(c)) {
			case "kind":
				kindCol = j
			case "selector":
				selCol = j
			case "factor":
				factorCol = j
			}
		}
		if kindCol >= 0 && selCol >= 0 && factorCol >= 0 {
			hdr = i
			break
		}
		kindCol, selCol, factorCol = -1, -1, -1
	}
	if hdr < 0 {
		return m, fmt.Errorf("%w: Kind, Selector and Factor", ErrMissingColumn)
	}
	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		kindRaw := strings.TrimSpace(cell(row, kindCol))
		sel := strings.TrimSpace(cell(row, selCol))
		if kindRaw == "" && sel == "" {
			continue
		}
		kind, err := core.ParseMultiplierKind(kindRaw)
		if err != nil {
			return m, fmt.Errorf("row %d: %w", i+1, err)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(cell(row, factorCol)))
		if err != nil {
			return m, fmt.Errorf("row %d: %w: %q", i+1, core.ErrInvalidFactor, cell(row, factorCol))
		}
		if err := m.Set(kind, sel, v); err != nil {
			return m, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return m, nil
}
