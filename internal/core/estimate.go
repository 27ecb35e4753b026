package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownSelector = errors.New("unknown multiplier selector")
	ErrUnknownKind     = errors.New("unknown multiplier kind")
	ErrInvalidFactor   = errors.New("multiplier factor must be positive")
)

// MultiplierKind names one of the flat multiplier tables.
type MultiplierKind string

const (
	KindHouseholdSize MultiplierKind = "household_size"
	KindIncome        MultiplierKind = "income"
	KindDwelling      MultiplierKind = "dwelling"
)

// ParseMultiplierKind accepts the canonical kind names plus a few
// spreadsheet spellings ("Household Size", "Dwelling Type").
func ParseMultiplierKind(s string) (MultiplierKind, error) {
	k := strings.ToLower(strings.Join(strings.Fields(s), "_"))
	switch k {
	case "household_size", "size":
		return KindHouseholdSize, nil
	case "income", "household_income", "monthly_income":
		return KindIncome, nil
	case "dwelling", "dwelling_type":
		return KindDwelling, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Factor is one selector of a multiplier table.
type Factor struct {
	Selector string
	Value    decimal.Decimal
}

// Multipliers holds the three tables the estimator scales by. Each table
// keeps its loaded order, which is the order of the form options.
type Multipliers struct {
	HouseholdSize []Factor
	Income        []Factor
	Dwelling      []Factor
}

// Table returns the factors of one kind.
func (m Multipliers) Table(kind MultiplierKind) []Factor {
	switch kind {
	case KindHouseholdSize:
		return m.HouseholdSize
	case KindIncome:
		return m.Income
	case KindDwelling:
		return m.Dwelling
	}
	return nil
}

// Set adds or replaces a factor.
func (m *Multipliers) Set(kind MultiplierKind, selector string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return fmt.Errorf("%w: %s/%s=%s", ErrInvalidFactor, kind, selector, value)
	}
	var table *[]Factor
	switch kind {
	case KindHouseholdSize:
		table = &m.HouseholdSize
	case KindIncome:
		table = &m.Income
	case KindDwelling:
		table = &m.Dwelling
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for i := range *table {
		if (*table)[i].Selector == selector {
			(*table)[i].Value = value
			return nil
		}
	}
	*table = append(*table, Factor{Selector: selector, Value: value})
	return nil
}

// Empty reports whether no table has any factor.
func (m Multipliers) Empty() bool {
	return len(m.HouseholdSize) == 0 && len(m.Income) == 0 && len(m.Dwelling) == 0
}

// Lookup returns the factor for selector in the table of kind.
func (m Multipliers) Lookup(kind MultiplierKind, selector string) (decimal.Decimal, error) {
	for _, f := range m.Table(kind) {
		if f.Selector == selector {
			return f.Value, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s %q", ErrUnknownSelector, kind, selector)
}

// DefaultMultipliers are indicative factors relative to the average
// household, used when the data source ships no multiplier tables.
func DefaultMultipliers() Multipliers {
	f := func(sel, v string) Factor {
		return Factor{Selector: sel, Value: decimal.RequireFromString(v)}
	}
	return Multipliers{
		HouseholdSize: []Factor{
			f("1", "0.45"), f("2", "0.70"), f("3", "0.90"),
			f("4", "1.00"), f("5", "1.10"), f("6 & Over", "1.25"),
		},
		Income: []Factor{
			f("Below $3,000", "0.55"), f("$3,000 - $5,999", "0.75"),
			f("$6,000 - $8,999", "0.95"), f("$9,000 - $11,999", "1.10"),
			f("$12,000 & Over", "1.45"),
		},
		Dwelling: []Factor{
			f("HDB 1- & 2-Room", "0.60"), f("HDB 3-Room", "0.80"),
			f("HDB 4-Room", "0.95"), f("HDB 5-Room & Executive", "1.10"),
			f("Condominiums & Other Apartments", "1.45"), f("Landed Properties", "1.70"),
		},
	}
}

// EstimateInput is the estimator form.
type EstimateInput struct {
	AgeGroup      string
	HouseholdSize string
	Income        string
	Dwelling      string
}

// Estimate is a personal expenditure projection: the average household
// spending for the age group scaled by the selected multipliers.
type Estimate struct {
	Input      EstimateInput
	Base       Money
	Factor     decimal.Decimal
	Total      Money
	ByCategory []Row
}

// EstimateSpending scales every root category of the age group by the
// product of the three selected factors. Rounding is per row; Total is
// the sum of the rounded rows so the breakdown always adds up.
func EstimateSpending(f *Forest, in EstimateInput, m Multipliers) (Estimate, error) {
	rows, err := BuildTable(f.FindByLevel(0), in.AgeGroup)
	if err != nil {
		return Estimate{}, err
	}
	factor := decimal.NewFromInt(1)
	for _, sel := range []struct {
		kind MultiplierKind
		val  string
	}{
		{KindHouseholdSize, in.HouseholdSize},
		{KindIncome, in.Income},
		{KindDwelling, in.Dwelling},
	} {
		v, err := m.Lookup(sel.kind, sel.val)
		if err != nil {
			return Estimate{}, err
		}
		factor = factor.Mul(v)
	}

	scaled := make([]Row, len(rows))
	for i, r := range rows {
		cents := decimal.NewFromInt(r.Amount.Cents).Mul(factor).Round(0).IntPart()
		scaled[i] = Row{Name: r.Name, Amount: Money{Cents: cents}, HasChildren: r.HasChildren}
	}
	return Estimate{
		Input:      in,
		Base:       SumRows(rows),
		Factor:     factor,
		Total:      SumRows(scaled),
		ByCategory: scaled,
	}, nil
}
