package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hhspend/internal/core"
)

// formatDollars formats cents as a Singapore dollar string (e.g. "$1,234.56").
func formatDollars(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// formatDelta renders a change with an explicit sign ("+$12.00", "-$3.50").
func formatDelta(m core.Money) string {
	if m.Cents > 0 {
		return "+" + formatDollars(m)
	}
	return formatDollars(m)
}

// deltaClass picks the CSS modifier for a change.
func deltaClass(m core.Money) string {
	switch {
	case m.Cents > 0:
		return "metric__delta--up"
	case m.Cents < 0:
		return "metric__delta--down"
	default:
		return "metric__delta--neutral"
	}
}

// panelTitle names a drill-down panel after the category it expands.
func panelTitle(parent string) string {
	if parent == "" {
		return "All Expenditures"
	}
	// Casers keep state and are not safe for concurrent use.
	return cases.Title(language.English).String(parent) + " Expenditures"
}

// barWidth is the percentage of the widest bar, at least 1 for non-zero
// amounts so small categories stay visible.
func barWidth(amount, widest core.Money) int {
	if widest.Cents <= 0 || amount.Cents <= 0 {
		return 0
	}
	w := int(amount.Cents * 100 / widest.Cents)
	if w < 1 {
		return 1
	}
	return w
}

func maxAmount(rows []core.Row) core.Money {
	var m core.Money
	for _, r := range rows {
		if r.Amount.Cents > m.Cents {
			m = r.Amount
		}
	}
	return m
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAgeGroup), errors.Is(err, core.ErrUnknownSelector):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidSelection):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the user-facing text for an error. Internal failures are
// not echoed back.
func errorMessage(err error) string {
	if errorStatus(err) == http.StatusInternalServerError {
		return "Something went wrong while preparing this table"
	}
	return err.Error()
}
