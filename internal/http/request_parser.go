// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating query
// parameters shared by the explorer, estimator and JSON handlers.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"hhspend/internal/core"
)

// ErrInvalidAgeGroup is returned for an age query value outside the closed
// set of age groups.
var ErrInvalidAgeGroup = errors.New("unknown age group")

// maxDrillPath bounds the number of path parameters read from a request.
// The forest is at most three levels deep; anything longer is garbage.
const maxDrillPath = 8

// ParseAgeGroup reads the "age" parameter. A missing value selects the
// Total column.
func ParseAgeGroup(query url.Values) (string, error) {
	raw := sanitizeInput(query.Get("age"))
	if raw == "" {
		return core.AgeTotal, nil
	}
	age, ok := core.NormalizeAgeGroup(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgeGroup, raw)
	}
	return age, nil
}

// ParseDrillPath returns the selected category names from the repeated
// "path" parameter, outermost first. Blank entries are dropped.
func ParseDrillPath(query url.Values) []string {
	var path []string
	for _, v := range query["path"] {
		name := sanitizeInput(v)
		if name == "" {
			continue
		}
		path = append(path, name)
		if len(path) == maxDrillPath {
			break
		}
	}
	return path
}

// ParseEstimateInput reads the estimator form. Selector validity is left to
// the estimator, which knows the loaded multiplier tables.
func ParseEstimateInput(query url.Values) (core.EstimateInput, error) {
	age, err := ParseAgeGroup(query)
	if err != nil {
		return core.EstimateInput{}, err
	}
	return core.EstimateInput{
		AgeGroup:      age,
		HouseholdSize: sanitizeInput(query.Get("household_size")),
		Income:        sanitizeInput(query.Get("income")),
		Dwelling:      sanitizeInput(query.Get("dwelling")),
	}, nil
}

// drillQuery builds the query string selecting path under ageGroup.
func drillQuery(ageGroup string, path []string) string {
	q := url.Values{"age": {ageGroup}}
	for _, p := range path {
		q.Add("path", p)
	}
	return q.Encode()
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers. HEAD is
// accepted as well.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
