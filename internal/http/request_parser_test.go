package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"hhspend/internal/core"
)

func TestParseAgeGroup(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr bool
	}{
		{"missing defaults to total", url.Values{}, core.AgeTotal, false},
		{"exact label", url.Values{"age": {"30 - 34"}}, core.Age30to34, false},
		{"compact label", url.Values{"age": {"30-34"}}, core.Age30to34, false},
		{"average alias", url.Values{"age": {"Average"}}, core.AgeTotal, false},
		{"padded", url.Values{"age": {"  65 & Over "}}, core.Age65AndUp, false},
		{"unknown", url.Values{"age": {"centenarians"}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAgeGroup(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAgeGroup) {
					t.Fatalf("error = %v, want ErrInvalidAgeGroup", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAgeGroup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDrillPath(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  []string
	}{
		{"none", url.Values{}, nil},
		{"ordered", url.Values{"path": {"Food", "Dining Out"}}, []string{"Food", "Dining Out"}},
		{"blank dropped", url.Values{"path": {"", " Food ", "\x00"}}, []string{"Food"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDrillPath(tt.query); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDrillPath() = %#v, want %#v", got, tt.want)
			}
		})
	}

	long := url.Values{}
	for i := 0; i < maxDrillPath+5; i++ {
		long.Add("path", "x")
	}
	if got := len(ParseDrillPath(long)); got != maxDrillPath {
		t.Errorf("len(path) = %d, want %d", got, maxDrillPath)
	}
}

func TestParseEstimateInput(t *testing.T) {
	q := url.Values{
		"age":            {"25 - 29"},
		"household_size": {"3"},
		"income":         {" $6,000 - $8,999 "},
		"dwelling":       {"HDB 4-Room"},
	}
	got, err := ParseEstimateInput(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := core.EstimateInput{
		AgeGroup:      core.Age25to29,
		HouseholdSize: "3",
		Income:        "$6,000 - $8,999",
		Dwelling:      "HDB 4-Room",
	}
	if got != want {
		t.Errorf("ParseEstimateInput() = %+v, want %+v", got, want)
	}

	if _, err := ParseEstimateInput(url.Values{"age": {"nope"}}); !errors.Is(err, ErrInvalidAgeGroup) {
		t.Errorf("error = %v, want ErrInvalidAgeGroup", err)
	}
}

func TestDrillQuery(t *testing.T) {
	got := drillQuery("Total", []string{"Food", "Food Serving Services"})
	want := "age=Total&path=Food&path=Food+Serving+Services"
	if got != want {
		t.Errorf("drillQuery() = %q, want %q", got, want)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"tab\tkept", "tab\tkept"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRequireGET(t *testing.T) {
	tests := []struct {
		method  string
		allowed bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodPost, false},
		{http.MethodDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := RequireGET(httptest.NewRequest(tt.method, "/", nil))
			if (resp == nil) != tt.allowed {
				t.Fatalf("RequireGET(%s) allowed = %v, want %v", tt.method, resp == nil, tt.allowed)
			}
			if resp != nil {
				w := httptest.NewRecorder()
				resp.Write(w)
				if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET, HEAD" {
					t.Errorf("unexpected response %d Allow=%q", w.Code, w.Header().Get("Allow"))
				}
			}
		})
	}
}
