package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1,234.5", 123450, true},
		{"$12.345", 1235, true},
		{" 0.01 ", 1, true},
		{"-", 0, true},
		{"na", 0, true},
		{"n.a.", 0, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-5", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
	if _, err := ParseAmount("-5"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestEstimateSpending(t *testing.T) {
	f := foodForest(t)
	m := Multipliers{}
	_ = m.Set(KindHouseholdSize, "2", decimal.RequireFromString("0.5"))
	_ = m.Set(KindIncome, "mid", decimal.RequireFromString("1"))
	_ = m.Set(KindDwelling, "HDB", decimal.RequireFromString("2"))

	est, err := EstimateSpending(f, EstimateInput{AgeGroup: AgeTotal, HouseholdSize: "2", Income: "mid", Dwelling: "HDB"}, m)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.Base.Cents != 900 || est.Total.Cents != 900 || !est.Factor.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected estimate: base=%d total=%d factor=%s", est.Base.Cents, est.Total.Cents, est.Factor)
	}
	if len(est.ByCategory) != 2 || est.ByCategory[0].Name != "Food" {
		t.Fatalf("breakdown: %+v", est.ByCategory)
	}

	_, err = EstimateSpending(f, EstimateInput{AgeGroup: AgeTotal, HouseholdSize: "9", Income: "mid", Dwelling: "HDB"}, m)
	if !errors.Is(err, ErrUnknownSelector) {
		t.Fatalf("expected ErrUnknownSelector, got %v", err)
	}
}

func TestMultipliersSet(t *testing.T) {
	m := DefaultMultipliers()
	if err := m.Set(KindDwelling, "HDB 3-Room", decimal.RequireFromString("0.85")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := m.Lookup(KindDwelling, "HDB 3-Room")
	if err != nil || !v.Equal(decimal.RequireFromString("0.85")) {
		t.Fatalf("lookup = %s, %v", v, err)
	}
	if err := m.Set(KindIncome, "x", decimal.Zero); !errors.Is(err, ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}
	if err := m.Set("colour", "x", decimal.NewFromInt(1)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if k, err := ParseMultiplierKind("Dwelling Type"); err != nil || k != KindDwelling {
		t.Fatalf("ParseMultiplierKind = %q, %v", k, err)
	}
}
