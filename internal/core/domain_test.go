package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPeriodValidate(t *testing.T) {
	cases := []struct {
		p   Period
		err error
	}{
		{Period{Year: 2025, Month: 1}, nil},
		{Period{Year: 2000, Month: 12}, nil},
		{Period{Year: 2100, Month: 6}, nil},
		{Period{Year: 1999, Month: 6}, ErrInvalidYear},
		{Period{Year: 2101, Month: 6}, ErrInvalidYear},
		{Period{Year: 2025, Month: 0}, ErrInvalidMonth},
		{Period{Year: 2025, Month: 13}, ErrInvalidMonth},
	}
	for i, tc := range cases {
		if err := tc.p.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestPeriodBoundsAndContains(t *testing.T) {
	p := Period{Year: 2024, Month: 12}
	start, end := p.Bounds()
	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", end)
	}

	if !p.Contains(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatal("last second of the month should be contained")
	}
	if p.Contains(end) {
		t.Fatal("end bound is exclusive")
	}
	// 00:30 on Jan 1st in UTC+2 is still December 31st in UTC.
	cest := time.FixedZone("UTC+2", 2*60*60)
	if !p.Contains(time.Date(2025, 1, 1, 0, 30, 0, 0, cest)) {
		t.Fatal("times must be compared in UTC")
	}
}

func TestCurrentPeriod(t *testing.T) {
	tz := time.FixedZone("UTC-5", -5*60*60)
	got := CurrentPeriod(time.Date(2025, 2, 28, 22, 0, 0, 0, tz))
	if got != (Period{Year: 2025, Month: 3}) {
		t.Fatalf("expected 2025-03, got %+v", got)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"EUR", "EUR", true},
		{" usd ", "USD", true},
		{"eu", "", false},
		{"EURO", "", false},
		{"E1R", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrency(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("%q expected ErrInvalidCurrency, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:          decimal.RequireFromString("12.50"),
		Currency:        "EUR",
		Description:     "lunch",
		TransactionDate: time.Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		mutate func(*Transaction)
		err    error
	}{
		{func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{func(tx *Transaction) { tx.Currency = "eur" }, ErrInvalidCurrency},
		{func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{func(tx *Transaction) { tx.Description = strings.Repeat("a", 501) }, ErrDescriptionTooLong},
	}
	for i, tc := range bads {
		tx := good
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Food", Color: "#FF6B6B", MonthlyBudget: decimal.NewFromInt(300)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{Name: "F", Color: "#FF6B6B"},
		{Name: "Food", Color: "red"},
		{Name: "Food", Color: "#FF6B6B", MonthlyBudget: decimal.NewFromInt(-1)},
		{Name: "Food", Color: "#FF6B6B", MonthlyBudget: decimal.NewFromInt(1_000_001)},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDefaultCategoriesAreFresh(t *testing.T) {
	a := DefaultCategories()
	a[0].Name = "changed"
	b := DefaultCategories()
	if b[0].Name != "Food" {
		t.Fatalf("default table was mutated through a returned slice: %q", b[0].Name)
	}
	for _, tpl := range b {
		c := Category{Name: tpl.Name, Color: tpl.Color, MonthlyBudget: tpl.Budget}
		if err := c.Validate(); err != nil {
			t.Fatalf("default category %q invalid: %v", tpl.Name, err)
		}
	}
}
