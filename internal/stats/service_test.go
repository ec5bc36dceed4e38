package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
)

type fakeStore struct {
	categories   []core.Category
	transactions []core.Transaction
	preferred    string
	err          error
	fetches      int
}

func (f *fakeStore) FetchCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	f.fetches++
	return f.categories, f.err
}

func (f *fakeStore) FetchTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	f.fetches++
	return f.transactions, f.err
}

func (f *fakeStore) PreferredCurrency(ctx context.Context, userID int64) (string, error) {
	return f.preferred, f.err
}

func TestServiceGetMonthlyStats(t *testing.T) {
	store := &fakeStore{
		categories: []core.Category{food},
		transactions: []core.Transaction{
			tx(1, core.Int64Ptr(1), "10", "EUR", day(2025, 3, 4, 0)),
			tx(2, core.Int64Ptr(1), "20", "USD", day(2025, 3, 4, 0)),
		},
	}
	conv := &rateConverter{rates: map[string]decimal.Decimal{"USD": d("0.5")}}
	svc := NewService(store, conv, Options{}, nil)

	got, err := svc.GetMonthlyStats(context.Background(), 1, core.Period{Year: 2025, Month: 3}, "eur")
	if err != nil {
		t.Fatalf("GetMonthlyStats: %v", err)
	}
	if got.Year != 2025 || got.Month != 3 || got.PreferredCurrency != "EUR" {
		t.Errorf("unexpected header %d-%d %s", got.Year, got.Month, got.PreferredCurrency)
	}
	if !got.TotalSpentThisMonth.Equal(d("20")) {
		t.Errorf("TotalSpentThisMonth = %s, want 20", got.TotalSpentThisMonth)
	}
	if len(got.UnconvertedCurrencies) != 0 {
		t.Errorf("UnconvertedCurrencies = %v", got.UnconvertedCurrencies)
	}
}

func TestServiceRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		period    core.Period
		preferred string
		wantErr   error
	}{
		{"month 13", core.Period{Year: 2025, Month: 13}, "EUR", core.ErrInvalidMonth},
		{"month 0", core.Period{Year: 2025, Month: 0}, "EUR", core.ErrInvalidMonth},
		{"year too small", core.Period{Year: 1999, Month: 1}, "EUR", core.ErrInvalidYear},
		{"bad currency", core.Period{Year: 2025, Month: 1}, "EURO", core.ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := NewService(store, nil, Options{}, nil)
			_, err := svc.GetMonthlyStats(context.Background(), 1, tt.period, tt.preferred)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if store.fetches != 0 {
				t.Fatalf("store must not be queried for invalid input")
			}
		})
	}
}

func TestServiceStoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := NewService(&fakeStore{err: boom}, nil, Options{}, nil)
	_, err := svc.GetMonthlyStats(context.Background(), 1, core.Period{Year: 2025, Month: 1}, "EUR")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestServicePreferredCurrency(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, Options{}, nil)
	code, err := svc.PreferredCurrency(context.Background(), 1)
	if err != nil || code != core.DefaultCurrency {
		t.Fatalf("expected default %s, got %q (%v)", core.DefaultCurrency, code, err)
	}

	svc.SetDefaultCurrency("CHF")
	code, _ = svc.PreferredCurrency(context.Background(), 1)
	if code != "CHF" {
		t.Fatalf("expected CHF, got %s", code)
	}

	svc = NewService(&fakeStore{preferred: "USD"}, nil, Options{}, nil)
	code, _ = svc.PreferredCurrency(context.Background(), 1)
	if code != "USD" {
		t.Fatalf("expected stored USD, got %s", code)
	}
}
