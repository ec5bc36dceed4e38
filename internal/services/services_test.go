package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/memory"
	"budgetbuddy/internal/rates"
	"budgetbuddy/internal/receipt"
	"budgetbuddy/internal/stats"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeRecognizer struct {
	result receipt.Result
	err    error
	calls  int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ string) (receipt.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeWriter struct {
	mu     sync.Mutex
	userID int64
	stats  core.MonthlyStats
	err    error
}

func (f *fakeWriter) WriteMonthlyReport(_ context.Context, userID int64, s core.MonthlyStats) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.userID = userID
	f.stats = s
	return "'report'!A1:E20", nil
}

func TestAccountServiceIsIdempotent(t *testing.T) {
	store := memory.New()
	init := NewAccountService(store, nil, nil)
	ctx := context.Background()

	created, err := init.Initialize(ctx, 1)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(created) != len(core.DefaultCategories()) {
		t.Fatalf("expected %d categories, got %d", len(core.DefaultCategories()), len(created))
	}

	again, err := init.Initialize(ctx, 1)
	if err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second call must not create anything, got %d", len(again))
	}
	n, _ := store.CountCategories(ctx, 1)
	if n != len(core.DefaultCategories()) {
		t.Fatalf("store has %d categories", n)
	}
}

func TestAccountServiceConcurrentCalls(t *testing.T) {
	store := memory.New()
	init := NewAccountService(store, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = init.Initialize(context.Background(), 3)
		}()
	}
	wg.Wait()

	n, _ := store.CountCategories(context.Background(), 3)
	if n != len(core.DefaultCategories()) {
		t.Fatalf("expected one seeding, got %d categories", n)
	}
}

func TestAccountServiceCustomDefaults(t *testing.T) {
	store := memory.New()
	init := NewAccountService(store, func() []core.CategoryTemplate {
		return []core.CategoryTemplate{{Name: "Rent", Color: "#000000", Budget: d("900")}}
	}, nil)

	created, err := init.Initialize(context.Background(), 2)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(created) != 1 || created[0].Name != "Rent" || !created[0].MonthlyBudget.Equal(d("900")) {
		t.Fatalf("unexpected categories %+v", created)
	}

	// a user that already has categories is left alone
	other := memory.New()
	if _, err := other.CreateCategory(context.Background(), core.Category{UserID: 2, Name: "Own", Color: "#111111"}); err != nil {
		t.Fatal(err)
	}
	created, err = NewAccountService(other, nil, nil).Initialize(context.Background(), 2)
	if err != nil || len(created) != 0 {
		t.Fatalf("expected no seeding, got %v %v", created, err)
	}
}

func TestAccountSettings(t *testing.T) {
	store := memory.New()
	accounts := NewAccountService(store, nil, nil)
	ctx := context.Background()

	code, err := accounts.SetPreferredCurrency(ctx, 1, " usd ")
	if err != nil || code != "USD" {
		t.Fatalf("SetPreferredCurrency = %q, %v", code, err)
	}
	if got, _ := store.PreferredCurrency(ctx, 1); got != "USD" {
		t.Fatalf("stored %q", got)
	}
	if _, err := accounts.SetPreferredCurrency(ctx, 1, "dollars"); !errors.Is(err, core.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cats := NewCategoryService(store, nil).WithClock(func() time.Time { return time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC) })

	pets, err := cats.Create(ctx, 1, core.Category{Name: "  Pets ", Color: "#ABCDEF", MonthlyBudget: d("40")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pets.Name != "Pets" || pets.UserID != 1 {
		t.Fatalf("unexpected category %+v", pets)
	}
	if _, err := cats.Create(ctx, 1, core.Category{Name: "X", Color: "#ABCDEF"}); !errors.Is(err, core.ErrInvalidCategoryName) {
		t.Fatalf("expected ErrInvalidCategoryName, got %v", err)
	}
	home, _ := cats.Create(ctx, 1, core.Category{Name: "Home", Color: "#123456"})

	for _, tx := range []struct {
		amount string
		when   time.Time
	}{
		{"12.5", time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"7.5", time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC)},
		{"100", time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)},
	} {
		if _, err := store.CreateTransaction(ctx, core.Transaction{
			UserID: 1, CategoryID: &pets.ID, Amount: d(tx.amount), Currency: "EUR", Description: "food", TransactionDate: tx.when,
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := cats.List(ctx, 1)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if list[0].ID != pets.ID || !list[0].SpentThisMonth.Equal(d("20")) || list[0].TransactionCount != 2 {
		t.Fatalf("unexpected spending %+v", list[0])
	}
	if list[1].ID != home.ID || !list[1].SpentThisMonth.IsZero() {
		t.Fatalf("unexpected spending %+v", list[1])
	}

	t.Run("update", func(t *testing.T) {
		updated, err := cats.Update(ctx, 1, pets.ID, core.Category{Name: "Animals", Color: "#000000", MonthlyBudget: d("60")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Name != "Animals" || !updated.MonthlyBudget.Equal(d("60")) || updated.ID != pets.ID {
			t.Fatalf("unexpected category %+v", updated)
		}
		if _, err := cats.Update(ctx, 2, pets.ID, core.Category{Name: "Mine", Color: "#000000"}); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign update: %v", err)
		}
		if _, err := cats.Update(ctx, 1, pets.ID, core.Category{Name: "Animals", Color: "blue"}); !errors.Is(err, core.ErrInvalidColor) {
			t.Fatalf("invalid update: %v", err)
		}
	})

	t.Run("delete keeps transactions", func(t *testing.T) {
		if err := cats.Delete(ctx, 2, pets.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign delete: %v", err)
		}
		if err := cats.Delete(ctx, 1, pets.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		txs, _ := store.FetchTransactions(ctx, 1, 2025, 3)
		if len(txs) != 2 {
			t.Fatalf("transactions lost: %d", len(txs))
		}
		for _, tx := range txs {
			if tx.CategoryID != nil {
				t.Fatalf("transaction %d still points at category %d", tx.ID, *tx.CategoryID)
			}
		}
		list, _ := cats.List(ctx, 1)
		if len(list) != 1 || list[0].ID != home.ID {
			t.Fatalf("unexpected categories %+v", list)
		}
	})
}

func TestTransactionServiceCreate(t *testing.T) {
	ctx := context.Background()
	when := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		input    TransactionInput
		ocr      *fakeRecognizer
		wantErr  error
		wantAmt  string
		wantDesc string
		wantCur  string
		wantRef  bool
	}{
		{
			name:     "plain",
			input:    TransactionInput{Amount: d("12.50"), Currency: "usd", Description: "Lunch", Date: &when},
			wantAmt:  "12.5",
			wantDesc: "Lunch",
			wantCur:  "USD",
		},
		{
			name:     "currency defaults",
			input:    TransactionInput{Amount: d("3"), Description: "Coffee"},
			wantAmt:  "3",
			wantDesc: "Coffee",
			wantCur:  core.DefaultCurrency,
		},
		{
			name:     "receipt fills missing fields",
			input:    TransactionInput{ReceiptImage: "data:image/jpeg;base64,QUJD"},
			ocr:      &fakeRecognizer{result: receipt.ExtractFromText("SUPERMARKET\nTOTAL 23,40")},
			wantAmt:  "23.4",
			wantDesc: "SUPERMARKET",
			wantCur:  core.DefaultCurrency,
			wantRef:  true,
		},
		{
			name:     "receipt never overrides submitted values",
			input:    TransactionInput{Amount: d("5"), Description: "Mine", ReceiptImage: "QUJD"},
			ocr:      &fakeRecognizer{result: receipt.ExtractFromText("SHOP\n99.99")},
			wantAmt:  "5",
			wantDesc: "Mine",
			wantCur:  core.DefaultCurrency,
			wantRef:  true,
		},
		{
			name:     "ocr failure keeps submitted values",
			input:    TransactionInput{Amount: d("7"), Description: "Taxi", ReceiptImage: "QUJD"},
			ocr:      &fakeRecognizer{err: errors.New("quota exceeded")},
			wantAmt:  "7",
			wantDesc: "Taxi",
			wantCur:  core.DefaultCurrency,
			wantRef:  true,
		},
		{
			name:    "ocr failure without amount is invalid",
			input:   TransactionInput{Description: "Taxi", ReceiptImage: "QUJD"},
			ocr:     &fakeRecognizer{err: errors.New("quota exceeded")},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "bad currency",
			input:   TransactionInput{Amount: d("1"), Currency: "EURO", Description: "x"},
			wantErr: core.ErrInvalidCurrency,
		},
		{
			name:    "foreign category",
			input:   TransactionInput{Amount: d("1"), Description: "x", CategoryID: core.Int64Ptr(999)},
			wantErr: core.ErrCategoryNotFound,
		},
		{
			name:    "amount below minimum",
			input:   TransactionInput{Amount: d("0.001"), Description: "x"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "amount above maximum",
			input:   TransactionInput{Amount: d("1000000.01"), Description: "x"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:     "amount at maximum",
			input:    TransactionInput{Amount: d("1000000"), Description: "Car"},
			wantAmt:  "1000000",
			wantDesc: "Car",
			wantCur:  core.DefaultCurrency,
		},
		{
			name:    "empty description",
			input:   TransactionInput{Amount: d("1"), Description: "   "},
			wantErr: core.ErrEmptyDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ocr receipt.Recognizer
			if tt.ocr != nil {
				ocr = tt.ocr
			}
			svc := NewTransactionService(memory.New(), ocr, nil)
			svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

			got, err := svc.Create(ctx, 1, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if got.ID == 0 {
				t.Error("expected an id")
			}
			if got.Amount.String() != tt.wantAmt || got.Description != tt.wantDesc || got.Currency != tt.wantCur {
				t.Errorf("got %s %q %s", got.Amount, got.Description, got.Currency)
			}
			if tt.wantRef != (got.ReceiptImageURL != "") {
				t.Errorf("receipt ref = %q", got.ReceiptImageURL)
			}
			if tt.wantRef && !strings.HasPrefix(got.ReceiptImageURL, "data:image/jpeg;base64,") {
				t.Errorf("unexpected receipt ref %q", got.ReceiptImageURL)
			}
			if got.TransactionDate.Location() != time.UTC {
				t.Errorf("date must be stored in UTC, got %v", got.TransactionDate)
			}
		})
	}
}

func TestTransactionServiceOwnCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat, err := store.CreateCategory(ctx, core.Category{UserID: 1, Name: "Food", Color: "#FF6B6B"})
	if err != nil {
		t.Fatal(err)
	}
	svc := NewTransactionService(store, nil, nil)

	if _, err := svc.Create(ctx, 1, TransactionInput{Amount: d("4"), Description: "Bread", CategoryID: &cat.ID}); err != nil {
		t.Fatalf("own category rejected: %v", err)
	}
	if _, err := svc.Create(ctx, 2, TransactionInput{Amount: d("4"), Description: "Bread", CategoryID: &cat.ID}); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("another user's category must be rejected, got %v", err)
	}
}

func TestTransactionServiceListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), nil, nil)

	var ids []int64
	for day := 1; day <= 3; day++ {
		when := time.Date(2025, 4, day, 10, 0, 0, 0, time.UTC)
		tx, err := svc.Create(ctx, 1, TransactionInput{Amount: d("1"), Description: "x", Date: &when})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}

	list, err := svc.List(ctx, 1, core.Period{Year: 2025, Month: 4})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if _, err := svc.List(ctx, 1, core.Period{Year: 2025, Month: 13}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}

	if err := svc.Delete(ctx, 2, ids[0]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleting another user's transaction: %v", err)
	}
	if err := svc.Delete(ctx, 1, ids[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = svc.List(ctx, 1, core.Period{Year: 2025, Month: 4})
	if len(list) != 2 {
		t.Fatalf("expected 2 left, got %d", len(list))
	}
}

func TestTransactionServiceUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	food, _ := store.CreateCategory(ctx, core.Category{UserID: 1, Name: "Food", Color: "#FF6B6B"})
	foreign, _ := store.CreateCategory(ctx, core.Category{UserID: 2, Name: "Other", Color: "#FF6B6B"})
	svc := NewTransactionService(store, nil, nil)

	when := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)
	tx, err := svc.Create(ctx, 1, TransactionInput{Amount: d("4"), Currency: "USD", Description: "Bread", Date: &when})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		user    int64
		id      int64
		input   TransactionInput
		wantErr error
	}{
		{"missing", 1, 999, TransactionInput{Amount: d("1"), Description: "x"}, core.ErrNotFound},
		{"other user", 2, tx.ID, TransactionInput{Amount: d("1"), Description: "x"}, core.ErrNotFound},
		{"foreign category", 1, tx.ID, TransactionInput{Amount: d("1"), Description: "x", CategoryID: &foreign.ID}, core.ErrCategoryNotFound},
		{"amount too large", 1, tx.ID, TransactionInput{Amount: d("1000000.01"), Description: "x"}, core.ErrInvalidAmount},
		{"bad currency", 1, tx.ID, TransactionInput{Amount: d("1"), Currency: "EU", Description: "x"}, core.ErrInvalidCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(ctx, tt.user, tt.id, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	updated, err := svc.Update(ctx, 1, tx.ID, TransactionInput{CategoryID: &food.ID, Amount: d("5.25"), Description: " Rolls "})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != tx.ID || !updated.Amount.Equal(d("5.25")) || updated.Description != "Rolls" {
		t.Fatalf("unexpected transaction %+v", updated)
	}
	if updated.Currency != "USD" || !updated.TransactionDate.Equal(when) {
		t.Fatalf("currency and date must be kept, got %s %v", updated.Currency, updated.TransactionDate)
	}
	if updated.CategoryID == nil || *updated.CategoryID != food.ID {
		t.Fatalf("category not set: %v", updated.CategoryID)
	}
}

func TestTransactionServicePreview(t *testing.T) {
	ctx := context.Background()

	if _, err := NewTransactionService(memory.New(), nil, nil).Preview(ctx, "QUJD"); !errors.Is(err, receipt.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	ocr := &fakeRecognizer{result: receipt.ExtractFromText("CAFE\n4.20")}
	svc := NewTransactionService(memory.New(), ocr, nil)
	if _, err := svc.Preview(ctx, " "); !errors.Is(err, receipt.ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	res, err := svc.Preview(ctx, "QUJD")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if res.Amount == nil || !res.Amount.Equal(d("4.20")) || res.Description != "CAFE" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestReportExporter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	food, _ := store.CreateCategory(ctx, core.Category{UserID: 5, Name: "Food", Color: "#FF6B6B", MonthlyBudget: d("300")})
	when := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, amt := range []string{"40", "30"} {
		if _, err := store.CreateTransaction(ctx, core.Transaction{
			UserID: 5, CategoryID: &food.ID, Amount: d(amt), Currency: "EUR", Description: "x", TransactionDate: when,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SetPreferredCurrency(ctx, 5, "EUR"); err != nil {
		t.Fatal(err)
	}

	statsSvc := stats.NewService(store, rates.NewStaticConverter(rates.DefaultTable()), stats.Options{}, nil)
	writer := &fakeWriter{}
	exporter := NewReportExporter(statsSvc, writer, nil)

	msg := amqp.NewReportExportMessage(5, core.Period{Year: 2025, Month: 3}, "")
	ref, err := exporter.Export(ctx, msg)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if ref == "" || writer.userID != 5 {
		t.Fatalf("report not written: %q %d", ref, writer.userID)
	}
	if writer.stats.PreferredCurrency != "EUR" || !writer.stats.TotalSpentThisMonth.Equal(d("70")) {
		t.Fatalf("unexpected stats %+v", writer.stats)
	}

	t.Run("job currency wins", func(t *testing.T) {
		msg := amqp.NewReportExportMessage(5, core.Period{Year: 2025, Month: 3}, "USD")
		if err := exporter.Handle(ctx, msg); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if writer.stats.PreferredCurrency != "USD" || !writer.stats.TotalSpentThisMonth.Equal(d("75.6")) {
			t.Fatalf("expected USD totals, got %s %s", writer.stats.PreferredCurrency, writer.stats.TotalSpentThisMonth)
		}
	})

	t.Run("writer failure", func(t *testing.T) {
		failing := NewReportExporter(statsSvc, &fakeWriter{err: errors.New("quota")}, nil)
		if _, err := failing.Export(ctx, msg); err == nil || !strings.Contains(err.Error(), "write report") {
			t.Fatalf("expected write error, got %v", err)
		}
	})

	t.Run("invalid job", func(t *testing.T) {
		bad := &amqp.ReportExportMessage{JobID: "x", UserID: 5, Year: 2025, Month: 0}
		if _, err := exporter.Export(ctx, bad); err == nil {
			t.Fatal("expected validation error")
		}
	})
}
