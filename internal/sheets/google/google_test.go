package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetbuddy/internal/core"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	added    []string
	cleared  []string
	updated  map[string][][]any
	failNext bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		if f.failNext {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		if f.updated == nil {
			f.updated = map[string][][]any{}
		}
		f.updated[rng] = vr.Values
		if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng + ":E30"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", nil)
}

func sampleStats() core.MonthlyStats {
	d := decimal.RequireFromString
	s := core.MonthlyStats{
		Year:                  2025,
		Month:                 3,
		PreferredCurrency:     "EUR",
		TotalTransactions:     3,
		TotalSpentThisMonth:   d("100"),
		TotalBudgetThisMonth:  d("450"),
		UnconvertedCurrencies: []string{"XYZ"},
		ByCategory: []core.CategorySpending{
			{CategoryID: 1, CategoryName: "Food", Spent: d("70"), Budget: d("300"), Percentage: d("23.33"), TransactionCount: 2},
		},
		ByCurrency: []core.CurrencySpending{
			{Currency: "EUR", Amount: d("100"), ConvertedToPreferred: d("100"), Converted: true},
		},
		DailySpending: []core.DailySpending{
			{Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Amount: d("70"), TransactionCount: 2},
		},
	}
	s.Derive()
	return s
}

func TestWriteMonthlyReportCreatesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	ref, err := c.WriteMonthlyReport(context.Background(), 7, sampleStats())
	if err != nil {
		t.Fatalf("WriteMonthlyReport: %v", err)
	}
	if len(fake.added) != 1 || fake.added[0] != "2025-03 u7" {
		t.Fatalf("expected sheet to be added, got %v", fake.added)
	}
	if len(fake.cleared) != 1 {
		t.Fatalf("expected the tab to be cleared first")
	}
	if !strings.HasPrefix(ref, "'2025-03 u7'!A1") {
		t.Fatalf("unexpected ref %q", ref)
	}
	rows := fake.updated["'2025-03 u7'!A1"]
	if len(rows) == 0 || rows[0][0] != "Monthly report" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestWriteMonthlyReportReusesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"2025-03 u7"}}
	c := newTestClient(t, fake)

	if _, err := c.WriteMonthlyReport(context.Background(), 7, sampleStats()); err != nil {
		t.Fatalf("WriteMonthlyReport: %v", err)
	}
	if len(fake.added) != 0 {
		t.Fatalf("existing sheet must not be re-added: %v", fake.added)
	}
}

func TestWriteMonthlyReportUpdateError(t *testing.T) {
	fake := &fakeSheets{failNext: true}
	c := newTestClient(t, fake)

	_, err := c.WriteMonthlyReport(context.Background(), 7, sampleStats())
	if err == nil || !strings.Contains(err.Error(), "update sheet") {
		t.Fatalf("expected update error, got %v", err)
	}
}

func TestReportRows(t *testing.T) {
	rows := reportRows(sampleStats())

	find := func(label string) []any {
		for _, r := range rows {
			if len(r) > 0 && r[0] == label {
				return r
			}
		}
		return nil
	}

	tests := []struct {
		label string
		want  any
	}{
		{"Total spent", "100"},
		{"Remaining budget", "350"},
		{"Budget used %", "22.22"},
		{"Food", "70"},
		{"EUR", "100"},
		{"2025-03-02", "70"},
		{"Not converted", "XYZ"},
	}
	for _, tt := range tests {
		r := find(tt.label)
		if r == nil || len(r) < 2 || r[1] != tt.want {
			t.Errorf("row %q = %v, want second cell %v", tt.label, r, tt.want)
		}
	}
}

func TestCredentialOptions(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"abc","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	clientJSON := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "nothing configured", cfg: Config{}, wantErr: ErrNoCredentials.Error()},
		{name: "client without token", cfg: Config{OAuthClientJSON: clientJSON}, wantErr: ErrNoCredentials.Error()},
		{name: "bad client json", cfg: Config{OAuthClientJSON: "nope", OAuthTokenFile: tokenFile}, wantErr: "oauth config"},
		{name: "missing token file", cfg: Config{OAuthClientJSON: clientJSON, OAuthTokenFile: filepath.Join(dir, "missing.json")}, wantErr: "read oauth token"},
		{name: "oauth client and token", cfg: Config{OAuthClientJSON: clientJSON, OAuthTokenFile: tokenFile}},
		{name: "service account", cfg: Config{ServiceAccountJSON: `{"type":"service_account"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := credentialOptions(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || len(opts) == 0 {
				t.Fatalf("expected options, got %v %v", opts, err)
			}
		})
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}
