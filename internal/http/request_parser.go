// This file implements the typed request bodies and the helpers that read
// the caller identity, the period and path values from a request.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/receipt"
	"budgetbuddy/internal/services"
)

const (
	// UserIDHeader carries the caller resolved by the upstream gateway.
	UserIDHeader = "X-User-ID"

	maxJSONBody  = 64 << 10
	maxImageBody = 10 << 20
)

// requestError is a client error with a fixed status.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

var errUnauthenticated = &requestError{status: http.StatusUnauthorized, msg: "missing or invalid " + UserIDHeader + " header"}

// AmountValue is a JSON amount given either as a number or as a string
// using a dot or a comma as decimal separator.
type AmountValue struct {
	decimal.Decimal
}

func (a AmountValue) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *AmountValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			a.Decimal = decimal.Zero
			return nil
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

// TransactionRequest is the body of POST /api/transactions and
// PUT /api/transactions/{id}. On create, Amount and Description may be left
// empty when ReceiptImage is set. Updates ignore ReceiptImage.
type TransactionRequest struct {
	CategoryID      *int64      `json:"category_id"`
	Amount          AmountValue `json:"amount"`
	Currency        string      `json:"currency"`
	Description     string      `json:"description"`
	TransactionDate string      `json:"transaction_date"`
	ReceiptImage    string      `json:"receipt_image"`
}

// ToInput converts the request into the service input.
func (r TransactionRequest) ToInput() (services.TransactionInput, error) {
	in := services.TransactionInput{
		CategoryID:   r.CategoryID,
		Amount:       r.Amount.Decimal,
		Currency:     r.Currency,
		Description:  sanitizeInput(r.Description),
		ReceiptImage: strings.TrimSpace(r.ReceiptImage),
	}
	if r.CategoryID != nil && *r.CategoryID <= 0 {
		return in, core.ErrCategoryNotFound
	}
	if s := strings.TrimSpace(r.TransactionDate); s != "" {
		date, err := parseDate(s)
		if err != nil {
			return in, badRequest("invalid transaction_date %q: use YYYY-MM-DD or RFC 3339", s)
		}
		in.Date = &date
	}
	return in, nil
}

// CategoryRequest is the body of POST /api/categories.
type CategoryRequest struct {
	Name          string          `json:"name"`
	Color         string          `json:"color"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

func (r CategoryRequest) ToCategory() core.Category {
	return core.Category{
		Name:          sanitizeInput(r.Name),
		Color:         strings.TrimSpace(r.Color),
		MonthlyBudget: r.MonthlyBudget,
	}
}

// CurrencyRequest is the body of PUT /api/users/currency.
type CurrencyRequest struct {
	Currency string `json:"currency"`
}

// OCRPreviewRequest is the body of POST /api/transactions/ocr-preview.
type OCRPreviewRequest struct {
	Image string `json:"image"`
}

func (r OCRPreviewRequest) Validate() error {
	if strings.TrimSpace(r.Image) == "" {
		return receipt.ErrEmptyImage
	}
	return nil
}

// ExtractRequest is the body of POST /api/receipts/extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

// decodeJSON reads exactly one JSON object of at most limit bytes into v.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case core.IsValidation(err):
			return err
		case errors.As(err, &maxErr):
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
		case errors.Is(err, io.EOF):
			return badRequest("request body required")
		default:
			return badRequest("invalid request body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// userID reads the authenticated caller from the gateway header.
func userID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errUnauthenticated
	}
	return id, nil
}

// parsePeriod reads year and month from the query, defaulting each to the
// current UTC month. Values that are not numbers are rejected.
func parsePeriod(query url.Values, now time.Time) (core.Period, error) {
	p := core.CurrentPeriod(now)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return p, core.ErrInvalidYear
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return p, core.ErrInvalidMonth
		}
		p.Month = m
	}
	return p, p.Validate()
}

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, r.PathValue(name))
	}
	return id, nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
