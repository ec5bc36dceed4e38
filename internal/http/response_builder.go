// Package http exposes the JSON API over the stats engine, the transaction
// and account services and the report export queue.
//
// This file holds the response helpers: JSON encoding, the error body and
// the mapping from domain errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/middleware/trace"
	"budgetbuddy/internal/receipt"
	"budgetbuddy/internal/services"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type transactionResponse struct {
	ID              int64           `json:"id"`
	CategoryID      *int64          `json:"category_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	ReceiptImageURL string          `json:"receipt_image_url,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

type categoryResponse struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Color            string          `json:"color"`
	MonthlyBudget    decimal.Decimal `json:"monthly_budget"`
	SpentThisMonth   decimal.Decimal `json:"spent_this_month"`
	TransactionCount int             `json:"transaction_count"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		CategoryID:      t.CategoryID,
		Amount:          t.Amount,
		Currency:        t.Currency,
		Description:     t.Description,
		ReceiptImageURL: t.ReceiptImageURL,
		TransactionDate: t.TransactionDate,
		CreatedAt:       t.CreatedAt,
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:             c.ID,
		Name:           c.Name,
		Color:          c.Color,
		MonthlyBudget:  c.MonthlyBudget,
		SpentThisMonth: decimal.Zero,
		CreatedAt:      c.CreatedAt,
	}
}

func newCategoryOverviewList(cats []services.CategoryOverview) []categoryResponse {
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		r := newCategoryResponse(c.Category)
		r.SpentThisMonth = c.SpentThisMonth
		r.TransactionCount = c.TransactionCount
		out = append(out, r)
	}
	return out
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}


// errorStatus maps an error to a status code and the message shown to the
// client. Internal failures never leak their text.
func errorStatus(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.msg
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, receipt.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timeout"
	case errors.Is(err, receipt.ErrEmptyImage):
		return http.StatusBadRequest, receipt.ErrEmptyImage.Error()
	}
	if cause := core.ValidationCause(err); cause != nil {
		return http.StatusBadRequest, cause.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError sends err as an ErrorBody. Server side failures are logged
// with the operation that produced them.
func writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, msg := errorStatus(err)
	ctx := r.Context()
	if status >= http.StatusInternalServerError {
		log.FromContext(ctx).LogError(ctx, "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery))
	}
	writeJSON(w, status, ErrorBody{Error: msg, RequestID: trace.GetRequestID(ctx)})
}
