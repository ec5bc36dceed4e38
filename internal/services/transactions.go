package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/receipt"
)

// TransactionInput is a transaction as submitted by a client. A zero Amount
// or blank Description may be filled from the receipt image.
type TransactionInput struct {
	CategoryID   *int64
	Amount       decimal.Decimal
	Currency     string
	Description  string
	Date         *time.Time
	ReceiptImage string // base64, optionally as a data URL
}

type TransactionService struct {
	store  TransactionStore
	ocr    receipt.Recognizer
	now    func() time.Time
	logger *log.Logger
}

// NewTransactionService creates the service. ocr may be nil, in which case
// receipt images are stored but not read.
func NewTransactionService(store TransactionStore, ocr receipt.Recognizer, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		store:  store,
		ocr:    ocr,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentTransactions),
	}
}

// Create records a transaction for userID. The category, when given, must
// belong to the user.
func (s *TransactionService) Create(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = core.DefaultCurrency
	}
	currency, err := core.NormalizeCurrency(currency)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.checkCategory(ctx, userID, in.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(in.Description),
	}
	if in.Date != nil {
		t.TransactionDate = in.Date.UTC()
	} else {
		t.TransactionDate = s.now().UTC()
	}

	if in.ReceiptImage != "" {
		s.applyReceipt(ctx, &t, in.ReceiptImage)
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

// Update replaces the category, amount, currency and description of one of
// the user's transactions, and its date when one is given. A blank currency
// keeps the stored one. The receipt is left untouched.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, in TransactionInput) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if strings.TrimSpace(in.Currency) != "" {
		if t.Currency, err = core.NormalizeCurrency(in.Currency); err != nil {
			return core.Transaction{}, err
		}
	}
	if err := s.checkCategory(ctx, userID, in.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	t.CategoryID = in.CategoryID
	t.Amount = in.Amount
	t.Description = strings.TrimSpace(in.Description)
	if in.Date != nil {
		t.TransactionDate = in.Date.UTC()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldUserID, userID,
		"transaction_id", id)
	return updated, nil
}

// checkCategory rejects a category that does not belong to the user.
func (s *TransactionService) checkCategory(ctx context.Context, userID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	ok, err := s.store.CategoryExists(ctx, userID, *categoryID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return core.ErrCategoryNotFound
	}
	return nil
}

// applyReceipt fills missing fields from the receipt. OCR failures are
// logged and the transaction is kept as submitted.
func (s *TransactionService) applyReceipt(ctx context.Context, t *core.Transaction, image string) {
	t.ReceiptImageURL = receipt.ImageRef(image)
	if s.ocr == nil {
		return
	}
	res, err := s.ocr.Recognize(ctx, image)
	if err != nil {
		s.logger.LogError(ctx, "Receipt OCR failed", err, log.OpExtract,
			log.LogFields{log.FieldUserID: t.UserID})
		return
	}
	t.Amount, t.Description = res.ApplyTo(t.Amount, t.Description)
}

// Preview runs OCR on a receipt without storing anything.
func (s *TransactionService) Preview(ctx context.Context, image string) (receipt.Result, error) {
	if strings.TrimSpace(image) == "" {
		return receipt.Result{}, receipt.ErrEmptyImage
	}
	if s.ocr == nil {
		return receipt.Result{}, receipt.ErrNotConfigured
	}
	return s.ocr.Recognize(ctx, image)
}

// List returns the user's transactions for the period, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.FetchTransactions(ctx, userID, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		out[len(txs)-1-i] = t
	}
	return out, nil
}

// Delete removes one of the user's transactions; core.ErrNotFound when it
// does not exist or belongs to someone else.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}
