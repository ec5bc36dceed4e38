package http

import (
	"net/http"

	"budgetbuddy/internal/log"
	"budgetbuddy/internal/receipt"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	var req TransactionRequest
	if err := decodeJSON(w, r, maxImageBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}

	t, err := s.deps.Transactions.Create(r.Context(), uid, in)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldUserID, uid,
		"transaction_id", t.ID,
		log.FieldCurrency, t.Currency,
		"has_receipt", t.ReceiptImageURL != "")
	writeJSON(w, http.StatusCreated, newTransactionResponse(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	period, err := parsePeriod(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	txs, err := s.deps.Transactions.List(r.Context(), uid, period)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionList(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	var req TransactionRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), uid, id, in)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), uid, id); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOCRPreview reads a receipt image and returns what was found without
// storing anything.
func (s *Server) handleOCRPreview(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		writeError(w, r, err, log.OpExtract)
		return
	}
	var req OCRPreviewRequest
	if err := decodeJSON(w, r, maxImageBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	res, err := s.deps.Transactions.Preview(r.Context(), req.Image)
	if err != nil {
		writeError(w, r, err, log.OpExtract)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExtract runs the amount parser over text the client already has.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		writeError(w, r, err, log.OpExtract)
		return
	}
	var req ExtractRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	writeJSON(w, http.StatusOK, receipt.ExtractFromText(req.Text))
}
