package http

import (
	"net/http"

	"budgetbuddy/internal/log"
)

type initResponse struct {
	Created    int                `json:"created"`
	Categories []categoryResponse `json:"categories"`
}

// handleInitUser seeds the default categories and returns the user's
// categories. Calling it again creates nothing.
func (s *Server) handleInitUser(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	created, err := s.deps.Accounts.Initialize(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	cats, err := s.deps.Categories.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{Created: len(created), Categories: newCategoryOverviewList(cats)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	cats, err := s.deps.Categories.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryOverviewList(cats))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	var req CategoryRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), uid, req.ToCategory())
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
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
	var req CategoryRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	c, err := s.deps.Categories.Update(r.Context(), uid, id, req.ToCategory())
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(c))
}

// handleDeleteCategory removes a category; its transactions stay and count
// as uncategorized.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
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
	if err := s.deps.Categories.Delete(r.Context(), uid, id); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	var req CurrencyRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	code, err := s.deps.Accounts.SetPreferredCurrency(r.Context(), uid, req.Currency)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, CurrencyRequest{Currency: code})
}
