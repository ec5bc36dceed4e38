package http

import (
	"net/http"
	"strings"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
)

// handleStats serves GET /api/stats. Year and month default to the current
// month and currency to the caller's preference.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpAggregate)
		return
	}
	period, err := parsePeriod(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}

	currency, err := s.resolveCurrency(r, uid)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}

	stats, err := s.deps.Stats.GetMonthlyStats(r.Context(), uid, period, currency)
	if err != nil {
		writeError(w, r, err, log.OpAggregate)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// resolveCurrency returns the currency query parameter, or the caller's
// preferred currency when it is absent.
func (s *Server) resolveCurrency(r *http.Request, uid int64) (string, error) {
	if c := strings.TrimSpace(r.URL.Query().Get("currency")); c != "" {
		return core.NormalizeCurrency(c)
	}
	return s.deps.Stats.PreferredCurrency(r.Context(), uid)
}

type exportResponse struct {
	JobID    string `json:"job_id"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Currency string `json:"currency,omitempty"`
}

// handleExport serves POST /api/stats/export by queueing a report job.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err, log.OpExport)
		return
	}
	if s.deps.Exports == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Error: "report export is not configured"})
		return
	}
	period, err := parsePeriod(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err, log.OpValidate)
		return
	}
	// the worker resolves the preference when no currency is given
	currency := ""
	if c := strings.TrimSpace(r.URL.Query().Get("currency")); c != "" {
		if currency, err = core.NormalizeCurrency(c); err != nil {
			writeError(w, r, err, log.OpValidate)
			return
		}
	}

	msg := amqp.NewReportExportMessage(uid, period, currency)
	if err := s.deps.Exports.PublishReportExport(r.Context(), msg); err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Report export publish failed", err, log.OpExport,
			log.NewFields().WithPeriod(uid, period.Year, period.Month))
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Error: "report export queue unavailable"})
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Report export queued",
		log.FieldJobID, msg.JobID,
		log.FieldUserID, uid,
		log.FieldYear, period.Year,
		log.FieldMonth, period.Month)
	writeJSON(w, http.StatusAccepted, exportResponse{JobID: msg.JobID, Year: msg.Year, Month: msg.Month, Currency: msg.Currency})
}
