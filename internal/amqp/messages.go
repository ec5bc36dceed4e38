package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/core"
)

// ReportExportMessage asks a worker to compute one user's monthly stats and
// export them. Currency may be empty to use the user's preference.
type ReportExportMessage struct {
	JobID     string    `json:"job_id"`
	UserID    int64     `json:"user_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Currency  string    `json:"currency,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(userID int64, period core.Period, currency string) *ReportExportMessage {
	return &ReportExportMessage{
		JobID:     uuid.NewString(),
		UserID:    userID,
		Year:      period.Year,
		Month:     period.Month,
		Currency:  currency,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ReportExportMessage) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

// Validate rejects messages a worker could never process.
func (m *ReportExportMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("missing job id")
	}
	if m.UserID <= 0 {
		return errors.New("missing user id")
	}
	if m.Currency != "" && !core.ValidCurrency(m.Currency) {
		return core.ErrInvalidCurrency
	}
	return m.Period().Validate()
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
