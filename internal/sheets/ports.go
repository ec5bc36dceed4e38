// Package sheets defines where monthly reports are exported to.
package sheets

import (
	"context"

	"budgetbuddy/internal/core"
)

// ReportWriter persists one user's monthly stats outside the service and
// returns a reference to what it wrote.
type ReportWriter interface {
	WriteMonthlyReport(ctx context.Context, userID int64, stats core.MonthlyStats) (ref string, err error)
}
