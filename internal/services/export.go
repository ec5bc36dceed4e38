package services

import (
	"context"
	"fmt"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/sheets"
)

// ReportExporter turns a report export job into a written monthly report.
type ReportExporter struct {
	stats  StatsSource
	writer sheets.ReportWriter
	logger *log.Logger
}

func NewReportExporter(stats StatsSource, writer sheets.ReportWriter, logger *log.Logger) *ReportExporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportExporter{
		stats:  stats,
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Export computes the job's monthly stats and writes them out. The job's
// currency wins over the user's preferred one.
func (e *ReportExporter) Export(ctx context.Context, msg *amqp.ReportExportMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	start := time.Now()

	currency := msg.Currency
	if currency == "" {
		var err error
		if currency, err = e.stats.PreferredCurrency(ctx, msg.UserID); err != nil {
			return "", err
		}
	}

	stats, err := e.stats.GetMonthlyStats(ctx, msg.UserID, msg.Period(), currency)
	if err != nil {
		return "", fmt.Errorf("monthly stats: %w", err)
	}
	ref, err := e.writer.WriteMonthlyReport(ctx, msg.UserID, stats)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	e.logger.InfoContext(ctx, "Report export completed",
		log.FieldJobID, msg.JobID,
		log.FieldUserID, msg.UserID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month,
		log.FieldCurrency, currency,
		"ref", ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return ref, nil
}

// Handle adapts Export to the queue consumer's handler signature.
func (e *ReportExporter) Handle(ctx context.Context, msg *amqp.ReportExportMessage) error {
	_, err := e.Export(ctx, msg)
	return err
}
