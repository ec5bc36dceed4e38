// Package worker runs the background side of report exports: it consumes
// export jobs from the queue and hands them to the exporter.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/log"
)

const (
	// completed job ids are remembered so a redelivered job is acked without
	// writing the report twice
	completedJobsSize = 1024
	completedJobsTTL  = 6 * time.Hour
)

// Consumer delivers report export jobs to a handler until ctx is done.
type Consumer interface {
	ConsumeReportExports(ctx context.Context, handler amqp.ReportHandler) error
}

// Exporter writes the report for one job and returns a reference to it.
type Exporter interface {
	Export(ctx context.Context, msg *amqp.ReportExportMessage) (string, error)
}

// Counters is a snapshot of what the worker has processed.
type Counters struct {
	Exported   int64
	Failed     int64
	Duplicates int64
}

type ReportWorker struct {
	consumer  Consumer
	exporter  Exporter
	completed *cache.LRUCache[string]
	logger    *log.Logger

	exported   atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
}

func NewReportWorker(consumer Consumer, exporter Exporter, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		consumer:  consumer,
		exporter:  exporter,
		completed: cache.NewLRUCache[string](completedJobsSize, completedJobsTTL),
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// CompletedJobs exposes the redelivery cache so it can be registered with a
// cache.Manager for periodic cleanup.
func (w *ReportWorker) CompletedJobs() *cache.LRUCache[string] {
	return w.completed
}

// Run consumes jobs until ctx is cancelled. Cancellation is a clean stop.
func (w *ReportWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Report worker started")
	err := w.consumer.ConsumeReportExports(ctx, w.HandleReportExport)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume report exports: %w", err)
	}
	c := w.Counters()
	w.logger.InfoContext(ctx, "Report worker stopped",
		"exported", c.Exported,
		"failed", c.Failed,
		"duplicates", c.Duplicates)
	return nil
}

// HandleReportExport processes a single job. A returned error makes the
// consumer requeue the job.
func (w *ReportWorker) HandleReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error {
	if ref, ok := w.completed.Get(msg.JobID); ok {
		w.duplicates.Add(1)
		w.logger.InfoContext(ctx, "Report export already completed, skipping",
			log.FieldJobID, msg.JobID,
			"ref", ref)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing report export",
		log.FieldJobID, msg.JobID,
		log.FieldUserID, msg.UserID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month)

	ref, err := w.exporter.Export(ctx, msg)
	if err != nil {
		w.failed.Add(1)
		w.logger.LogError(ctx, "Report export failed", err, log.OpExport,
			log.NewFields().WithPeriod(msg.UserID, msg.Year, msg.Month))
		return err
	}

	w.completed.Set(msg.JobID, ref)
	w.exported.Add(1)
	return nil
}

func (w *ReportWorker) Counters() Counters {
	return Counters{
		Exported:   w.exported.Load(),
		Failed:     w.failed.Load(),
		Duplicates: w.duplicates.Load(),
	}
}
