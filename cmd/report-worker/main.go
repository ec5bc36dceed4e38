package main

import (
	"context"
	"os"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"
	gsheet "budgetbuddy/internal/sheets/google"
	"budgetbuddy/internal/stats"
	"budgetbuddy/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx := context.Background()
	backend := cli.InitBackend(ctx, logger, cfg)

	statsSvc := stats.NewService(backend.Repository, backend.Converter, stats.Options{
		MaxConcurrentConversions: cfg.MaxConcurrentConversions,
		ConversionTimeout:        cfg.ConversionTimeout,
	}, logger)
	statsSvc.SetDefaultCurrency(cfg.DefaultCurrency)

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	reportWorker := worker.NewReportWorker(amqpClient, services.NewReportExporter(statsSvc, sheetsClient, logger), logger)

	caches := cache.NewManager(logger)
	caches.Register(reportWorker.CompletedJobs())
	if backend.RatesCache != nil {
		caches.Register(backend.RatesCache)
	}

	appCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})
	caches.Start(appCtx, cfg.CacheCleanupInterval)

	if err := reportWorker.Run(appCtx); err != nil {
		logger.Error("Report worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(appCtx, done)
	c := reportWorker.Counters()
	logger.Info("Worker shutdown complete",
		"exported", c.Exported,
		"failed", c.Failed,
		"duplicates", c.Duplicates)
}
