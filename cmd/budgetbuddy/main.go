package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/config"
	apphttp "budgetbuddy/internal/http"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/middleware/ratelimit"
	"budgetbuddy/internal/receipt"
	"budgetbuddy/internal/services"
	"budgetbuddy/internal/stats"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()
	backend := cli.InitBackend(ctx, logger, cfg)

	statsSvc := stats.NewService(backend.Repository, backend.Converter, stats.Options{
		MaxConcurrentConversions: cfg.MaxConcurrentConversions,
		ConversionTimeout:        cfg.ConversionTimeout,
	}, logger)
	statsSvc.SetDefaultCurrency(cfg.DefaultCurrency)

	var ocr receipt.Recognizer
	if cfg.GoogleVisionAPIKey != "" {
		vc, err := receipt.NewVisionClient(ctx, cfg.GoogleVisionAPIKey, logger)
		if err != nil {
			logger.Error("Failed to initialize Vision client", log.FieldError, err)
			os.Exit(1)
		}
		ocr = vc
		logger.Info("Receipt OCR enabled")
	} else {
		logger.Info("Receipt OCR disabled - no GOOGLE_VISION_API_KEY provided")
	}

	// AMQP is optional; without it POST /api/stats/export answers 503
	var (
		amqpClient *amqp.Client
		exports    apphttp.ExportPublisher
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient, exports = client, client
		logger.Info("Report export enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	caches := cache.NewManager(logger)
	if backend.RatesCache != nil {
		caches.Register(backend.RatesCache)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Stats:        statsSvc,
		Transactions: services.NewTransactionService(backend.Repository, ocr, logger),
		Categories:   services.NewCategoryService(backend.Repository, logger),
		Accounts:     services.NewAccountService(backend.Repository, nil, logger),
		Exports:      exports,
	}, apphttp.Options{
		RateLimit:      ratelimit.Config{Limit: cfg.OCRRateLimit, Window: time.Minute},
		TrustedProxies: cfg.TrustedProxies,
	}, logger)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	appCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})
	caches.Start(appCtx, cfg.CacheCleanupInterval)

	logger.Info("Starting budgetbuddy server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"rates", cfg.RatesURL,
		log.FieldCurrency, cfg.DefaultCurrency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(appCtx, done)
	logger.Info("Server stopped gracefully")
}
