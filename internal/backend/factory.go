package backend

import (
	"context"
	"fmt"

	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/memory"
	"budgetbuddy/internal/rates"
	"budgetbuddy/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		RatesURL:     appConfig.RatesURL,
		RatesTTL:     appConfig.RatesTTL,
	}, nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteRepository(cfg)
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{
		Repository: repo,
		Cleanup:    repo.Close,
	}
	f.attachConverter(ctx, cfg, result)
	return result, nil
}

func (f *DefaultFactory) createSQLiteRepository(cfg Config) (Repository, error) {
	if cfg.SQLiteDBPath == "" {
		return nil, fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) attachConverter(ctx context.Context, cfg Config, result *BackendResult) {
	if cfg.RatesURL == "" || cfg.RatesURL == config.RatesStatic {
		result.Converter = rates.NewStaticConverter(rates.DefaultTable())
		f.logger.InfoContext(ctx, "Using built-in exchange rates")
		return
	}
	cached := rates.NewCachedSource(rates.NewECBSource(cfg.RatesURL, f.logger), cfg.RatesTTL, f.logger)
	result.Converter = rates.NewConverter(cached)
	result.RatesCache = cached.Cache()
	f.logger.InfoContext(ctx, "Using remote exchange rates", "url", cfg.RatesURL, "ttl", cfg.RatesTTL)
}
