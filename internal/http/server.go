package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/metrics"
	"budgetbuddy/internal/middleware/ratelimit"
	"budgetbuddy/internal/middleware/security"
	"budgetbuddy/internal/middleware/trace"
	"budgetbuddy/internal/receipt"
	"budgetbuddy/internal/services"
)

// StatsService computes monthly stats.
type StatsService interface {
	GetMonthlyStats(ctx context.Context, userID int64, period core.Period, preferred string) (core.MonthlyStats, error)
	PreferredCurrency(ctx context.Context, userID int64) (string, error)
}

// TransactionService records and lists transactions.
type TransactionService interface {
	Create(ctx context.Context, userID int64, in services.TransactionInput) (core.Transaction, error)
	Preview(ctx context.Context, image string) (receipt.Result, error)
	Update(ctx context.Context, userID, id int64, in services.TransactionInput) (core.Transaction, error)
	List(ctx context.Context, userID int64, period core.Period) ([]core.Transaction, error)
	Delete(ctx context.Context, userID, id int64) error
}

// CategoryService manages a user's categories.
type CategoryService interface {
	List(ctx context.Context, userID int64) ([]services.CategoryOverview, error)
	Create(ctx context.Context, userID int64, c core.Category) (core.Category, error)
	Update(ctx context.Context, userID, id int64, c core.Category) (core.Category, error)
	Delete(ctx context.Context, userID, id int64) error
}

// AccountService owns account setup and settings.
type AccountService interface {
	Initialize(ctx context.Context, userID int64) ([]core.Category, error)
	SetPreferredCurrency(ctx context.Context, userID int64, code string) (string, error)
}

// ExportPublisher queues report export jobs.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

// Deps are the services behind the API. Exports may be nil, which disables
// report export.
type Deps struct {
	Stats        StatsService
	Transactions TransactionService
	Categories   CategoryService
	Accounts     AccountService
	Exports      ExportPublisher
}

// Options tune the middleware stack.
type Options struct {
	// RateLimit applies to the endpoints that may call OCR.
	RateLimit      ratelimit.Config
	TrustedProxies []string
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	resolver *security.Resolver
	tracer   *trace.Middleware
	logger   *log.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	resolver, err := security.NewResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		resolver: resolver,
		logger:   logger.WithComponent(log.ComponentHTTP),
		now:      time.Now,
	}
	s.tracer = trace.NewMiddleware(resolver.ClientIP, s.logger)

	mux := http.NewServeMux()
	limited := s.limiter.Middleware(s.rateLimitKey, s.onRateLimit)

	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/stats/export", s.handleExport)

	mux.Handle("POST /api/transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.Handle("POST /api/transactions/ocr-preview", limited(http.HandlerFunc(s.handleOCRPreview)))
	mux.Handle("POST /api/receipts/extract", limited(http.HandlerFunc(s.handleExtract)))

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/users/init", s.handleInitUser)
	mux.HandleFunc("PUT /api/users/currency", s.handleSetCurrency)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := http.TimeoutHandler(mux, opts.RequestTimeout, `{"error":"request timed out"}`)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(handler)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// rateLimitKey limits per user when the caller is identified, else per IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id, err := userID(r); err == nil {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + s.resolver.ClientIP(r)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path,
		log.FieldClientIP, s.resolver.ClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{
		Error:     "rate limit exceeded, try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// TraceMetrics exposes request counters for diagnostics.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
