// Package metrics exposes the Prometheus collectors shared by the API and
// the workers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion outcomes
const (
	OutcomeIdentity  = "identity"
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
)

var (
	conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budgetbuddy",
		Name:      "currency_conversions_total",
		Help:      "Currency group conversions by outcome.",
	}, []string{"outcome"})

	statsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "budgetbuddy",
		Name:      "stats_duration_seconds",
		Help:      "Time spent assembling monthly stats.",
		Buckets:   prometheus.DefBuckets,
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budgetbuddy",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	rateFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budgetbuddy",
		Name:      "rate_fetches_total",
		Help:      "Exchange rate table fetches by result.",
	}, []string{"result"})
)

func ObserveConversion(outcome string) {
	conversions.WithLabelValues(outcome).Inc()
}

func ObserveStatsDuration(d time.Duration) {
	statsDuration.Observe(d.Seconds())
}

func ObserveHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveRateFetch records a remote rate fetch; result is "ok" or "error".
func ObserveRateFetch(result string) {
	rateFetches.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
