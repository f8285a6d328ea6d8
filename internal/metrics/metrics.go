// Package metrics provides Prometheus instrumentation for Nexa Guard.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexaguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AnalysesTotal counts completed analyses by kind (wallet, token) and level.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaguard",
			Name:      "analyses_total",
			Help:      "Completed risk analyses by kind and risk level.",
		},
		[]string{"kind", "level"},
	)

	// AnalysisErrorsTotal counts analyses that returned an error.
	AnalysisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaguard",
			Name:      "analysis_errors_total",
			Help:      "Failed risk analyses by kind.",
		},
		[]string{"kind"},
	)

	// RiskScore observes the distribution of produced scores.
	RiskScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexaguard",
			Name:      "risk_score",
			Help:      "Risk scores produced by kind.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"kind"},
	)

	// FallbacksTotal counts enrichment fetches that failed and were replaced
	// by a default value.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaguard",
			Name:      "fetch_fallbacks_total",
			Help:      "Optional ledger fetches that fell back to a default, by field.",
		},
		[]string{"field"},
	)

	// LedgerRequestsTotal counts fullnode calls by method and result.
	LedgerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaguard",
			Name:      "ledger_requests_total",
			Help:      "Fullnode JSON-RPC calls by method and result.",
		},
		[]string{"method", "result"},
	)

	// LedgerRequestDuration observes fullnode call latency by method.
	LedgerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexaguard",
			Name:      "ledger_request_duration_seconds",
			Help:      "Fullnode JSON-RPC call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// HistoryEntries tracks how many entries the recent-history log holds.
	HistoryEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexaguard",
		Name:      "history_entries",
		Help:      "Number of entries in the recent analysis history.",
	})

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexaguard",
		Name:      "active_websocket_clients",
		Help:      "Number of currently connected WebSocket clients.",
	})

	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexaguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AnalysesTotal,
		AnalysisErrorsTotal,
		RiskScore,
		FallbacksTotal,
		LedgerRequestsTotal,
		LedgerRequestDuration,
		HistoryEntries,
		ActiveWebSocketClients,
		GoroutineCount,
	)
}

// ObserveAnalysis records one finished analysis.
func ObserveAnalysis(kind, level string, score int) {
	AnalysesTotal.WithLabelValues(kind, level).Inc()
	RiskScore.WithLabelValues(kind).Observe(float64(score))
}

// StartRuntimeCollector samples the goroutine count until ctx is done.
// Call in a goroutine.
func StartRuntimeCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern keeps label cardinality bounded
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
