// Package metrics provides Prometheus instrumentation for matchstake.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LedgerEventsTotal counts match ledger events processed by the indexer.
	LedgerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchstake_ledger_events_total",
		Help: "Match ledger events processed, by kind",
	}, []string{"kind"})

	// IndexedBlock is the last block the indexer has committed.
	IndexedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchstake_indexed_block",
		Help: "Last ledger block committed by the indexer",
	})

	// FixtureSyncsTotal counts fixture sync runs by result.
	FixtureSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchstake_fixture_syncs_total",
		Help: "Fixture sync runs, by result",
	}, []string{"result"})

	// FixturesSynced counts fixtures written by the sync pipeline.
	FixturesSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchstake_fixtures_synced_total",
		Help: "Fixtures upserted by the sync pipeline",
	})

	// LogoPrefetchFailures counts failed or panicked logo preload requests.
	LogoPrefetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchstake_logo_prefetch_failures_total",
		Help: "Logo preload requests that failed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchstake_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchstake_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchstake_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "route"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The route label is the matched
// ServeMux pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker so WebSocket upgrades pass through.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
