package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics holds the Prometheus instruments behind /metrics. Each
// server gets its own registry so tests can run servers side by side.
type serverMetrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	importRows      *prometheus.CounterVec
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloombook_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloombook_ledger_mutations_total",
			Help: "Committed ledger mutations by operation.",
		}, []string{"operation"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloombook_import_rows_total",
			Help: "CSV import rows by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.requestDuration, m.mutations, m.importRows)
	return m
}

func (m *serverMetrics) observeRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *serverMetrics) countMutation(operation string) {
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *serverMetrics) countImport(imported, skipped int) {
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
