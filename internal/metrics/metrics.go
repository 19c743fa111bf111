// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. Build one per registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	LedgerOperations    *prometheus.CounterVec
	TransactionRetries  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		LedgerOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by kind and outcome",
		}, []string{"op", "result"}),
		TransactionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "store_transaction_retries_total",
			Help: "Store transactions retried after a conflict or outage",
		}),
	}
	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.LedgerOperations, m.TransactionRetries)
	return m
}

// Observe records the outcome of a ledger operation. A nil receiver is a no-op.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LedgerOperations.WithLabelValues(op, result).Inc()
}

// RetryHook counts retries; plug it into store.RetryPolicy.OnRetry.
func (m *Metrics) RetryHook() func(int, error) {
	return func(int, error) {
		if m != nil {
			m.TransactionRetries.Inc()
		}
	}
}
