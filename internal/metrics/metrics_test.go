package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsByResult(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe("purchase", nil)
	m.Observe("purchase", nil)
	m.Observe("purchase", errors.New("boom"))

	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("purchase", "ok")); got != 2 {
		t.Fatalf("expected 2 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("purchase", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestRetryHook(t *testing.T) {
	m := New(prometheus.NewRegistry())
	hook := m.RetryHook()
	hook(1, nil)
	hook(2, nil)
	if got := testutil.ToFloat64(m.TransactionRetries); got != 2 {
		t.Fatalf("expected 2 retries, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Observe("purchase", nil)
	nilMetrics.RetryHook()(1, nil)
}
