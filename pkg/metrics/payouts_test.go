package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPayoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPayoutMetrics(reg)

	metrics.IncDispatched("sent")
	metrics.IncDispatched("sent")
	metrics.IncCompleted()
	metrics.IncFailed()
	metrics.IncRetried()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "soukly_payout_dispatch_total", "outcome", "sent"); err != nil {
		t.Fatalf("fetch dispatched: %v", err)
	} else if got != 2 {
		t.Fatalf("expected dispatched=2, got %f", got)
	}

	for _, name := range []string{"soukly_payout_completed_total", "soukly_payout_failed_total", "soukly_payout_retry_total"} {
		mf := findMetricFamily(mfs, name)
		if mf == nil {
			t.Fatalf("metric %q not found", name)
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
			t.Fatalf("expected %s=1, got %f", name, got)
		}
	}
}

func TestPayoutMetricsNilSafe(t *testing.T) {
	var metrics *PayoutMetrics
	metrics.IncDispatched("sent")
	metrics.IncCompleted()
	metrics.IncFailed()
	metrics.IncRetried()
}
