package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records dispatch outcomes for the payout worker.
type PayoutMetrics struct {
	dispatched *prometheus.CounterVec
	completed  prometheus.Counter
	failed     prometheus.Counter
	retried    prometheus.Counter
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soukly",
		Name:      "payout_dispatch_total",
		Help:      "Payout dispatch attempts by outcome.",
	}, []string{"outcome"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "soukly",
		Name:      "payout_completed_total",
		Help:      "Payouts confirmed completed by the provider.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "soukly",
		Name:      "payout_failed_total",
		Help:      "Payouts that exhausted their retry budget.",
	})
	retried := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "soukly",
		Name:      "payout_retry_total",
		Help:      "Payout dispatch attempts rescheduled after a failure.",
	})
	reg.MustRegister(dispatched, completed, failed, retried)
	return &PayoutMetrics{
		dispatched: dispatched,
		completed:  completed,
		failed:     failed,
		retried:    retried,
	}
}

// IncDispatched counts one dispatch attempt with the given outcome label.
func (p *PayoutMetrics) IncDispatched(outcome string) {
	if p == nil || p.dispatched == nil {
		return
	}
	p.dispatched.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCompleted counts one payout confirmed by the provider.
func (p *PayoutMetrics) IncCompleted() {
	if p == nil || p.completed == nil {
		return
	}
	p.completed.Inc()
}

// IncFailed counts one payout that went terminally failed.
func (p *PayoutMetrics) IncFailed() {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.Inc()
}

// IncRetried counts one payout pushed back onto the retry schedule.
func (p *PayoutMetrics) IncRetried() {
	if p == nil || p.retried == nil {
		return
	}
	p.retried.Inc()
}
