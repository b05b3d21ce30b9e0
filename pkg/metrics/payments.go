package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by payment and refund counters.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeReplayed  = "replayed"
	// OutcomeDuplicate counts captures that arrived for an already settled
	// payment under a different transaction; each one needs a manual refund.
	OutcomeDuplicate = "duplicate_capture"
)

// PaymentMetrics tracks provider traffic for the payment orchestrator and refund coordinator.
type PaymentMetrics struct {
	payments *prometheus.CounterVec
	refunds  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_processed_total",
		Help:      "Payment requests by provider and outcome.",
	}, []string{"provider", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refunds_processed_total",
		Help:      "Refund requests by provider and outcome.",
	}, []string{"provider", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_provider_call_seconds",
		Help:      "Latency of outbound payment provider calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"provider", "operation"})
	reg.MustRegister(payments, refunds, latency)
	return &PaymentMetrics{payments: payments, refunds: refunds, latency: latency}
}

func (p *PaymentMetrics) IncPayment(provider, outcome string) {
	if p == nil || p.payments == nil {
		return
	}
	p.payments.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

func (p *PaymentMetrics) IncRefund(provider, outcome string) {
	if p == nil || p.refunds == nil {
		return
	}
	p.refunds.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// ObserveProviderCall records how long a provider operation took.
func (p *PaymentMetrics) ObserveProviderCall(provider, operation string, d time.Duration) {
	if p == nil || p.latency == nil {
		return
	}
	p.latency.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(d.Seconds())
}
