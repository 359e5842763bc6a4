package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts inbound provider webhooks by outcome.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound payment webhooks by provider and outcome.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(outcomes)
	return &WebhookMetrics{outcomes: outcomes}
}

// IncOutcome records a processed webhook.
func (m *WebhookMetrics) IncOutcome(provider, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
