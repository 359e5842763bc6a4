package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTaskAndWebhookMetricsNormalizeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	tasks := NewTaskMetrics(reg)
	webhooks := NewWebhookMetrics(reg)

	tasks.Observe("render_invoice_pdf", "success", 120*time.Millisecond)
	tasks.Observe(" ", "retry", time.Second)
	tasks.IncFailedPermanent("verify_payment")
	webhooks.IncOutcome("paystack", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "task_executions_total", "kind", "render_invoice_pdf"); err != nil || got != 1 {
		t.Fatalf("expected one render execution, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "task_executions_total", "kind", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected blank kind to map to unknown, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "task_duration_seconds", "kind", "render_invoice_pdf"); err != nil || got != 0.12 {
		t.Fatalf("unexpected duration sum %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "task_failed_permanent_total", "kind", "verify_payment"); err != nil || got != 1 {
		t.Fatalf("expected one permanent failure, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected blank outcome to map to unknown, got %f err=%v", got, err)
	}
}

func TestNilRegistererMetricsAreNoops(t *testing.T) {
	NewTaskMetrics(nil).Observe("x", "y", time.Second)
	NewTaskMetrics(nil).IncFailedPermanent("x")
	NewWebhookMetrics(nil).IncOutcome("x", "y")
}
