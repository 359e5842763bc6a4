package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TaskMetrics records async task execution outcomes.
type TaskMetrics struct {
	executions      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	failedPermanent *prometheus.CounterVec
}

// NewTaskMetrics registers task metrics on the provided registerer.
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		return &TaskMetrics{}
	}
	executions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "task_executions_total",
		Help: "Async task executions by kind and result.",
	}, []string{"kind", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "task_duration_seconds",
		Help:    "Duration of async task handlers in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})
	failedPermanent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "task_failed_permanent_total",
		Help: "Tasks that exhausted their retry budget.",
	}, []string{"kind"})
	reg.MustRegister(executions, duration, failedPermanent)
	return &TaskMetrics{
		executions:      executions,
		duration:        duration,
		failedPermanent: failedPermanent,
	}
}

// Observe records one handler execution.
func (m *TaskMetrics) Observe(kind, result string, duration time.Duration) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncFailedPermanent counts a task that will not be retried again.
func (m *TaskMetrics) IncFailedPermanent(kind string) {
	if m == nil || m.failedPermanent == nil {
		return
	}
	m.failedPermanent.WithLabelValues(normalizeLabel(kind)).Inc()
}
