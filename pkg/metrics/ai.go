package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AICallMetrics tracks latency and failures of the label, enrichment, and
// pricing calls.
type AICallMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
}

func NewAICallMetrics(reg prometheus.Registerer) *AICallMetrics {
	if reg == nil {
		return &AICallMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ai_call_duration_seconds",
		Help:      "Latency of AI collaborator calls in seconds.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_call_failure_total",
		Help:      "Failed AI collaborator calls.",
	}, []string{"operation"})
	reg.MustRegister(duration, failure)
	return &AICallMetrics{duration: duration, failure: failure}
}

// Observe records one call. err != nil counts as a failure.
func (m *AICallMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.failure.WithLabelValues(op).Inc()
	}
}
