package outreach

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the cadence engine.
type Metrics struct {
	StepsScheduled    *prometheus.CounterVec
	SequencesClosed   *prometheus.CounterVec
	TouchTasksCreated *prometheus.CounterVec
	TouchesRecorded   *prometheus.CounterVec
	PromoteBatchSize  prometheus.Histogram
	PromoteDuration   prometheus.Histogram
}

// NewMetrics registers the engine metrics once and returns them.
//
// Metrics:
//   - cadence_steps_scheduled_total{channel}
//   - cadence_sequences_closed_total{status}
//   - cadence_touch_tasks_created_total{channel}
//   - cadence_touches_recorded_total{status}
//   - cadence_promote_batch_size
//   - cadence_promote_duration_seconds
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			StepsScheduled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_steps_scheduled_total",
					Help: "Total number of steps drafted by the scheduler",
				},
				[]string{"channel"},
			),
			SequencesClosed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_sequences_closed_total",
					Help: "Total number of sequences moved to a terminal status",
				},
				[]string{"status"},
			),
			TouchTasksCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_touch_tasks_created_total",
					Help: "Total number of touch tasks created from due steps",
				},
				[]string{"channel"},
			),
			TouchesRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_touches_recorded_total",
					Help: "Total number of touch completions recorded",
				},
				[]string{"status"},
			),
			PromoteBatchSize: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "cadence_promote_batch_size",
					Help:    "Number of due steps claimed per sweep",
					Buckets: []float64{0, 1, 5, 10, 25, 50},
				},
			),
			PromoteDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "cadence_promote_duration_seconds",
					Help:    "Duration of due-step sweeps in seconds",
					Buckets: prometheus.DefBuckets,
				},
			),
		}
	})
	return globalMetrics
}
