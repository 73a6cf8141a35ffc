package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the always-on Prometheus collectors every executor
// registers for itself, independent of whatever per-component metrics
// a ComponentLogic chooses to register through MetricsRegistrar.
type Metrics struct {
	ExecutorStatus     *prometheus.GaugeVec
	TuplesEmitted      *prometheus.CounterVec
	TuplesProcessed    *prometheus.CounterVec
	TuplesFailed       *prometheus.CounterVec
	ExecuteDuration    *prometheus.HistogramVec
	QueueDepth         *prometheus.GaugeVec
	QueueCapacity      *prometheus.GaugeVec
	BackpressureActive *prometheus.GaugeVec
	TickLatency        *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics builds the core collector set. Nothing here is registered
// with a Prometheus registry until MetricsRegistry.registerMetrics does
// it; that call uses MustRegister, so a duplicate panics instead of
// returning the classified error component registrations get.
func NewMetrics() *Metrics {
	return &Metrics{
		ExecutorStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "executor",
				Subsystem: "lifecycle",
				Name:      "status",
				Help:      "Executor lifecycle state (0=created,1=initialized,2=started,3=stopped,4=failed)",
			},
			[]string{"executor_id", "component"},
		),

		TuplesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "executor",
				Subsystem: "tuples",
				Name:      "emitted_total",
				Help:      "Tuples emitted on a stream",
			},
			[]string{"component", "stream"},
		),

		TuplesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "executor",
				Subsystem: "tuples",
				Name:      "processed_total",
				Help:      "Tuples executed by component logic and acknowledged",
			},
			[]string{"component", "stream"},
		),

		TuplesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "executor",
				Subsystem: "tuples",
				Name:      "failed_total",
				Help:      "Tuples that errored during execution or were explicitly failed by component logic",
			},
			[]string{"component", "stream"},
		),

		ExecuteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "executor",
				Subsystem: "tuples",
				Name:      "execute_duration_seconds",
				Help:      "Time spent inside a component's Execute or NextTuple call",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component"},
		),

		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "executor",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Occupied slots in a receive or transfer queue",
			},
			[]string{"executor_id", "queue"},
		),

		QueueCapacity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "executor",
				Subsystem: "queue",
				Name:      "capacity",
				Help:      "Configured capacity of a receive or transfer queue",
			},
			[]string{"executor_id", "queue"},
		),

		BackpressureActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "executor",
				Subsystem: "backpressure",
				Name:      "active",
				Help:      "Whether backpressure is currently signaled for a queue (0 or 1)",
			},
			[]string{"executor_id", "queue"},
		),

		TickLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "executor",
				Subsystem: "tick",
				Name:      "delivery_latency_seconds",
				Help:      "Delay between a scheduled tick's due time and its delivery",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "executor",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Errors reported through ReportError, by classification",
			},
			[]string{"component", "class"},
		),
	}
}

// RecordExecutorStatus updates the lifecycle gauge for one executor/component pair.
func (m *Metrics) RecordExecutorStatus(executorID, component string, state int) {
	m.ExecutorStatus.WithLabelValues(executorID, component).Set(float64(state))
}

// RecordTupleEmitted increments the emitted counter for a component/stream pair.
func (m *Metrics) RecordTupleEmitted(component, stream string) {
	m.TuplesEmitted.WithLabelValues(component, stream).Inc()
}

// RecordTupleProcessed increments the processed counter for a component/stream pair.
func (m *Metrics) RecordTupleProcessed(component, stream string) {
	m.TuplesProcessed.WithLabelValues(component, stream).Inc()
}

// RecordTupleFailed increments the failed counter for a component/stream pair.
func (m *Metrics) RecordTupleFailed(component, stream string) {
	m.TuplesFailed.WithLabelValues(component, stream).Inc()
}

// RecordExecuteDuration observes time spent inside a component's logic call.
func (m *Metrics) RecordExecuteDuration(component string, d time.Duration) {
	m.ExecuteDuration.WithLabelValues(component).Observe(d.Seconds())
}

// RecordQueueDepth sets the current depth gauge for a named queue.
func (m *Metrics) RecordQueueDepth(executorID, queue string, depth int) {
	m.QueueDepth.WithLabelValues(executorID, queue).Set(float64(depth))
}

// RecordQueueCapacity sets the configured capacity gauge for a named queue.
func (m *Metrics) RecordQueueCapacity(executorID, queue string, capacity int) {
	m.QueueCapacity.WithLabelValues(executorID, queue).Set(float64(capacity))
}

// RecordBackpressure sets the backpressure gauge for a queue.
func (m *Metrics) RecordBackpressure(executorID, queue string, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	m.BackpressureActive.WithLabelValues(executorID, queue).Set(value)
}

// RecordTickLatency observes the delay between a job's due time and delivery.
func (m *Metrics) RecordTickLatency(job string, d time.Duration) {
	m.TickLatency.WithLabelValues(job).Observe(d.Seconds())
}

// RecordError increments the classified error counter for a component.
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}
