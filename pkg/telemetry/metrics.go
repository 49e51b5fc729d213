package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for workflow execution.
// A nil *Metrics (or one built from a disabled config) is a no-op, so the
// engine can record unconditionally.
type Metrics struct {
	config MetricsConfig

	tasksExecuted *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	activeRuns    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		tasksExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed, by resulting state",
			},
			[]string{"state"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Duration of task execution in seconds",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of workflow runs completed, by outcome",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of workflow runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Number of workflow runs currently executing",
			},
		),
	}

	registry.MustRegister(
		m.tasksExecuted,
		m.taskDuration,
		m.runsCompleted,
		m.runDuration,
		m.activeRuns,
	)

	return m, nil
}

// enabled reports whether this collector records anything.
func (m *Metrics) enabled() bool {
	return m != nil && m.config.Enabled
}

// RunStarted increments the active run gauge.
func (m *Metrics) RunStarted() {
	if !m.enabled() {
		return
	}
	m.activeRuns.Inc()
}

// RecordRunCompleted records the outcome and duration of a finished run.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.activeRuns.Dec()
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTaskExecuted records a single task execution.
func (m *Metrics) RecordTaskExecuted(job, state string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.tasksExecuted.WithLabelValues(state).Inc()
	m.taskDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the metrics in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
