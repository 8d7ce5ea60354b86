// Package metrics defines the Prometheus collectors of the job orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "ui_builder"
	Subsystem = "orchestrator"
)

// Metrics holds the orchestrator collectors.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsTerminal  *prometheus.CounterVec
	JobsInFlight  prometheus.Gauge
	JobsQueued    prometheus.Gauge

	StageAttempts *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	ValidationScore  prometheus.Histogram
	CoverageEstimate prometheus.Histogram
}

// New creates and registers all collectors on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{}
	m.initJobMetrics(factory)
	m.initStageMetrics(factory)
	return m
}

func (m *Metrics) initJobMetrics(factory promauto.Factory) {
	m.JobsSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "jobs_submitted_total",
		Help:      "Total number of accepted job submissions",
	})
	m.JobsTerminal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "jobs_finished_total",
		Help:      "Total number of jobs that reached a terminal status",
	}, []string{"status"})
	m.JobsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "jobs_in_flight",
		Help:      "Number of jobs currently holding a worker slot",
	})
	m.JobsQueued = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "jobs_queued",
		Help:      "Number of jobs waiting for a worker slot",
	})
}

func (m *Metrics) initStageMetrics(factory promauto.Factory) {
	m.StageAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "stage_attempts_total",
		Help:      "Stage attempts by stage and outcome",
	}, []string{"stage", "outcome"})
	m.StageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Duration of a single stage attempt in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"stage"})
	m.ValidationScore = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "validation_overall_score",
		Help:      "Overall validation score of generated components",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})
	m.CoverageEstimate = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "coverage_estimate_ratio",
		Help:      "Estimated (not measured) test coverage of generated suites",
		Buckets:   prometheus.LinearBuckets(0.5, 0.05, 11),
	})
}
