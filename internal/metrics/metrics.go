// Package metrics holds the per-run Prometheus collectors and writes them in
// text format for a node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var stageBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Run collects the counts and stage timings of a single pipeline run. A nil
// *Run is valid and records nothing.
type Run struct {
	registry *prometheus.Registry

	records       prometheus.Gauge
	pairs         prometheus.Gauge
	alerts        prometheus.Gauge
	persisted     prometheus.Gauge
	lastRun       prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
}

// NewRun creates a Run backed by its own registry.
func NewRun() *Run {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "longevents",
			Subsystem: "run",
			Name:      name,
			Help:      help,
		})
	}

	m := &Run{
		registry:  prometheus.NewRegistry(),
		records:   gauge("records", "Records ingested by the last run"),
		pairs:     gauge("pairs", "Start/finish pairs produced by the last run"),
		alerts:    gauge("alerts", "Pairs whose duration exceeded the threshold"),
		persisted: gauge("persisted_rows", "Alert rows read back from the sink"),
		lastRun:   gauge("last_completed_timestamp_seconds", "Unix time the last run reached shutdown"),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "longevents",
			Subsystem: "run",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   stageBuckets,
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "longevents",
			Subsystem: "run",
			Name:      "stage_failures_total",
			Help:      "Degraded pipeline stages by kind",
		}, []string{"stage", "kind"}),
	}
	m.registry.MustRegister(m.records, m.pairs, m.alerts, m.persisted, m.lastRun, m.stageDuration, m.stageFailures)
	return m
}

// Registry exposes the underlying registry.
func (m *Run) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetRecords records the number of ingested records.
func (m *Run) SetRecords(n int) {
	if m != nil {
		m.records.Set(float64(n))
	}
}

// SetPairs records the number of correlated pairs.
func (m *Run) SetPairs(n int) {
	if m != nil {
		m.pairs.Set(float64(n))
	}
}

// SetAlerts records the number of pairs above the threshold.
func (m *Run) SetAlerts(n int) {
	if m != nil {
		m.alerts.Set(float64(n))
	}
}

// SetPersisted records the number of rows read back from the sink.
func (m *Run) SetPersisted(n int) {
	if m != nil {
		m.persisted.Set(float64(n))
	}
}

// ObserveStage records how long stage took.
func (m *Run) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// StageFailed counts one degraded stage.
func (m *Run) StageFailed(stage, kind string) {
	if m != nil {
		m.stageFailures.WithLabelValues(stage, kind).Inc()
	}
}

// Completed stamps the completion time.
func (m *Run) Completed(at time.Time) {
	if m != nil {
		m.lastRun.Set(float64(at.Unix()))
	}
}

// WriteTextfile writes the registry to path atomically.
func (m *Run) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
