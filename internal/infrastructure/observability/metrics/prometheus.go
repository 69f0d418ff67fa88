// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline. Metric names follow Prometheus conventions with the service
// name as a prefix, and every series carries the pipeline stage it belongs
// to so dashboards can break down throughput and latency per stage.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the pre-configured metric vectors for the archive
// ingestion pipeline. It is constructed once at startup and injected into
// the pipeline; the HTTP runtime exposes the default registry on /metrics.
type PipelineMetrics struct {
	serviceName string

	// archivesTotal counts archives finishing a stage, by status and stage.
	archivesTotal *prometheus.CounterVec
	// stageErrorsTotal breaks failures down by error type and stage.
	stageErrorsTotal *prometheus.CounterVec
	// stageDurationSeconds tracks per-stage latency with default buckets.
	stageDurationSeconds *prometheus.HistogramVec
	// archiveSizeBytes tracks archive sizes, compressed and decompressed.
	archiveSizeBytes *prometheus.HistogramVec
	// inFlight tracks how many archives are currently inside each stage.
	inFlight *prometheus.GaugeVec
}

// New creates a PipelineMetrics instance and registers its vectors with the
// default Prometheus registry.
//
// Registered series:
//   - {serviceName}_archives_total{status,stage}
//   - {serviceName}_stage_errors_total{error_type,stage}
//   - {serviceName}_stage_duration_seconds{stage}
//   - {serviceName}_archive_size_bytes{kind}
//   - {serviceName}_in_flight{stage}
//
// Panics if registration fails, which only happens when two instances are
// created with the same service name in one process.
func New(serviceName string) *PipelineMetrics {
	m := &PipelineMetrics{
		serviceName: serviceName,
	}

	m.archivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_archives_total", serviceName),
			Help: fmt.Sprintf("Archives finishing a pipeline stage in %s", serviceName),
		},
		[]string{"status", "stage"},
	)

	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_stage_errors_total", serviceName),
			Help: fmt.Sprintf("Stage failures in %s by error type", serviceName),
		},
		[]string{"error_type", "stage"},
	)

	m.stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_stage_duration_seconds", serviceName),
			Help:    fmt.Sprintf("Per-stage processing duration in %s", serviceName),
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Archives arrive gzip-compressed in the low-MB range and expand on
	// decompression; exponential buckets from 1KB to 1GB cover both kinds.
	m.archiveSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_archive_size_bytes", serviceName),
			Help: fmt.Sprintf("Archive sizes processed by %s", serviceName),
			Buckets: []float64{
				1024,
				10240,
				102400,
				1048576,
				10485760,
				104857600,
				1073741824,
			},
		},
		[]string{"kind"},
	)

	m.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_flight", serviceName),
			Help: fmt.Sprintf("Archives currently inside a stage in %s", serviceName),
		},
		[]string{"stage"},
	)

	prometheus.MustRegister(
		m.archivesTotal,
		m.stageErrorsTotal,
		m.stageDurationSeconds,
		m.archiveSizeBytes,
		m.inFlight,
	)

	return m
}

// RecordProcessed increments the success counter for a stage.
//
// Example:
//
//	metrics.RecordProcessed("download")
func (m *PipelineMetrics) RecordProcessed(stage string) {
	m.archivesTotal.WithLabelValues("success", stage).Inc()
}

// RecordFailure increments both the per-stage failure counter and the
// detailed error counter, giving high-level failure rates and an error
// breakdown from the same recording.
//
// Example:
//
//	metrics.RecordFailure("download", "retries_exhausted")
func (m *PipelineMetrics) RecordFailure(stage string, errorType string) {
	m.archivesTotal.WithLabelValues("error", stage).Inc()
	m.stageErrorsTotal.WithLabelValues(errorType, stage).Inc()
}

// ObserveStageDuration records how long one archive spent in a stage.
// Use time.Since(start).Seconds() at the call site.
func (m *PipelineMetrics) ObserveStageDuration(stage string, seconds float64) {
	m.stageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// ObserveArchiveSize records an archive size in bytes. The kind label
// separates compressed from decompressed sizes.
func (m *PipelineMetrics) ObserveArchiveSize(kind string, bytes int64) {
	m.archiveSizeBytes.WithLabelValues(kind).Observe(float64(bytes))
}

// StageStarted increments the in-flight gauge for a stage. Pair with
// StageEnded, typically via defer, so the gauge stays accurate on errors.
func (m *PipelineMetrics) StageStarted(stage string) {
	m.inFlight.WithLabelValues(stage).Inc()
}

// StageEnded decrements the in-flight gauge for a stage.
func (m *PipelineMetrics) StageEnded(stage string) {
	m.inFlight.WithLabelValues(stage).Dec()
}
