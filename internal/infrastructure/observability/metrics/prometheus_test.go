package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg

	m := New("testsvc")

	assert.NotNil(t, m)
	assert.Equal(t, "testsvc", m.serviceName)
}

func TestPipelineMetrics_RecordProcessed(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg

	m := New("testsvc")

	m.RecordProcessed("download")
	m.RecordProcessed("download")
	m.RecordProcessed("validate")

	downloads := testutil.ToFloat64(m.archivesTotal.WithLabelValues("success", "download"))
	validations := testutil.ToFloat64(m.archivesTotal.WithLabelValues("success", "validate"))

	assert.Equal(t, 2.0, downloads)
	assert.Equal(t, 1.0, validations)
}

func TestPipelineMetrics_RecordFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg

	m := New("testsvc")

	m.RecordFailure("download", "retries_exhausted")
	m.RecordFailure("download", "retries_exhausted")
	m.RecordFailure("decompress", "corrupt_gzip")

	downloadErrors := testutil.ToFloat64(m.archivesTotal.WithLabelValues("error", "download"))
	decompressErrors := testutil.ToFloat64(m.archivesTotal.WithLabelValues("error", "decompress"))

	assert.Equal(t, 2.0, downloadErrors)
	assert.Equal(t, 1.0, decompressErrors)

	retriesExhausted := testutil.ToFloat64(m.stageErrorsTotal.WithLabelValues("retries_exhausted", "download"))
	corruptGzip := testutil.ToFloat64(m.stageErrorsTotal.WithLabelValues("corrupt_gzip", "decompress"))

	assert.Equal(t, 2.0, retriesExhausted)
	assert.Equal(t, 1.0, corruptGzip)
}

func TestPipelineMetrics_InFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg

	m := New("testsvc")

	m.StageStarted("download")
	m.StageStarted("download")
	m.StageStarted("verify")

	downloadGauge := testutil.ToFloat64(m.inFlight.WithLabelValues("download"))
	verifyGauge := testutil.ToFloat64(m.inFlight.WithLabelValues("verify"))

	assert.Equal(t, 2.0, downloadGauge)
	assert.Equal(t, 1.0, verifyGauge)

	m.StageEnded("download")
	m.StageEnded("verify")

	downloadGauge = testutil.ToFloat64(m.inFlight.WithLabelValues("download"))
	verifyGauge = testutil.ToFloat64(m.inFlight.WithLabelValues("verify"))

	assert.Equal(t, 1.0, downloadGauge)
	assert.Equal(t, 0.0, verifyGauge)
}
