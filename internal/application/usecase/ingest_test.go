package usecase

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto_model "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appdto "trailingest/internal/application/dto"
	"trailingest/internal/application/ports"
	pmocks "trailingest/internal/application/ports/mocks"
	"trailingest/internal/config"
	"trailingest/internal/domain/archive"
	obmocks "trailingest/internal/domain/observability/mocks"
	"trailingest/internal/domain/pathsafe"
	"trailingest/internal/domain/storage"
	stmocks "trailingest/internal/domain/storage/mocks"
	"trailingest/internal/infrastructure/observability/metrics"
	"trailingest/internal/service"
)

const (
	testBucket = "audit-archive"
	testPrefix = "logs"
	testSuffix = ".gz"

	validRecords = `{"Records":[{"eventVersion":"1.08","eventTime":"2024-01-15T10:00:00Z","eventSource":"s3.amazonaws.com","eventName":"GetObject"}]}`
)

type ingestFixture struct {
	store       *stmocks.MockObjectStore
	queue       *pmocks.MockQueue
	runs        *pmocks.MockRunRepository
	registry    *prometheus.Registry
	uc          *IngestUseCase
	rawRoot     string
	processed   string
	reportsRoot string
}

func newIngestFixture(t *testing.T, workers int, mutate ...func(*IngestDeps)) *ingestFixture {
	t.Helper()

	registry := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = registry

	logger := obmocks.NewQuietLogger()
	quiet := obmocks.NewQuietMetrics()
	obs := obmocks.NewQuietObservability()

	store := &stmocks.MockObjectStore{}
	dataRoot := t.TempDir()
	rawRoot := filepath.Join(dataRoot, "raw")
	processedRoot := filepath.Join(dataRoot, "processed")
	reportsRoot := filepath.Join(dataRoot, "reports")

	retry := config.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	deps := IngestDeps{
		List:       service.NewListService(store, testBucket, testPrefix, testSuffix, logger, quiet),
		Download:   service.NewDownloadService(store, testBucket, rawRoot, retry, logger, quiet),
		Verify:     service.NewVerifyService(logger, quiet),
		Decompress: service.NewDecompressService(processedRoot, testSuffix, logger, quiet),
		Validators: []service.Validator{
			service.NewStructuralValidator(logger, quiet),
			service.NewSampleRecordValidator(logger, quiet),
		},
		Reconcile: service.NewReconcileService(rawRoot, processedRoot, testSuffix, logger, quiet),
		Report:    service.NewReportService(dataRoot, reportsRoot, logger, quiet),
		Pipeline:  metrics.New("testingest"),
		Workers:   workers,
	}
	for _, m := range mutate {
		m(&deps)
	}

	uc, err := NewIngestUseCase(deps, obs)
	require.NoError(t, err)

	return &ingestFixture{
		store:       store,
		registry:    registry,
		uc:          uc,
		rawRoot:     rawRoot,
		processed:   processedRoot,
		reportsRoot: reportsRoot,
	}
}

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// object stubs one fetchable archive and returns its listing entry.
func (f *ingestFixture) object(key string, body []byte) storage.ObjectInfo {
	f.store.On("Get", mock.Anything, testBucket, key).
		Return(io.NopCloser(bytes.NewReader(body)), nil).Once()
	return storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(body)),
		ETag:         "0f343b0931126a20f133d67c2b018a3b",
		LastModified: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *ingestFixture) stubListing(objects ...storage.ObjectInfo) {
	f.store.On("ListPage", mock.Anything, testBucket, "logs/2024/01/15/", "").
		Return(storage.Page{Objects: objects}, nil).Once()
}

func (f *ingestFixture) reportFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.reportsRoot, "*.json"))
	require.NoError(t, err)
	return matches
}

// counterValue reads one counter series from the test registry.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if matchesLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchesLabels(m *dto_model.Metric, labels map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, pair := range m.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestIngestUseCase_Run(t *testing.T) {
	goodArchive := func(t *testing.T) []byte { return gzipBytes(t, validRecords) }

	t.Run("all archives survive the full pipeline", func(t *testing.T) {
		f := newIngestFixture(t, 4)

		objects := make([]storage.ObjectInfo, 0, 10)
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("logs/2024/01/15/events_%02d.json.gz", i)
			objects = append(objects, f.object(key, goodArchive(t)))
		}
		f.stubListing(objects...)

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		require.NotNil(t, out)
		assert.NotEmpty(t, out.RunID)
		assert.Equal(t, archive.StatusSuccess, out.Report.Summary.Status)

		result := out.Report.ValidationResult
		assert.Equal(t, 10, result.TotalListed)
		assert.Equal(t, 10, result.DownloadedCount)
		assert.Equal(t, 10, result.DecompressedCount)
		assert.Equal(t, 10, result.ValidatedCount)
		assert.Equal(t, 100.0, result.SuccessRate)
		assert.Empty(t, result.FailedDownloads)
		assert.Empty(t, result.FailedDecompressions)
		assert.Empty(t, result.FailedValidations)

		assert.FileExists(t, out.ReportPath)
		assert.FileExists(t, filepath.Join(f.rawRoot, "logs", "2024", "01", "15", "events_00.json.gz"))
		assert.FileExists(t, filepath.Join(f.processed, "logs", "2024", "01", "15", "events_00.json"))

		assert.Equal(t, 10.0, counterValue(t, f.registry, "testingest_archives_total",
			map[string]string{"status": "success", "stage": "validate"}))

		f.store.AssertExpectations(t)
	})

	t.Run("failed downloads surface as real keys in the report", func(t *testing.T) {
		f := newIngestFixture(t, 4)

		objects := make([]storage.ObjectInfo, 0, 10)
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("logs/2024/01/15/events_%02d.json.gz", i)
			if i == 3 || i == 7 {
				f.store.On("Get", mock.Anything, testBucket, key).
					Return(nil, errors.New("access denied")).Times(3)
				objects = append(objects, storage.ObjectInfo{Key: key, Size: 64})
				continue
			}
			objects = append(objects, f.object(key, goodArchive(t)))
		}
		f.stubListing(objects...)

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		assert.Equal(t, archive.StatusPartialSuccess, out.Report.Summary.Status)

		result := out.Report.ValidationResult
		assert.Equal(t, 10, result.TotalListed)
		assert.Equal(t, 8, result.DownloadedCount)
		assert.Equal(t, 8, result.ValidatedCount)
		assert.Equal(t, 80.0, result.SuccessRate)
		assert.Equal(t, []string{
			"logs/2024/01/15/events_03.json.gz",
			"logs/2024/01/15/events_07.json.gz",
		}, result.FailedDownloads)
		assert.Equal(t, 2, out.Report.Summary.IssuesFound)

		var persisted archive.IntegrityReport
		data, readErr := os.ReadFile(out.ReportPath)
		require.NoError(t, readErr)
		require.NoError(t, json.Unmarshal(data, &persisted))
		assert.Equal(t, result.FailedDownloads, persisted.ValidationResult.FailedDownloads)

		assert.Equal(t, 2.0, counterValue(t, f.registry, "testingest_stage_errors_total",
			map[string]string{"error_type": "download", "stage": "download"}))

		f.store.AssertExpectations(t)
	})

	t.Run("each stage loss lands in its own failure set", func(t *testing.T) {
		f := newIngestFixture(t, 2)

		good := gzipBytes(t, validRecords)
		sizeMismatch := storage.ObjectInfo{Key: "logs/2024/01/15/short.json.gz", Size: int64(len(good)) + 5}
		f.store.On("Get", mock.Anything, testBucket, sizeMismatch.Key).
			Return(io.NopCloser(bytes.NewReader(good)), nil).Once()

		notGzip := f.object("logs/2024/01/15/plain.json.gz", []byte("not gzip data"))
		arrayShape := f.object("logs/2024/01/15/array.json.gz", gzipBytes(t, `["a","b"]`))
		healthy := f.object("logs/2024/01/15/healthy.json.gz", good)

		f.stubListing(sizeMismatch, notGzip, arrayShape, healthy)

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		result := out.Report.ValidationResult
		assert.Equal(t, 4, result.TotalListed)
		assert.Equal(t, 3, result.DownloadedCount)
		assert.Equal(t, 2, result.DecompressedCount)
		assert.Equal(t, 1, result.ValidatedCount)
		assert.Equal(t, []string{sizeMismatch.Key}, result.FailedDownloads)
		assert.Equal(t, []string{notGzip.Key}, result.FailedDecompressions)
		assert.Equal(t, []string{arrayShape.Key}, result.FailedValidations)
		assert.Equal(t, 25.0, result.SuccessRate)
		assert.Equal(t, archive.StatusPartialSuccess, out.Report.Summary.Status)

		f.store.AssertExpectations(t)
	})

	t.Run("empty window still produces a report", func(t *testing.T) {
		f := newIngestFixture(t, 4)
		f.stubListing()

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		assert.Equal(t, archive.StatusFailure, out.Report.Summary.Status)
		assert.Equal(t, 0, out.Report.ValidationResult.TotalListed)
		assert.Equal(t, 0.0, out.Report.ValidationResult.SuccessRate)
		assert.FileExists(t, out.ReportPath)
	})

	t.Run("invalid date range rejects before any store call", func(t *testing.T) {
		f := newIngestFixture(t, 4)

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{
			StartDate: "2024-01-20",
			EndDate:   "2024-01-10",
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, archive.ErrInvalidDateRange))
		assert.Nil(t, out)
		f.store.AssertNotCalled(t, "ListPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancellation before processing abandons the run without a report", func(t *testing.T) {
		f := newIngestFixture(t, 4)
		f.store.On("ListPage", mock.Anything, testBucket, "logs/2024/01/15/", "").
			Return(storage.Page{Objects: []storage.ObjectInfo{{Key: "logs/2024/01/15/a.json.gz", Size: 1}}}, nil).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out, err := f.uc.Run(ctx, &appdto.RunRequest{StartDate: "2024-01-15"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, out)
		assert.Empty(t, f.reportFiles(t))
		f.store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancellation mid-run abandons the run without a report", func(t *testing.T) {
		f := newIngestFixture(t, 2)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		good := gzipBytes(t, validRecords)
		objects := make([]storage.ObjectInfo, 0, 6)
		for i := 0; i < 6; i++ {
			key := fmt.Sprintf("logs/2024/01/15/events_%02d.json.gz", i)
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(good))})
			if i == 0 {
				f.store.On("Get", mock.Anything, testBucket, key).
					Run(func(mock.Arguments) { cancel() }).
					Return(nil, errors.New("connection reset")).Maybe()
				continue
			}
			f.store.On("Get", mock.Anything, testBucket, key).
				Return(io.NopCloser(bytes.NewReader(good)), nil).Maybe()
		}
		f.stubListing(objects...)

		out, err := f.uc.Run(ctx, &appdto.RunRequest{StartDate: "2024-01-15"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, out)
		assert.Empty(t, f.reportFiles(t))
	})

	t.Run("completion event and history row are written after the run", func(t *testing.T) {
		queue := &pmocks.MockQueue{}
		runs := &pmocks.MockRunRepository{}
		f := newIngestFixture(t, 2, func(deps *IngestDeps) {
			deps.Queue = queue
			deps.QueueTarget = "ingest-completed"
			deps.Runs = runs
		})

		f.stubListing(f.object("logs/2024/01/15/events_00.json.gz", goodArchive(t)))

		queue.On("Publish", mock.Anything, mock.MatchedBy(func(msg *ports.QueueMessage) bool {
			event, ok := msg.Body.(*appdto.RunCompletedEvent)
			return ok &&
				msg.Target == "ingest-completed" &&
				event.EventType == "ingest.run.completed" &&
				event.Status == string(archive.StatusSuccess) &&
				event.SuccessRate == 100.0
		})).Return(nil).Once()

		runs.On("Save", mock.Anything, mock.MatchedBy(func(r *archive.RunRecord) bool {
			return r.Status == archive.StatusSuccess &&
				r.TotalListed == 1 &&
				r.Validated == 1 &&
				r.StartDate == "2024-01-15" &&
				r.ReportPath != ""
		})).Return(nil).Once()

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		require.NotNil(t, out)
		queue.AssertExpectations(t)
		runs.AssertExpectations(t)
	})

	t.Run("notification and history failures do not fail the run", func(t *testing.T) {
		queue := &pmocks.MockQueue{}
		runs := &pmocks.MockRunRepository{}
		f := newIngestFixture(t, 2, func(deps *IngestDeps) {
			deps.Queue = queue
			deps.QueueTarget = "ingest-completed"
			deps.Runs = runs
		})

		f.stubListing(f.object("logs/2024/01/15/events_00.json.gz", goodArchive(t)))
		queue.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
		runs.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		assert.Equal(t, archive.StatusSuccess, out.Report.Summary.Status)
	})

	t.Run("rejected report path leaves the run result intact", func(t *testing.T) {
		outside := t.TempDir()
		f := newIngestFixture(t, 2, func(deps *IngestDeps) {
			logger := obmocks.NewQuietLogger()
			quiet := obmocks.NewQuietMetrics()
			deps.Report = service.NewReportService(filepath.Join(outside, "approved"), filepath.Join(outside, "elsewhere"), logger, quiet)
		})

		f.stubListing(f.object("logs/2024/01/15/events_00.json.gz", goodArchive(t)))

		out, err := f.uc.Run(context.Background(), &appdto.RunRequest{StartDate: "2024-01-15"})

		require.NoError(t, err)
		assert.Empty(t, out.ReportPath)
		assert.Equal(t, archive.StatusSuccess, out.Report.Summary.Status)
		assert.Equal(t, 1, out.Report.ValidationResult.ValidatedCount)
	})
}

func TestErrorType(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unsafe path", fmt.Errorf("%w: escape", pathsafe.ErrUnsafePath), "unsafe_path"},
		{"cancelled", context.Canceled, "cancelled"},
		{"verification", fmt.Errorf("%w: size mismatch", archive.ErrVerification), "verification"},
		{"decompression", fmt.Errorf("%w: bad magic", archive.ErrDecompression), "decompression"},
		{"download", fmt.Errorf("%w after 3 attempts", archive.ErrDownload), "download"},
		{"other", errors.New("surprise"), "other"},
		{"nil", nil, "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorType(tc.err))
		})
	}
}
