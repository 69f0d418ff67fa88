package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trailingest/internal/application/dto"
	"trailingest/internal/application/ports"
	"trailingest/internal/application/usecase"
	"trailingest/internal/domain/archive"
	obmocks "trailingest/internal/domain/observability/mocks"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req *dto.RunRequest) (*usecase.RunOutput, error) {
	args := m.Called(ctx, req)
	if out := args.Get(0); out != nil {
		return out.(*usecase.RunOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func ingestRequest(payload string) ports.RuntimeRequest {
	return ports.RuntimeRequest{
		ID:        "req-1",
		Source:    "test",
		Type:      "ingest.run",
		Payload:   json.RawMessage(payload),
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func completedRun() *usecase.RunOutput {
	result := archive.ValidationResult{
		TotalListed:          10,
		DownloadedCount:      10,
		DecompressedCount:    10,
		ValidatedCount:       10,
		SuccessRate:          100.0,
		FailedDownloads:      []string{},
		FailedDecompressions: []string{},
		FailedValidations:    []string{},
	}
	return &usecase.RunOutput{
		RunID:      "3d6a1f0e-run",
		Report:     archive.NewIntegrityReport(result, time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)),
		ReportPath: "/data/reports/integrity_report_20240115_110000.json",
	}
}

func TestIngestHandler_Handle(t *testing.T) {
	obs := obmocks.NewQuietObservability()

	t.Run("completed run returns the summary payload", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, mock.MatchedBy(func(req *dto.RunRequest) bool {
			return req.StartDate == "2024-01-15" && req.EndDate == "2024-01-16"
		})).Return(completedRun(), nil).Once()

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{"start_date":"2024-01-15","end_date":"2024-01-16"}`))

		require.NoError(t, err)
		require.True(t, resp.Success)

		var summary map[string]interface{}
		require.NoError(t, json.Unmarshal(resp.Data, &summary))
		assert.Equal(t, "3d6a1f0e-run", summary["run_id"])
		assert.Equal(t, "SUCCESS", summary["status"])
		assert.Equal(t, 100.0, summary["success_rate"])
		assert.Equal(t, 10.0, summary["total_listed"])
		assert.Equal(t, "/data/reports/integrity_report_20240115_110000.json", summary["report_path"])

		runner.AssertExpectations(t)
	})

	t.Run("malformed payload is rejected without reaching the runner", func(t *testing.T) {
		runner := &mockRunner{}

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{not json`))

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("missing start date fails validation", func(t *testing.T) {
		runner := &mockRunner{}

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{"end_date":"2024-01-16"}`))

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "start date is required")
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})

	t.Run("invalid date range is a caller error, not a handler error", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: end before start", archive.ErrInvalidDateRange)).Once()

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{"start_date":"2024-01-20","end_date":"2024-01-10"}`))

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "invalid date range")
	})

	t.Run("abandoned run surfaces the error for redelivery", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("run abc abandoned: %w", context.Canceled)).Once()

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{"start_date":"2024-01-15"}`))

		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, resp.Success)
	})

	t.Run("unexpected run errors stay in the response", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).
			Return(nil, errors.New("listing exploded")).Once()

		h := NewIngestHandler(runner, obs)
		resp, err := h.Handle(context.Background(), ingestRequest(`{"start_date":"2024-01-15"}`))

		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "listing exploded", resp.Error)
	})
}
