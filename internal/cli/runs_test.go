package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	ptmocks "trailingest/internal/application/ports/mocks"
	"trailingest/internal/domain/archive"
)

func sampleRunRecord(id string) *archive.RunRecord {
	return &archive.RunRecord{
		RunID:        id,
		StartDate:    "2024-01-15",
		EndDate:      "2024-01-16",
		Status:       archive.StatusPartialSuccess,
		TotalListed:  10,
		Downloaded:   9,
		Decompressed: 9,
		Validated:    8,
		SuccessRate:  80,
		IssuesFound:  2,
		ReportPath:   "/data/reports/integrity_report_20240116_010000.json",
		StartedAt:    time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2024, 1, 16, 1, 2, 0, 0, time.UTC),
		DurationMS:   120000,
	}
}

func TestShowRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("lists recent runs newest first", func(t *testing.T) {
		repo := &ptmocks.MockRunRepository{}
		repo.On("ListRecent", mock.Anything, 5).
			Return([]*archive.RunRecord{sampleRunRecord("run-b"), sampleRunRecord("run-a")}, nil).Once()

		var out bytes.Buffer
		err := showRuns(ctx, repo, &out, "", 5)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "RUN ID")
		assert.Contains(t, out.String(), "run-b")
		assert.Contains(t, out.String(), "run-a")
		assert.Contains(t, out.String(), "2024-01-15..2024-01-16")
		assert.Less(t,
			bytes.Index(out.Bytes(), []byte("run-b")),
			bytes.Index(out.Bytes(), []byte("run-a")))
		repo.AssertExpectations(t)
	})

	t.Run("empty history prints a notice", func(t *testing.T) {
		repo := &ptmocks.MockRunRepository{}
		repo.On("ListRecent", mock.Anything, 20).
			Return([]*archive.RunRecord{}, nil).Once()

		var out bytes.Buffer
		err := showRuns(ctx, repo, &out, "", 20)

		require.NoError(t, err)
		assert.Equal(t, "no runs recorded\n", out.String())
	})

	t.Run("single run shows the full record", func(t *testing.T) {
		repo := &ptmocks.MockRunRepository{}
		repo.On("Get", mock.Anything, "run-a").
			Return(sampleRunRecord("run-a"), nil).Once()

		var out bytes.Buffer
		err := showRuns(ctx, repo, &out, "run-a", 20)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "run_id:       run-a")
		assert.Contains(t, out.String(), "status:       PARTIAL_SUCCESS")
		assert.Contains(t, out.String(), "success_rate: 80.0%")
		assert.Contains(t, out.String(), "report:       /data/reports/integrity_report_20240116_010000.json")
		repo.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything)
	})

	t.Run("lookup errors propagate", func(t *testing.T) {
		repo := &ptmocks.MockRunRepository{}
		wantErr := errors.New("run not found: nope")
		repo.On("Get", mock.Anything, "nope").Return(nil, wantErr).Once()

		var out bytes.Buffer
		err := showRuns(ctx, repo, &out, "nope", 20)

		assert.ErrorIs(t, err, wantErr)
		assert.Empty(t, out.String())
	})
}
