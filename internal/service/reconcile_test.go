package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailingest/internal/domain/archive"
)

func makeDescriptors(n int) []archive.Descriptor {
	descriptors := make([]archive.Descriptor, 0, n)
	for i := 0; i < n; i++ {
		descriptors = append(descriptors, archive.Descriptor{
			Key:  fmt.Sprintf("logs/2024/01/15/events_%02d.json.gz", i),
			Size: 100,
		})
	}
	return descriptors
}

func successOutcome(d archive.Descriptor) archive.ObjectOutcome {
	return archive.ObjectOutcome{
		Descriptor:   d,
		Downloaded:   true,
		Verified:     true,
		Decompressed: true,
		Validated:    true,
	}
}

func newReconciler(t *testing.T) *ReconcileService {
	t.Helper()

	logger, metrics := quietObs()
	return NewReconcileService(t.TempDir(), t.TempDir(), ".gz", logger, metrics)
}

func TestReconcileService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("all objects survive every stage", func(t *testing.T) {
		descriptors := makeDescriptors(10)
		outcomes := make([]archive.ObjectOutcome, 0, 10)
		for _, d := range descriptors {
			outcomes = append(outcomes, successOutcome(d))
		}

		result := newReconciler(t).Reconcile(ctx, descriptors, outcomes)

		assert.Equal(t, 10, result.TotalListed)
		assert.Equal(t, 10, result.DownloadedCount)
		assert.Equal(t, 10, result.DecompressedCount)
		assert.Equal(t, 10, result.ValidatedCount)
		assert.Equal(t, 100.0, result.SuccessRate)
		assert.Empty(t, result.FailedDownloads)
		assert.Empty(t, result.FailedDecompressions)
		assert.Empty(t, result.FailedValidations)
		assert.Equal(t, 0, result.IssuesFound())
		assert.NoError(t, result.CheckConsistency())
	})

	t.Run("failed downloads carry their real keys", func(t *testing.T) {
		descriptors := makeDescriptors(10)
		outcomes := make([]archive.ObjectOutcome, 0, 10)
		for i, d := range descriptors {
			if i == 3 || i == 7 {
				outcomes = append(outcomes, archive.ObjectOutcome{
					Descriptor:  d,
					FailedStage: archive.StageDownload,
					Err:         archive.ErrDownload,
				})
				continue
			}
			outcomes = append(outcomes, successOutcome(d))
		}

		result := newReconciler(t).Reconcile(ctx, descriptors, outcomes)

		assert.Equal(t, 10, result.TotalListed)
		assert.Equal(t, 8, result.DownloadedCount)
		assert.Equal(t, 8, result.ValidatedCount)
		assert.Equal(t, 80.0, result.SuccessRate)
		assert.Equal(t, []string{
			"logs/2024/01/15/events_03.json.gz",
			"logs/2024/01/15/events_07.json.gz",
		}, result.FailedDownloads)
		assert.Equal(t, 2, result.IssuesFound())
		assert.NoError(t, result.CheckConsistency())
	})

	t.Run("verification failure counts as a failed download", func(t *testing.T) {
		descriptors := makeDescriptors(2)
		outcomes := []archive.ObjectOutcome{
			successOutcome(descriptors[0]),
			{
				Descriptor:  descriptors[1],
				Downloaded:  true,
				Verified:    false,
				FailedStage: archive.StageVerify,
				Err:         archive.ErrVerification,
			},
		}

		result := newReconciler(t).Reconcile(ctx, descriptors, outcomes)

		assert.Equal(t, 1, result.DownloadedCount)
		assert.Equal(t, []string{descriptors[1].Key}, result.FailedDownloads)
		assert.NoError(t, result.CheckConsistency())
	})

	t.Run("stage failures land in their own sets", func(t *testing.T) {
		descriptors := makeDescriptors(3)
		outcomes := []archive.ObjectOutcome{
			successOutcome(descriptors[0]),
			{
				Descriptor:  descriptors[1],
				Downloaded:  true,
				Verified:    true,
				FailedStage: archive.StageDecompress,
				Err:         archive.ErrDecompression,
			},
			{
				Descriptor:   descriptors[2],
				Downloaded:   true,
				Verified:     true,
				Decompressed: true,
				FailedStage:  archive.StageValidate,
				Err:          archive.ErrMalformedContent,
			},
		}

		result := newReconciler(t).Reconcile(ctx, descriptors, outcomes)

		assert.Equal(t, 3, result.DownloadedCount)
		assert.Equal(t, 2, result.DecompressedCount)
		assert.Equal(t, 1, result.ValidatedCount)
		assert.Equal(t, []string{descriptors[1].Key}, result.FailedDecompressions)
		assert.Equal(t, []string{descriptors[2].Key}, result.FailedValidations)
		assert.InDelta(t, 33.33, result.SuccessRate, 0.01)
		assert.NoError(t, result.CheckConsistency())
	})

	t.Run("empty universe yields zero success rate", func(t *testing.T) {
		result := newReconciler(t).Reconcile(ctx, nil, nil)

		assert.Equal(t, 0, result.TotalListed)
		assert.Equal(t, 0.0, result.SuccessRate)
		assert.Equal(t, archive.StatusFailure, archive.StatusFor(result.SuccessRate))
		require.NotNil(t, result.FailedDownloads)
		assert.Empty(t, result.FailedDownloads)
	})
}
