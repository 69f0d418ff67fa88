package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
)

// ReconcileService folds per-object outcomes into the run's accounting. The
// failure sets carry the real keys that were lost at each stage, taken from
// the tracked outcomes, never synthesized from count arithmetic.
type ReconcileService struct {
	rawRoot       string
	processedRoot string
	suffix        string
	logger        observability.Logger
	metrics       observability.Metrics
}

func NewReconcileService(rawRoot, processedRoot, suffix string, logger observability.Logger, metrics observability.Metrics) *ReconcileService {
	return &ReconcileService{
		rawRoot:       rawRoot,
		processedRoot: processedRoot,
		suffix:        suffix,
		logger:        logger,
		metrics:       metrics,
	}
}

// Reconcile computes the ValidationResult for one run. A verification
// failure counts as a failed download: the local copy was discarded, so the
// object was never trustworthily downloaded.
func (s *ReconcileService) Reconcile(ctx context.Context, listed []archive.Descriptor, outcomes []archive.ObjectOutcome) archive.ValidationResult {
	result := archive.ValidationResult{
		TotalListed:          len(listed),
		FailedDownloads:      []string{},
		FailedDecompressions: []string{},
		FailedValidations:    []string{},
	}

	for _, out := range outcomes {
		key := out.Descriptor.Key

		switch {
		case out.Validated:
			result.DownloadedCount++
			result.DecompressedCount++
			result.ValidatedCount++
		case out.Decompressed:
			result.DownloadedCount++
			result.DecompressedCount++
			result.FailedValidations = append(result.FailedValidations, key)
		case out.Verified:
			result.DownloadedCount++
			result.FailedDecompressions = append(result.FailedDecompressions, key)
		default:
			result.FailedDownloads = append(result.FailedDownloads, key)
		}
	}

	sort.Strings(result.FailedDownloads)
	sort.Strings(result.FailedDecompressions)
	sort.Strings(result.FailedValidations)

	result.SuccessRate = archive.SuccessRateFor(result.ValidatedCount, result.TotalListed)

	if err := result.CheckConsistency(); err != nil {
		// Aggregation bug, not a data problem. Report it loudly but still
		// return the result; the report must exist even when suspect.
		s.logger.Error("Count invariant violated", "error", err)
		s.metrics.IncrementCounter("reconcile.invariant_violated", nil)
	}

	s.census(listed, result)

	s.logger.Info("Reconciliation complete",
		"total_listed", result.TotalListed,
		"downloaded", result.DownloadedCount,
		"decompressed", result.DecompressedCount,
		"validated", result.ValidatedCount,
		"success_rate", result.SuccessRate)

	return result
}

// census counts the listed objects actually present on disk and compares
// with the tracked counts. Local trees can hold stale files from earlier
// runs, so the census only cross-checks; it never replaces tracked counts.
func (s *ReconcileService) census(listed []archive.Descriptor, result archive.ValidationResult) {
	rawPresent := 0
	processedPresent := 0

	for _, d := range listed {
		rawPath := filepath.Join(s.rawRoot, filepath.FromSlash(d.Key))
		if _, err := os.Stat(rawPath); err == nil {
			rawPresent++
		}

		processedName := strings.TrimSuffix(d.Key, s.suffix)
		processedPath := filepath.Join(s.processedRoot, filepath.FromSlash(processedName))
		if _, err := os.Stat(processedPath); err == nil {
			processedPresent++
		}
	}

	if rawPresent != result.DownloadedCount {
		s.logger.Warn("Raw tree census disagrees with tracked downloads",
			"census", rawPresent,
			"tracked", result.DownloadedCount)
		s.metrics.IncrementCounter("reconcile.census_mismatch", map[string]string{"tree": "raw"})
	}
	if processedPresent != result.DecompressedCount {
		s.logger.Warn("Processed tree census disagrees with tracked decompressions",
			"census", processedPresent,
			"tracked", result.DecompressedCount)
		s.metrics.IncrementCounter("reconcile.census_mismatch", map[string]string{"tree": "processed"})
	}
}
