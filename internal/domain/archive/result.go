package archive

import (
	"fmt"
)

// ValidationResult is the aggregate accounting of one run. Counts are
// monotone across stages: an object can only be validated if it was
// decompressed, decompressed only if downloaded, downloaded only if listed.
type ValidationResult struct {
	TotalListed       int `json:"total_listed"`
	DownloadedCount   int `json:"downloaded_count"`
	DecompressedCount int `json:"decompressed_count"`
	ValidatedCount    int `json:"validated_count"`

	FailedDownloads      []string `json:"failed_downloads"`
	FailedDecompressions []string `json:"failed_decompressions"`
	FailedValidations    []string `json:"failed_validations"`

	SuccessRate float64 `json:"success_rate"`
}

// SuccessRateFor computes validated/total as a percentage, 0 for an empty
// universe.
func SuccessRateFor(validated, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(validated) / float64(total) * 100
}

// IssuesFound is the total number of per-object failures across all stages.
func (r ValidationResult) IssuesFound() int {
	return len(r.FailedDownloads) + len(r.FailedDecompressions) + len(r.FailedValidations)
}

// CheckConsistency verifies the cross-stage count invariant. A violation
// indicates an aggregation bug, not a data problem.
func (r ValidationResult) CheckConsistency() error {
	if r.ValidatedCount > r.DecompressedCount {
		return fmt.Errorf("validated count %d exceeds decompressed count %d",
			r.ValidatedCount, r.DecompressedCount)
	}
	if r.DecompressedCount > r.DownloadedCount {
		return fmt.Errorf("decompressed count %d exceeds downloaded count %d",
			r.DecompressedCount, r.DownloadedCount)
	}
	if r.DownloadedCount > r.TotalListed {
		return fmt.Errorf("downloaded count %d exceeds listed count %d",
			r.DownloadedCount, r.TotalListed)
	}
	return nil
}
