package archive

import (
	"time"
)

// Status classifies a run by its success rate.
type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusFailure        Status = "FAILURE"
)

// StatusFor maps a success rate to its classification. A rate of exactly
// 100 is SUCCESS, exactly 0 is FAILURE, everything between is partial.
func StatusFor(successRate float64) Status {
	switch {
	case successRate == 100:
		return StatusSuccess
	case successRate > 0:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}

// ReportSummary is the headline block of a persisted report.
type ReportSummary struct {
	Status              Status `json:"status"`
	TotalFilesProcessed int    `json:"total_files_processed"`
	IssuesFound         int    `json:"issues_found"`
}

// IntegrityReport is the persisted artifact of one run. Written once,
// never mutated.
type IntegrityReport struct {
	Timestamp        string           `json:"timestamp"`
	ValidationResult ValidationResult `json:"validation_result"`
	Summary          ReportSummary    `json:"summary"`
}

// NewIntegrityReport assembles the report for a finished run.
func NewIntegrityReport(result ValidationResult, now time.Time) IntegrityReport {
	return IntegrityReport{
		Timestamp:        now.UTC().Format(time.RFC3339),
		ValidationResult: result,
		Summary: ReportSummary{
			Status:              StatusFor(result.SuccessRate),
			TotalFilesProcessed: result.ValidatedCount,
			IssuesFound:         result.IssuesFound(),
		},
	}
}
