package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
)

// ReportService serializes the integrity report of a completed run. The
// report path must resolve inside the approved root; a configured reports
// directory that escapes it is rejected without writing anything, and the
// caller still receives the in-memory report.
type ReportService struct {
	approvedRoot string
	reportsRoot  string
	logger       observability.Logger
	metrics      observability.Metrics
}

func NewReportService(approvedRoot, reportsRoot string, logger observability.Logger, metrics observability.Metrics) *ReportService {
	return &ReportService{
		approvedRoot: approvedRoot,
		reportsRoot:  reportsRoot,
		logger:       logger,
		metrics:      metrics,
	}
}

// Generate builds the report for a result and writes it as indented JSON.
// It returns the report, the written path, and a write error if any; the
// report value is valid even when writing failed.
func (s *ReportService) Generate(ctx context.Context, result archive.ValidationResult, now time.Time) (archive.IntegrityReport, string, error) {
	report := archive.NewIntegrityReport(result, now)

	filename := fmt.Sprintf("integrity_report_%s.json", now.UTC().Format("20060102_150405"))

	target, err := filepath.Abs(filepath.Join(s.reportsRoot, filename))
	if err != nil {
		return report, "", fmt.Errorf("%w: %w", archive.ErrReportWrite, err)
	}

	path, err := pathsafe.ResolveWithin(s.approvedRoot, target)
	if err != nil {
		s.logger.Error("Report path escapes approved root",
			"reports_root", pathsafe.SanitizeForLog(s.reportsRoot),
			"error", err)
		s.metrics.IncrementCounter("report.unsafe_path", nil)
		return report, "", fmt.Errorf("%w: %w", archive.ErrReportWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.metrics.IncrementCounter("report.write_failed", nil)
		return report, "", fmt.Errorf("%w: creating reports directory: %w", archive.ErrReportWrite, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return report, "", fmt.Errorf("%w: %w", archive.ErrReportWrite, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.metrics.IncrementCounter("report.write_failed", nil)
		return report, "", fmt.Errorf("%w: %w", archive.ErrReportWrite, err)
	}

	s.logger.Info("Integrity report written",
		"path", path,
		"status", report.Summary.Status,
		"success_rate", result.SuccessRate)
	s.metrics.IncrementCounter("report.written", nil)

	return report, path, nil
}
