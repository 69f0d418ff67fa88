package handler

import (
	"encoding/json"

	"trailingest/internal/application/ports"
	"trailingest/internal/application/usecase"
)

// runSummary is the payload returned for a completed run.
type runSummary struct {
	RunID       string  `json:"run_id"`
	Status      string  `json:"status"`
	SuccessRate float64 `json:"success_rate"`
	TotalListed int     `json:"total_listed"`
	Validated   int     `json:"validated"`
	IssuesFound int     `json:"issues_found"`
	ReportPath  string  `json:"report_path,omitempty"`
}

func successResponse(data interface{}) (ports.RuntimeResponse, error) {
	marshaled, err := json.Marshal(data)
	if err != nil {
		return ports.RuntimeResponse{}, err
	}

	return ports.RuntimeResponse{
		Success: true,
		Data:    marshaled,
	}, nil
}

func errorResponse(message string) ports.RuntimeResponse {
	return ports.RuntimeResponse{
		Success: false,
		Error:   message,
	}
}

func (h *IngestHandler) handleRunSuccess(out *usecase.RunOutput) (ports.RuntimeResponse, error) {
	summary := runSummary{
		RunID:       out.RunID,
		Status:      string(out.Report.Summary.Status),
		SuccessRate: out.Report.ValidationResult.SuccessRate,
		TotalListed: out.Report.ValidationResult.TotalListed,
		Validated:   out.Report.ValidationResult.ValidatedCount,
		IssuesFound: out.Report.Summary.IssuesFound,
		ReportPath:  out.ReportPath,
	}

	h.logger.Info("Ingestion run completed",
		"run_id", out.RunID,
		"status", summary.Status,
		"success_rate", summary.SuccessRate)

	resp, err := successResponse(summary)
	if err != nil {
		return errorResponse(err.Error()), nil
	}
	return resp, nil
}
