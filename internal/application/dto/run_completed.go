package dto

import (
	"time"
)

// RunCompletedEvent is published to the configured queue after a run
// finishes, whether or not every archive survived.
type RunCompletedEvent struct {
	// EventID is unique per publication (for consumer idempotency)
	EventID string `json:"event_id"`

	// EventType is always "ingest.run.completed"
	EventType string `json:"event_type"`

	RunID       string  `json:"run_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Status      string  `json:"status"`
	SuccessRate float64 `json:"success_rate"`
	IssuesFound int     `json:"issues_found"`

	// ReportPath is empty when the report could not be written
	ReportPath string `json:"report_path,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
