package dto

import (
	"errors"
	"strings"
)

// RunRequest is the payload that triggers an ingestion run. The bucket and
// key prefix are deployment configuration, not request fields; a request
// only picks the date window.
type RunRequest struct {
	// StartDate is the first day of the window (YYYY-MM-DD and a few
	// lenient forms are accepted)
	StartDate string `json:"start_date"`

	// EndDate is the last day, inclusive; empty means the single start day
	EndDate string `json:"end_date,omitempty"`
}

func (r *RunRequest) Validate() error {
	if strings.TrimSpace(r.StartDate) == "" {
		return errors.New("start date is required")
	}
	return nil
}
