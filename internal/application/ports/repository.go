package ports

import (
	"context"

	"trailingest/internal/domain/archive"
)

// RunRepository persists the history of ingestion runs.
type RunRepository interface {
	// Save inserts a completed run
	Save(ctx context.Context, run *archive.RunRecord) error

	// Get returns a run by its ID
	Get(ctx context.Context, runID string) (*archive.RunRecord, error)

	// ListRecent returns the most recent runs, newest first
	ListRecent(ctx context.Context, limit int) ([]*archive.RunRecord, error)
}
