// Package repository persists run history through the database port.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"trailingest/internal/application/ports"
	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
)

const runsTable = "ingest_runs"

var ErrRunNotFound = errors.New("run not found")

// RunRepository stores one row per finished ingestion run.
type RunRepository struct {
	db      ports.Database
	logger  observability.Logger
	metrics observability.Metrics
	qb      squirrel.StatementBuilderType
}

func NewRunRepository(db ports.Database, logger observability.Logger, metrics observability.Metrics) *RunRepository {
	return &RunRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *RunRepository) Save(ctx context.Context, record *archive.RunRecord) error {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.save", runsTable), nil)

	query := r.qb.Insert(runsTable).
		Columns(
			"run_id", "start_date", "end_date", "status",
			"total_listed", "downloaded", "decompressed", "validated",
			"success_rate", "issues_found", "report_path",
			"started_at", "finished_at", "duration_ms",
		).
		Values(
			record.RunID, record.StartDate, record.EndDate, record.Status,
			record.TotalListed, record.Downloaded, record.Decompressed, record.Validated,
			record.SuccessRate, record.IssuesFound, record.ReportPath,
			record.StartedAt, record.FinishedAt, record.DurationMS,
		)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.Execute(ctx, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to save run record",
			"run_id", record.RunID,
			"error", err)
		r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", runsTable), nil)
		return fmt.Errorf("save run record: %w", err)
	}

	r.logger.Debug("Run record saved",
		"run_id", record.RunID,
		"window", record.Window(),
		"status", string(record.Status))
	return nil
}

func (r *RunRepository) Get(ctx context.Context, runID string) (*archive.RunRecord, error) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.get", runsTable), nil)

	query := r.qb.
		Select("*").
		From(runsTable).
		Where(squirrel.Eq{"run_id": runID})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var record archive.RunRecord
	err = r.db.Get(ctx, &record, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		r.logger.Error("Failed to get run record", "run_id", runID, "error", err)
		r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", runsTable), nil)
		return nil, fmt.Errorf("get run record: %w", err)
	}

	return &record, nil
}

func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*archive.RunRecord, error) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.list", runsTable), nil)

	if limit < 1 {
		limit = 20
	}

	query := r.qb.
		Select("*").
		From(runsTable).
		OrderBy("started_at DESC").
		Limit(uint64(limit))

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []archive.RunRecord
	if err := r.db.Select(ctx, &records, sqlQuery, args...); err != nil {
		r.logger.Error("Failed to list run records", "error", err)
		r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", runsTable), nil)
		return nil, fmt.Errorf("list run records: %w", err)
	}

	result := make([]*archive.RunRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}

	return result, nil
}
