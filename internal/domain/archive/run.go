package archive

import (
	"time"
)

// RunRecord is the persisted history row for one ingestion run.
//
// Expected table:
//
//	CREATE TABLE ingest_runs (
//	    run_id        TEXT PRIMARY KEY,
//	    start_date    TEXT NOT NULL,
//	    end_date      TEXT NOT NULL,
//	    status        TEXT NOT NULL,
//	    total_listed  BIGINT NOT NULL,
//	    downloaded    BIGINT NOT NULL,
//	    decompressed  BIGINT NOT NULL,
//	    validated     BIGINT NOT NULL,
//	    success_rate  DOUBLE PRECISION NOT NULL,
//	    issues_found  BIGINT NOT NULL,
//	    report_path   TEXT NOT NULL DEFAULT '',
//	    started_at    TIMESTAMPTZ NOT NULL,
//	    finished_at   TIMESTAMPTZ NOT NULL,
//	    duration_ms   BIGINT NOT NULL
//	);
type RunRecord struct {
	RunID        string    `db:"run_id"`
	StartDate    string    `db:"start_date"`
	EndDate      string    `db:"end_date"`
	Status       Status    `db:"status"`
	TotalListed  int       `db:"total_listed"`
	Downloaded   int       `db:"downloaded"`
	Decompressed int       `db:"decompressed"`
	Validated    int       `db:"validated"`
	SuccessRate  float64   `db:"success_rate"`
	IssuesFound  int       `db:"issues_found"`
	ReportPath   string    `db:"report_path"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	DurationMS   int64     `db:"duration_ms"`
}

// NewRunRecord assembles the history row for a finished run. reportPath may
// be empty when no report was written.
func NewRunRecord(runID string, dr DateRange, result ValidationResult, reportPath string, startedAt, finishedAt time.Time) *RunRecord {
	return &RunRecord{
		RunID:        runID,
		StartDate:    dr.Start().Format("2006-01-02"),
		EndDate:      dr.End().Format("2006-01-02"),
		Status:       StatusFor(result.SuccessRate),
		TotalListed:  result.TotalListed,
		Downloaded:   result.DownloadedCount,
		Decompressed: result.DecompressedCount,
		Validated:    result.ValidatedCount,
		SuccessRate:  result.SuccessRate,
		IssuesFound:  result.IssuesFound(),
		ReportPath:   reportPath,
		StartedAt:    startedAt.UTC(),
		FinishedAt:   finishedAt.UTC(),
		DurationMS:   finishedAt.Sub(startedAt).Milliseconds(),
	}
}

// Window renders the run's date span for logs.
func (r *RunRecord) Window() string {
	return r.StartDate + ".." + r.EndDate
}
