// Package usecase orchestrates the stage services into complete ingestion
// runs. The pipeline fans per-object work out to a bounded worker pool and
// folds every result back through a single aggregation loop, so run-level
// counters and failure sets are never touched concurrently.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"trailingest/internal/application/dto"
	"trailingest/internal/application/ports"
	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
	"trailingest/internal/infrastructure/observability/metrics"
	"trailingest/internal/service"
)

const stageList = "list"

// IngestDeps carries the collaborators a run needs. Queue and Runs are
// optional; leaving them nil disables completion events and run history.
type IngestDeps struct {
	List       *service.ListService
	Download   *service.DownloadService
	Verify     *service.VerifyService
	Decompress *service.DecompressService
	Validators []service.Validator
	Reconcile  *service.ReconcileService
	Report     *service.ReportService

	Queue       ports.Queue
	QueueTarget string
	Runs        ports.RunRepository
	Pipeline    *metrics.PipelineMetrics

	Workers int
}

// RunOutput is what a finished run hands back to the caller. ReportPath is
// empty when the report could not be written.
type RunOutput struct {
	RunID      string
	Report     archive.IntegrityReport
	ReportPath string
}

// IngestUseCase drives one date window through list, download, verify,
// decompress, validate, reconcile and report.
type IngestUseCase struct {
	list       *service.ListService
	download   *service.DownloadService
	verify     *service.VerifyService
	decompress *service.DecompressService
	validators []service.Validator
	reconcile  *service.ReconcileService
	report     *service.ReportService

	queue       ports.Queue
	queueTarget string
	runs        ports.RunRepository
	pipeline    *metrics.PipelineMetrics

	workers int

	logger  observability.Logger
	metrics observability.Metrics
}

func NewIngestUseCase(deps IngestDeps, obs observability.Observability) (*IngestUseCase, error) {
	logger, mx, err := obs.ComponentsScoped("usecase.ingest")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if deps.List == nil || deps.Download == nil || deps.Verify == nil ||
		deps.Decompress == nil || deps.Reconcile == nil || deps.Report == nil {
		return nil, errors.New("all stage services are required")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("pipeline metrics are required")
	}

	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}

	return &IngestUseCase{
		list:        deps.List,
		download:    deps.Download,
		verify:      deps.Verify,
		decompress:  deps.Decompress,
		validators:  deps.Validators,
		reconcile:   deps.Reconcile,
		report:      deps.Report,
		queue:       deps.Queue,
		queueTarget: deps.QueueTarget,
		runs:        deps.Runs,
		pipeline:    deps.Pipeline,
		workers:     workers,
		logger:      logger,
		metrics:     mx,
	}, nil
}

// Run executes one ingestion run over the requested date window. A
// cancelled run is abandoned before the report phase and writes nothing.
func (u *IngestUseCase) Run(ctx context.Context, req *dto.RunRequest) (*RunOutput, error) {
	dr, err := archive.NewDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	logger := u.logger.WithFields(map[string]interface{}{"run_id": runID})

	logger.Info("Starting ingestion run",
		"window", dr.String(),
		"days", dr.Days(),
		"workers", u.workers)
	u.metrics.IncrementCounter("ingest.runs.started", nil)

	listStart := time.Now()
	u.pipeline.StageStarted(stageList)
	listed := u.list.ListRange(ctx, dr)
	u.pipeline.StageEnded(stageList)
	u.pipeline.ObserveStageDuration(stageList, time.Since(listStart).Seconds())

	if err := ctx.Err(); err != nil {
		logger.Warn("Run abandoned during listing", "error", err)
		u.metrics.IncrementCounter("ingest.runs.abandoned", nil)
		return nil, fmt.Errorf("run %s abandoned: %w", runID, err)
	}

	logger.Info("Listing complete", "total_listed", len(listed))

	outcomes := u.processAll(ctx, listed)

	if err := ctx.Err(); err != nil {
		// An abandoned run writes no report and records no history.
		logger.Warn("Run abandoned",
			"error", err,
			"processed", len(outcomes),
			"total_listed", len(listed))
		u.metrics.IncrementCounter("ingest.runs.abandoned", nil)
		return nil, fmt.Errorf("run %s abandoned: %w", runID, err)
	}

	result := u.reconcile.Reconcile(ctx, listed, outcomes)

	finishedAt := time.Now().UTC()
	report, reportPath, err := u.report.Generate(ctx, result, finishedAt)
	if err != nil {
		// The run result stands even when the report cannot be written.
		logger.Error("Report not written", "error", err)
		u.metrics.IncrementCounter("ingest.report.rejected", nil)
		reportPath = ""
	}

	u.recordHistory(ctx, runID, dr, result, reportPath, startedAt, finishedAt, logger)
	u.notifyCompletion(ctx, runID, dr, report, reportPath, logger)

	logger.Info("Ingestion run finished",
		"status", string(report.Summary.Status),
		"success_rate", result.SuccessRate,
		"validated", result.ValidatedCount,
		"total_listed", result.TotalListed,
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds())
	u.metrics.IncrementCounter("ingest.runs.completed",
		map[string]string{"status": string(report.Summary.Status)})

	return &RunOutput{
		RunID:      runID,
		Report:     report,
		ReportPath: reportPath,
	}, nil
}

// processAll fans the listed objects out to the worker pool and collects
// every outcome on this goroutine. On cancellation the feeder stops and the
// already-started objects drain; the caller decides what to do with the
// partial outcome set.
func (u *IngestUseCase) processAll(ctx context.Context, listed []archive.Descriptor) []archive.ObjectOutcome {
	if len(listed) == 0 {
		return nil
	}

	jobs := make(chan archive.Descriptor)
	results := make(chan archive.ObjectOutcome)

	var wg sync.WaitGroup
	for i := 0; i < u.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				results <- u.processObject(ctx, d)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, d := range listed {
			select {
			case jobs <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]archive.ObjectOutcome, 0, len(listed))
	for out := range results {
		outcomes = append(outcomes, out)
	}

	return outcomes
}

// processObject walks one archive through download, verify, decompress and
// validation. Failures land in the outcome; nothing escapes as an error.
func (u *IngestUseCase) processObject(ctx context.Context, d archive.Descriptor) archive.ObjectOutcome {
	out := archive.ObjectOutcome{Descriptor: d}

	var dl archive.DownloadOutcome
	err := u.timed(archive.StageDownload, func() error {
		dl = u.download.Download(ctx, d)
		if !dl.Succeeded {
			return dl.LastErr
		}
		return nil
	})
	out.RawPath = dl.LocalPath
	out.Attempts = dl.Attempts
	out.SHA256 = dl.SHA256
	if err != nil {
		return u.lost(out, archive.StageDownload, err)
	}
	out.Downloaded = true
	u.pipeline.ObserveArchiveSize("compressed", d.Size)

	err = u.timed(archive.StageVerify, func() error {
		return u.verify.Verify(ctx, dl)
	})
	if err != nil {
		return u.lost(out, archive.StageVerify, err)
	}
	out.Verified = true

	var processedPath string
	err = u.timed(archive.StageDecompress, func() error {
		var derr error
		processedPath, derr = u.decompress.Decompress(ctx, dl.LocalPath, d.Key)
		return derr
	})
	if err != nil {
		return u.lost(out, archive.StageDecompress, err)
	}
	out.ProcessedPath = processedPath
	out.Decompressed = true
	if fi, statErr := os.Stat(processedPath); statErr == nil {
		u.pipeline.ObserveArchiveSize("decompressed", fi.Size())
	}

	err = u.timed(archive.StageValidate, func() error {
		return u.runValidators(ctx, processedPath)
	})
	if err != nil {
		return u.lost(out, archive.StageValidate, err)
	}
	out.Validated = true

	return out
}

func (u *IngestUseCase) runValidators(ctx context.Context, path string) error {
	for _, v := range u.validators {
		if err := v.Validate(ctx, path); err != nil {
			return fmt.Errorf("%s: %w", v.Name(), err)
		}
	}
	return nil
}

// timed brackets one archive's pass through a stage with the in-flight
// gauge and the duration histogram, and counts the pass on success.
func (u *IngestUseCase) timed(stage archive.Stage, fn func() error) error {
	start := time.Now()
	u.pipeline.StageStarted(string(stage))

	err := fn()

	u.pipeline.StageEnded(string(stage))
	u.pipeline.ObserveStageDuration(string(stage), time.Since(start).Seconds())

	if err != nil {
		return err
	}
	u.pipeline.RecordProcessed(string(stage))
	return nil
}

func (u *IngestUseCase) lost(out archive.ObjectOutcome, stage archive.Stage, err error) archive.ObjectOutcome {
	out.FailedStage = stage
	out.Err = err
	u.pipeline.RecordFailure(string(stage), errorType(err))
	return out
}

func (u *IngestUseCase) recordHistory(ctx context.Context, runID string, dr archive.DateRange, result archive.ValidationResult, reportPath string, startedAt, finishedAt time.Time, logger observability.Logger) {
	if u.runs == nil {
		return
	}

	record := archive.NewRunRecord(runID, dr, result, reportPath, startedAt, finishedAt)
	if err := u.runs.Save(ctx, record); err != nil {
		// History is best-effort; the report already persisted the result.
		logger.Warn("Run history not recorded", "error", err)
		u.metrics.IncrementCounter("ingest.history.errors", nil)
		return
	}

	logger.Debug("Run history recorded")
}

func (u *IngestUseCase) notifyCompletion(ctx context.Context, runID string, dr archive.DateRange, report archive.IntegrityReport, reportPath string, logger observability.Logger) {
	if u.queue == nil || u.queueTarget == "" {
		return
	}

	event := &dto.RunCompletedEvent{
		EventID:     fmt.Sprintf("run-completed-%s", runID),
		EventType:   "ingest.run.completed",
		RunID:       runID,
		StartDate:   dr.Start().Format("2006-01-02"),
		EndDate:     dr.End().Format("2006-01-02"),
		Status:      string(report.Summary.Status),
		SuccessRate: report.ValidationResult.SuccessRate,
		IssuesFound: report.Summary.IssuesFound,
		ReportPath:  reportPath,
		Timestamp:   time.Now().UTC(),
	}

	message := &ports.QueueMessage{
		Target: u.queueTarget,
		Body:   event,
	}
	if err := u.queue.Publish(ctx, message); err != nil {
		logger.Warn("Completion event not published",
			"error", err,
			"target", u.queueTarget)
		u.metrics.IncrementCounter("ingest.notify.errors", nil)
		return
	}

	logger.Debug("Completion event published", "target", u.queueTarget)
}

// errorType maps a stage error to a stable metric label. Specific causes
// are matched before the broad stage sentinels they may be wrapped in.
func errorType(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, pathsafe.ErrUnsafePath):
		return "unsafe_path"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, archive.ErrVerification):
		return "verification"
	case errors.Is(err, archive.ErrDecompression):
		return "decompression"
	case errors.Is(err, archive.ErrMissingRecordsField):
		return "missing_records"
	case errors.Is(err, archive.ErrRecordsNotSequence):
		return "records_not_sequence"
	case errors.Is(err, archive.ErrUnexpectedShape):
		return "unexpected_shape"
	case errors.Is(err, archive.ErrMalformedContent):
		return "malformed_content"
	case errors.Is(err, archive.ErrDownload):
		return "download"
	default:
		return "other"
	}
}
