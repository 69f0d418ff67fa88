// Package app assembles the pipeline: configuration in, a started runtime
// out. Every component receives its logger, metrics and collaborators by
// injection here; nothing reaches for globals.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"trailingest/internal/application/handler"
	"trailingest/internal/application/ports"
	"trailingest/internal/application/usecase"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/storage"
	infradatabase "trailingest/internal/infrastructure/database"
	infraobs "trailingest/internal/infrastructure/observability"
	"trailingest/internal/infrastructure/observability/metrics"
	infraqueue "trailingest/internal/infrastructure/queue"
	"trailingest/internal/infrastructure/repository"
	"trailingest/internal/infrastructure/runtime"
	infrastorage "trailingest/internal/infrastructure/storage"
	"trailingest/internal/service"
)

// Application is the fully wired pipeline behind a started runtime.
type Application struct {
	Config       *config.Config
	Obs          observability.Observability
	Runtime      ports.Runtime
	Ingest       *usecase.IngestUseCase
	Availability *usecase.AvailabilityUseCase

	closers []io.Closer
}

// Build wires the whole application from configuration. The caller owns the
// result and must Close it when done.
func Build(ctx context.Context, cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	obs, err := infraobs.CreateObservability(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}

	logger, mx, err := obs.ComponentsScoped("app")
	if err != nil {
		return nil, err
	}

	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"runtime", cfg.Adapters.Runtime)
	mx.IncrementCounter("application.starts", nil)

	app := &Application{Config: cfg, Obs: obs}

	storeLogger, storeMetrics, err := obs.ComponentsScoped("storage")
	if err != nil {
		return nil, err
	}
	store, err := infrastorage.NewFactory(storeLogger, storeMetrics).Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	deps, err := app.buildIngestDeps(cfg, store, obs)
	if err != nil {
		app.Close()
		return nil, err
	}

	ingest, err := usecase.NewIngestUseCase(deps, obs)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create ingest use case: %w", err)
	}
	app.Ingest = ingest

	availability, err := usecase.NewAvailabilityUseCase(
		filepath.Join(cfg.Ingest.DataRoot, "raw"),
		filepath.Join(cfg.Ingest.DataRoot, "processed"),
		cfg.Ingest.Prefix,
		obs,
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create availability use case: %w", err)
	}
	app.Availability = availability

	h := handler.WithDefaults(
		handler.NewIngestHandler(ingest, obs),
		logger,
		mx,
		handlerTimeout(cfg),
	)

	rt, err := runtime.Create(cfg, h, obs)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}
	app.Runtime = rt

	return app, nil
}

// buildIngestDeps constructs the stage services and the optional history and
// notification collaborators.
func (a *Application) buildIngestDeps(cfg *config.Config, store storage.ObjectStore, obs observability.Observability) (usecase.IngestDeps, error) {
	rawRoot := filepath.Join(cfg.Ingest.DataRoot, "raw")
	processedRoot := filepath.Join(cfg.Ingest.DataRoot, "processed")

	scoped := func(component string) (observability.Logger, observability.Metrics, error) {
		return obs.ComponentsScoped(component)
	}

	deps := usecase.IngestDeps{
		Workers:  cfg.Ingest.Workers,
		Pipeline: metrics.New(metricName(cfg.ServiceName)),
	}

	logger, mx, err := scoped("service.list")
	if err != nil {
		return deps, err
	}
	deps.List = service.NewListService(store, cfg.Ingest.Bucket, cfg.Ingest.Prefix, cfg.Ingest.ArchiveSuffix, logger, mx)

	logger, mx, err = scoped("service.download")
	if err != nil {
		return deps, err
	}
	deps.Download = service.NewDownloadService(store, cfg.Ingest.Bucket, rawRoot, cfg.Retry, logger, mx)

	logger, mx, err = scoped("service.verify")
	if err != nil {
		return deps, err
	}
	deps.Verify = service.NewVerifyService(logger, mx)

	logger, mx, err = scoped("service.decompress")
	if err != nil {
		return deps, err
	}
	deps.Decompress = service.NewDecompressService(processedRoot, cfg.Ingest.ArchiveSuffix, logger, mx)

	logger, mx, err = scoped("service.validate")
	if err != nil {
		return deps, err
	}
	deps.Validators = []service.Validator{service.NewStructuralValidator(logger, mx)}
	if cfg.Ingest.SampleCheck {
		deps.Validators = append(deps.Validators, service.NewSampleRecordValidator(logger, mx))
	}

	logger, mx, err = scoped("service.reconcile")
	if err != nil {
		return deps, err
	}
	deps.Reconcile = service.NewReconcileService(rawRoot, processedRoot, cfg.Ingest.ArchiveSuffix, logger, mx)

	logger, mx, err = scoped("service.report")
	if err != nil {
		return deps, err
	}
	deps.Report = service.NewReportService(cfg.Ingest.ReportsRoot, cfg.Ingest.ReportsRoot, logger, mx)

	if cfg.Adapters.Database != "" {
		logger, mx, err = scoped("database")
		if err != nil {
			return deps, err
		}
		db, err := infradatabase.NewFactory(logger, mx).Create(cfg)
		if err != nil {
			return deps, fmt.Errorf("failed to create database: %w", err)
		}
		a.closers = append(a.closers, closerFunc(db.Close))
		deps.Runs = repository.NewRunRepository(db, logger, mx)
	}

	if cfg.Adapters.Queue != "" {
		logger, mx, err = scoped("queue")
		if err != nil {
			return deps, err
		}
		queue, err := infraqueue.NewFactory(logger, mx).Create(cfg)
		if err != nil {
			return deps, fmt.Errorf("failed to create queue: %w", err)
		}
		if c, ok := queue.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		deps.Queue = queue
		deps.QueueTarget = cfg.Queue.Target
	}

	return deps, nil
}

// handlerTimeout bounds a single handled request. Lambda invocations carry
// the configured function timeout; the cli and http runtimes leave long
// ingestion runs unbounded.
func handlerTimeout(cfg *config.Config) time.Duration {
	if cfg.Adapters.Runtime == "lambda" {
		return cfg.Lambda.Timeout
	}
	return 0
}

// metricName makes a service name usable as a Prometheus metric prefix.
func metricName(serviceName string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(serviceName)
}

// Start runs the runtime until it finishes serving.
func (a *Application) Start() error {
	return a.Runtime.Start()
}

// Close releases held connections in reverse construction order.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
