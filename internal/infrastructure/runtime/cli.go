package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

// cliRuntime executes exactly one ingestion run from the configured date
// window and exits. SIGINT and SIGTERM cancel the run's context, which
// abandons it before the report phase.
type cliRuntime struct {
	handler ports.Handler
	logger  observability.Logger
	metrics observability.Metrics
	config  *config.IngestConfig
}

func NewCLIRuntime(cfg *config.IngestConfig, handler ports.Handler, obs observability.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.cli")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if handler == nil {
		return nil, errors.New("handler is required")
	}

	return &cliRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *cliRuntime) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("Starting CLI runtime",
		"start_date", rt.config.StartDate,
		"end_date", rt.config.EndDate)
	rt.metrics.IncrementCounter("cli.starts", nil)

	request, err := rt.buildRequest()
	if err != nil {
		return err
	}

	resp, err := rt.handler.Handle(ctx, request)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("run failed: %s", resp.Error)
	}

	rt.logger.Info("Run complete", "result", string(resp.Data))
	return nil
}

func (rt *cliRuntime) buildRequest() (ports.RuntimeRequest, error) {
	window := map[string]string{"start_date": rt.config.StartDate}
	if rt.config.EndDate != "" {
		window["end_date"] = rt.config.EndDate
	}

	payload, err := json.Marshal(window)
	if err != nil {
		return ports.RuntimeRequest{}, fmt.Errorf("failed to build request payload: %w", err)
	}

	return ports.RuntimeRequest{
		ID:        uuid.New().String(),
		Source:    "cli",
		Type:      defaultRequestType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, nil
}
