package handler

import (
	"context"
	"errors"

	"trailingest/internal/application/dto"
	"trailingest/internal/application/ports"
	"trailingest/internal/application/usecase"
	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
)

// IngestRunner executes one ingestion run. Satisfied by
// usecase.IngestUseCase.
type IngestRunner interface {
	Run(ctx context.Context, req *dto.RunRequest) (*usecase.RunOutput, error)
}

// IngestHandler turns runtime requests into ingestion runs.
type IngestHandler struct {
	runner IngestRunner
	logger observability.Logger
}

func NewIngestHandler(runner IngestRunner, obs observability.Observability) *IngestHandler {
	logger, _ := obs.LoggerScoped("handler.ingest")
	return &IngestHandler{
		runner: runner,
		logger: logger,
	}
}

func (h *IngestHandler) Handle(ctx context.Context, request ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	runReq, err := h.parseRequest(request)
	if err != nil {
		return h.handleError(err)
	}

	if err := runReq.Validate(); err != nil {
		return h.handleError(ErrHandlerInvalidPayload(err))
	}

	out, err := h.runner.Run(ctx, runReq)
	if err != nil {
		return h.handleRunError(runReq, err)
	}

	return h.handleRunSuccess(out)
}

func (h *IngestHandler) parseRequest(request ports.RuntimeRequest) (*dto.RunRequest, error) {
	var runReq dto.RunRequest
	if err := request.Unmarshal(&runReq); err != nil {
		return nil, ErrHandlerUnmarshal(err)
	}
	return &runReq, nil
}

func (h *IngestHandler) handleRunError(req *dto.RunRequest, err error) (ports.RuntimeResponse, error) {
	switch {
	case errors.Is(err, archive.ErrInvalidDateRange):
		h.logger.Warn("Rejected run request",
			"start_date", req.StartDate,
			"end_date", req.EndDate,
			"error", err)
		return errorResponse(err.Error()), nil

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// An abandoned run wrote no report; surface the error so queue
		// runtimes redeliver the request.
		h.logger.Error("Run abandoned", "error", err)
		return errorResponse(err.Error()), err

	default:
		h.logger.Error("Run failed", "error", err)
		return errorResponse(err.Error()), nil
	}
}

func (h *IngestHandler) handleError(err error) (ports.RuntimeResponse, error) {
	h.logger.Error("Rejected request", "error", err)
	return errorResponse(err.Error()), nil
}
