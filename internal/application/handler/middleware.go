package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"trailingest/internal/application/ports"
	"trailingest/internal/domain/observability"
)

func RecoveryMiddleware(logger observability.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (resp ports.RuntimeResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						"request_id", req.ID,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()))

					err = fmt.Errorf("panic recovered: %v", r)
					resp = errorResponse("an internal error occurred")
				}
			}()

			return next(ctx, req)
		}
	}
}

func LoggingMiddleware(logger observability.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()

			logger.Info("Processing request",
				"request_id", req.ID,
				"type", req.Type,
				"source", req.Source,
				"payload_size", len(req.Payload))

			resp, err := next(ctx, req)

			duration := time.Since(start)

			switch {
			case err != nil:
				logger.Error("Request failed",
					"request_id", req.ID,
					"duration_ms", duration.Milliseconds(),
					"error", err)
			case !resp.Success:
				logger.Warn("Request completed with failure",
					"request_id", req.ID,
					"duration_ms", duration.Milliseconds(),
					"error", resp.Error)
			default:
				logger.Info("Request completed successfully",
					"request_id", req.ID,
					"duration_ms", duration.Milliseconds())
			}

			return resp, err
		}
	}
}

func MetricsMiddleware(metrics observability.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			start := time.Now()

			tags := map[string]string{
				"type":   req.Type,
				"source": req.Source,
			}
			metrics.IncrementCounter("handler.requests", tags)

			resp, err := next(ctx, req)

			metrics.RecordHistogram("handler.duration", time.Since(start).Seconds(), tags)

			if err != nil || !resp.Success {
				metrics.IncrementCounter("handler.errors", tags)
			} else {
				metrics.IncrementCounter("handler.success", tags)
			}

			return resp, err
		}
	}
}

func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp ports.RuntimeResponse
				err  error
			}
			resultChan := make(chan result, 1)

			go func() {
				resp, err := next(timeoutCtx, req)
				resultChan <- result{resp, err}
			}()

			select {
			case res := <-resultChan:
				return res.resp, res.err
			case <-timeoutCtx.Done():
				return errorResponse(fmt.Sprintf("request timed out after %v", timeout)), timeoutCtx.Err()
			}
		}
	}
}
