// Package handler adapts runtime requests into pipeline use case calls and
// carries the cross-cutting middleware stack every runtime shares.
package handler

import (
	"context"
	"time"

	"trailingest/internal/application/ports"
	"trailingest/internal/domain/observability"
)

// HandlerFunc processes a single request
type HandlerFunc func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error)

// Middleware wraps handler functions
type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps fn in the given middleware. The first middleware is the
// outermost layer.
func Chain(fn HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		fn = middlewares[i](fn)
	}
	return fn
}

type chained struct {
	fn HandlerFunc
}

func (c chained) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return c.fn(ctx, req)
}

// WithDefaults wraps h in the standard stack: recovery outermost, then
// timeout (when positive), metrics, and logging. A timeout of zero leaves
// request duration unbounded, which is what long ingestion runs want.
func WithDefaults(h ports.Handler, logger observability.Logger, metrics observability.Metrics, timeout time.Duration) ports.Handler {
	middlewares := []Middleware{RecoveryMiddleware(logger)}
	if timeout > 0 {
		middlewares = append(middlewares, TimeoutMiddleware(timeout))
	}
	middlewares = append(middlewares, MetricsMiddleware(metrics), LoggingMiddleware(logger))

	return chained{fn: Chain(h.Handle, middlewares...)}
}
