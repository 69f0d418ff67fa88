// Package runtime hosts the execution environments the pipeline can run
// under. Every runtime drives the same handler; only the transport differs.
package runtime

import (
	"fmt"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

// Create builds the runtime selected by configuration.
func Create(cfg *config.Config, handler ports.Handler, obs observability.Observability) (ports.Runtime, error) {
	switch cfg.Adapters.Runtime {
	case "cli":
		return NewCLIRuntime(&cfg.Ingest, handler, obs)
	case "http":
		return NewHTTPRuntime(&cfg.HTTP, handler, obs)
	case "lambda":
		return NewLambdaRuntime(&cfg.Lambda, handler, obs)
	default:
		return nil, fmt.Errorf("unsupported runtime adapter: %s", cfg.Adapters.Runtime)
	}
}
