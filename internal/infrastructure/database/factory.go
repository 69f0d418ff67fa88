package infradatabase

import (
	"fmt"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
	"trailingest/internal/infrastructure/database/adapters/postgres"
)

type Factory struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewFactory(logger observability.Logger, metrics observability.Metrics) *Factory {
	if logger == nil || metrics == nil {
		panic("logger and metrics are required for database factory")
	}
	return &Factory{
		logger:  logger,
		metrics: metrics,
	}
}

// Create builds the database selected by configuration.
func (f *Factory) Create(cfg *config.Config) (ports.Database, error) {
	switch cfg.Adapters.Database {
	case "postgres":
		f.logger.Info("Creating PostgreSQL database connection")
		return postgres.New(&cfg.Database, f.logger, f.metrics)

	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapters.Database)
	}
}
