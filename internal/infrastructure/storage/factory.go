package infrastorage

import (
	"fmt"

	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/storage"
	"trailingest/internal/infrastructure/storage/adapters/fs"
	"trailingest/internal/infrastructure/storage/adapters/s3"
)

type Factory struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewFactory(logger observability.Logger, metrics observability.Metrics) *Factory {
	if logger == nil || metrics == nil {
		panic("logger and metrics are required for storage factory")
	}
	return &Factory{
		logger:  logger,
		metrics: metrics,
	}
}

// Create builds the object store selected by configuration.
func (f *Factory) Create(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Adapters.Storage {
	case "s3":
		f.logger.Info("Creating S3 storage adapter",
			"region", cfg.Storage.S3.Region,
			"endpoint", cfg.Storage.S3.Endpoint)
		return s3.New(&cfg.Storage, f.logger, f.metrics)

	case "filesystem":
		f.logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.LocalPath)
		return fs.New(cfg.Storage.LocalPath, f.logger, f.metrics)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}
