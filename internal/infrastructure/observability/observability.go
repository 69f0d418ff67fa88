// Package observability wires concrete logger and metrics adapters into the
// bundle the rest of the application receives by injection. Components never
// construct their own logging or metrics; they are handed scoped instances
// from here.
package observability

import (
	"context"
	"fmt"

	"trailingest/internal/config"
	obs "trailingest/internal/domain/observability"
	"trailingest/internal/infrastructure/observability/adapters/cloudwatch"
	"trailingest/internal/infrastructure/observability/adapters/stdout"
	zerologadapter "trailingest/internal/infrastructure/observability/adapters/zerolog"
)

type bundle struct {
	logger  obs.Logger
	metrics obs.Metrics
}

// CreateObservability builds the logger and metrics adapters selected by
// configuration and returns them as an injectable bundle. Every instance is
// pre-scoped with service, version and environment.
func CreateObservability(ctx context.Context, cfg *config.Config) (obs.Observability, error) {
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, err
	}

	metrics, err := createMetrics(ctx, cfg)
	if err != nil {
		return nil, err
	}

	baseFields := map[string]interface{}{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
	}
	baseTags := map[string]string{
		"service":     cfg.ServiceName,
		"environment": cfg.Environment,
	}

	return &bundle{
		logger:  logger.WithFields(baseFields),
		metrics: metrics.WithTags(baseTags),
	}, nil
}

func createLogger(cfg *config.Config) (obs.Logger, error) {
	switch cfg.Adapters.Logger {
	case "stdout":
		return stdout.NewLogger(cfg.LogLevel, cfg.IsProduction()), nil
	case "zerolog":
		return zerologadapter.NewLogger(cfg.LogLevel, cfg.IsLocal()), nil
	default:
		return nil, fmt.Errorf("unknown logger adapter: %s", cfg.Adapters.Logger)
	}
}

func createMetrics(ctx context.Context, cfg *config.Config) (obs.Metrics, error) {
	switch cfg.Adapters.Metrics {
	case "stdout":
		return stdout.NewMetrics(cfg.IsTest()), nil
	case "cloudwatch":
		region := cfg.Observability.CloudWatchRegion
		if region == "" {
			region = cfg.Storage.S3.Region
		}
		return cloudwatch.NewMetrics(ctx, region,
			cfg.Observability.CloudWatchNamespace,
			cfg.Observability.FlushInterval,
			cfg.Observability.BatchSize)
	default:
		return nil, fmt.Errorf("unknown metrics adapter: %s", cfg.Adapters.Metrics)
	}
}

func (b *bundle) Components() (obs.Logger, obs.Metrics, error) {
	return b.logger, b.metrics, nil
}

// ComponentsScoped returns logger and metrics carrying the component name,
// so every line and data point a component emits is attributable to it.
func (b *bundle) ComponentsScoped(component string) (obs.Logger, obs.Metrics, error) {
	logger := b.logger.WithFields(map[string]interface{}{"component": component})
	metrics := b.metrics.WithTags(map[string]string{"component": component})
	return logger, metrics, nil
}

func (b *bundle) Logger() (obs.Logger, error) {
	return b.logger, nil
}

func (b *bundle) LoggerScoped(component string) (obs.Logger, error) {
	return b.logger.WithFields(map[string]interface{}{"component": component}), nil
}

func (b *bundle) Metrics() (obs.Metrics, error) {
	return b.metrics, nil
}

func (b *bundle) MetricsScoped(component string) (obs.Metrics, error) {
	return b.metrics.WithTags(map[string]string{"component": component}), nil
}
