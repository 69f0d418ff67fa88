package infraqueue

import (
	"fmt"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

type Factory struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewFactory(logger observability.Logger, metrics observability.Metrics) *Factory {
	if logger == nil || metrics == nil {
		panic("logger and metrics are required for queue factory")
	}
	return &Factory{
		logger:  logger,
		metrics: metrics,
	}
}

// Create builds the queue selected by configuration.
func (f *Factory) Create(cfg *config.Config) (ports.Queue, error) {
	switch cfg.Adapters.Queue {
	case "rabbitmq":
		f.logger.Info("Creating RabbitMQ queue", "target", cfg.Queue.Target)
		return NewRabbitMQQueue(&cfg.Queue.RabbitMQ, f.logger, f.metrics)

	case "sqs":
		f.logger.Info("Creating SQS queue",
			"target", cfg.Queue.Target,
			"region", cfg.Queue.SQS.Region)
		return NewSQSQueue(&cfg.Queue, f.logger, f.metrics)

	default:
		return nil, fmt.Errorf("unsupported queue adapter: %s", cfg.Adapters.Queue)
	}
}
