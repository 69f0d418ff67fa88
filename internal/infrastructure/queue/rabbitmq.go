// Package infraqueue publishes run-completed events to a message broker.
package infraqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

type RabbitMQQueue struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	timeout time.Duration
	logger  observability.Logger
	metrics observability.Metrics
}

func NewRabbitMQQueue(cfg *config.RabbitMQConfig, logger observability.Logger, metrics observability.Metrics) (*RabbitMQQueue, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("Failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Info("RabbitMQ queue initialized")

	return &RabbitMQQueue{
		conn:    conn,
		channel: channel,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	start := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(start).Seconds(),
			map[string]string{"target": message.Target})
	}()

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.logger.Error("Failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Declare queue (idempotent operation)
	_, err = q.channel.QueueDeclare(
		message.Target, // queue name
		true,           // durable
		false,          // auto-delete
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		q.logger.Error("Failed to declare queue", "error", err, "queue", message.Target)
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	amqpMsg := amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	}

	err = q.channel.PublishWithContext(
		ctx,
		"",             // exchange (empty for direct queue)
		message.Target, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqpMsg,
	)
	if err != nil {
		q.logger.Error("Failed to publish message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "publish_failed"})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	q.logger.Info("Message published", "target", message.Target, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": message.Target})

	return nil
}

func (q *RabbitMQQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	for _, msg := range messages {
		if err := q.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish message in batch: %w", err)
		}
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
