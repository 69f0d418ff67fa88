package infraqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

type SQSQueue struct {
	client  *sqs.Client
	logger  observability.Logger
	metrics observability.Metrics
	// Queue URL lookups are cached per target
	queueURLs map[string]string
}

func NewSQSQueue(cfg *config.QueueConfig, logger observability.Logger, metrics observability.Metrics) (*SQSQueue, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SQS.Region),
	)
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	queueURLs := make(map[string]string)
	if cfg.Target != "" && cfg.SQS.QueueURL != "" {
		// A configured URL skips the GetQueueUrl lookup entirely
		queueURLs[cfg.Target] = cfg.SQS.QueueURL
	}

	logger.Info("SQS queue initialized", "region", cfg.SQS.Region)

	return &SQSQueue{
		client:    sqs.NewFromConfig(awsCfg),
		logger:    logger,
		metrics:   metrics,
		queueURLs: queueURLs,
	}, nil
}

func (q *SQSQueue) getQueueURL(ctx context.Context, queueName string) (string, error) {
	if url, ok := q.queueURLs[queueName]; ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", queueName, err)
	}

	q.queueURLs[queueName] = *result.QueueUrl
	return *result.QueueUrl, nil
}

func (q *SQSQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	start := time.Now()
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration",
			time.Since(start).Seconds(),
			map[string]string{"target": message.Target})
	}()

	queueURL, err := q.getQueueURL(ctx, message.Target)
	if err != nil {
		q.logger.Error("Failed to get queue URL", "error", err, "queue", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "queue_url_failed"})
		return err
	}

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.logger.Error("Failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "marshal_failed"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("Failed to send message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.error",
			map[string]string{"target": message.Target, "error": "send_failed"})
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Info("Message sent", "target", message.Target, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success",
		map[string]string{"target": message.Target})

	return nil
}

func (q *SQSQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	batches := make(map[string][]*ports.QueueMessage)
	for _, msg := range messages {
		batches[msg.Target] = append(batches[msg.Target], msg)
	}

	for target, batch := range batches {
		if err := q.publishBatchToQueue(ctx, target, batch); err != nil {
			return err
		}
	}

	return nil
}

func (q *SQSQueue) publishBatchToQueue(ctx context.Context, target string, messages []*ports.QueueMessage) error {
	// SQS accepts at most 10 messages per batch call
	const maxBatchSize = 10

	for i := 0; i < len(messages); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(messages) {
			end = len(messages)
		}

		batch := messages[i:end]
		entries := make([]types.SendMessageBatchRequestEntry, len(batch))

		for j, msg := range batch {
			body, err := json.Marshal(msg.Body)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}

			entries[j] = types.SendMessageBatchRequestEntry{
				Id:          aws.String(fmt.Sprintf("%d", j)),
				MessageBody: aws.String(string(body)),
			}
		}

		queueURL, err := q.getQueueURL(ctx, target)
		if err != nil {
			return err
		}

		_, err = q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	return nil
}
