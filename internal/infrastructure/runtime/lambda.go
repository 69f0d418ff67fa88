package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"trailingest/internal/application/ports"
	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
)

const defaultRequestType = "ingest.run"

// lambdaRuntime runs the handler inside AWS Lambda. SQS batch events and
// direct invocations are both accepted; request timeouts are the handler
// stack's concern, not this runtime's.
type lambdaRuntime struct {
	handler ports.Handler
	logger  observability.Logger
	metrics observability.Metrics
	config  *config.LambdaConfig
}

func NewLambdaRuntime(cfg *config.LambdaConfig, handler ports.Handler, obs observability.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.lambda")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	return &lambdaRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *lambdaRuntime) Start() error {
	rt.logger.Info("Starting Lambda runtime")
	rt.metrics.IncrementCounter("lambda.starts", nil)
	lambda.Start(rt.handleEvent)
	return nil
}

func (rt *lambdaRuntime) handleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	start := time.Now()
	rt.logger.Info("Lambda invoked", "event_size", len(event))
	rt.metrics.IncrementCounter("lambda.invocations", nil)
	defer func() {
		rt.metrics.RecordHistogram("lambda.duration",
			float64(time.Since(start).Milliseconds()), nil)
	}()

	return rt.routeEvent(ctx, event)
}

// routeEvent determines the event shape and dispatches it.
func (rt *lambdaRuntime) routeEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	if sqsEvent, ok := tryParseSQSEvent(event); ok {
		return rt.processSQSEvent(ctx, sqsEvent)
	}

	if request, ok := tryParseDirectRequest(event); ok {
		return rt.processDirectRequest(ctx, request)
	}

	if request, ok := tryParseWindow(event); ok {
		return rt.processDirectRequest(ctx, request)
	}

	rt.logger.Error("Unsupported event type")
	rt.metrics.IncrementCounter("lambda.invocations.unsupported", nil)
	return nil, fmt.Errorf("unsupported event type")
}

// --- SQS Event Processing ---

func (rt *lambdaRuntime) processSQSEvent(ctx context.Context, event events.SQSEvent) (interface{}, error) {
	batch := newBatchProcessor(rt.handler, rt.logger, rt.config)

	rt.logger.Info("Processing SQS batch",
		"batch_size", len(event.Records),
		"source", event.Records[0].EventSource)
	rt.metrics.IncrementCounter("lambda.invocations.sqs", nil)
	rt.metrics.RecordHistogram("lambda.batch_size", float64(len(event.Records)), nil)

	response := batch.process(ctx, event)

	stats := batch.getStats()
	rt.logger.Info("SQS batch processing complete",
		"total_messages", stats.totalCount,
		"success_count", stats.successCount,
		"failure_count", stats.failureCount,
		"partial_batch_enabled", rt.config.EnablePartialBatchFailure)
	rt.recordBatchResults(stats)

	return response, batch.getError()
}

type batchProcessor struct {
	handler  ports.Handler
	logger   observability.Logger
	config   *config.LambdaConfig
	stats    batchStats
	response events.SQSEventResponse
}

type batchStats struct {
	successCount int
	failureCount int
	totalCount   int
}

func newBatchProcessor(h ports.Handler, logger observability.Logger, cfg *config.LambdaConfig) *batchProcessor {
	return &batchProcessor{
		handler: h,
		logger:  logger,
		config:  cfg,
		response: events.SQSEventResponse{
			BatchItemFailures: []events.SQSBatchItemFailure{},
		},
	}
}

func (b *batchProcessor) process(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	b.stats.totalCount = len(event.Records)

	for i, record := range event.Records {
		b.processMessage(ctx, record, i)
	}

	return b.response
}

func (b *batchProcessor) processMessage(ctx context.Context, record events.SQSMessage, index int) {
	b.logger.Info("Processing SQS message",
		"message_id", record.MessageId,
		"position", index+1,
		"total", b.stats.totalCount)

	request := convertToRequest(record)
	resp, err := b.handler.Handle(ctx, request)

	if err != nil || !resp.Success {
		b.handleFailure(record, err, resp)
		return
	}
	b.stats.successCount++
}

func (b *batchProcessor) handleFailure(record events.SQSMessage, err error, resp ports.RuntimeResponse) {
	b.stats.failureCount++
	b.logger.Error("Message processing failed",
		"message_id", record.MessageId,
		"error", err,
		"response_success", resp.Success)

	if b.config.EnablePartialBatchFailure {
		b.response.BatchItemFailures = append(b.response.BatchItemFailures,
			events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
	}
}

func (b *batchProcessor) getStats() batchStats {
	return b.stats
}

func (b *batchProcessor) getError() error {
	if !b.config.EnablePartialBatchFailure && b.stats.failureCount > 0 {
		return fmt.Errorf("batch processing failed: %d/%d messages failed",
			b.stats.failureCount, b.stats.totalCount)
	}
	return nil
}

// --- Direct Request Processing ---

func (rt *lambdaRuntime) processDirectRequest(ctx context.Context, req ports.RuntimeRequest) (interface{}, error) {
	rt.logger.Info("Processing direct request", "request_id", req.ID)
	rt.metrics.IncrementCounter("lambda.invocations.direct", nil)

	return rt.handler.Handle(ctx, req)
}

// --- Parsing Helpers ---

func tryParseSQSEvent(event json.RawMessage) (events.SQSEvent, bool) {
	var sqsEvent events.SQSEvent
	err := json.Unmarshal(event, &sqsEvent)
	return sqsEvent, err == nil && len(sqsEvent.Records) > 0
}

func tryParseDirectRequest(event json.RawMessage) (ports.RuntimeRequest, bool) {
	var req ports.RuntimeRequest
	err := json.Unmarshal(event, &req)
	if err != nil || req.ID == "" {
		return req, false
	}
	if req.Type == "" {
		req.Type = defaultRequestType
	}
	return req, true
}

// tryParseWindow accepts a bare {start_date,end_date} payload, the shape a
// console test or an EventBridge target sends without the request envelope.
func tryParseWindow(event json.RawMessage) (ports.RuntimeRequest, bool) {
	var window struct {
		StartDate string `json:"start_date"`
	}
	if err := json.Unmarshal(event, &window); err != nil || window.StartDate == "" {
		return ports.RuntimeRequest{}, false
	}

	return ports.RuntimeRequest{
		ID:        uuid.New().String(),
		Source:    "lambda",
		Type:      defaultRequestType,
		Payload:   event,
		Timestamp: time.Now().UTC(),
	}, true
}

func convertToRequest(record events.SQSMessage) ports.RuntimeRequest {
	return ports.RuntimeRequest{
		ID:        record.MessageId,
		Source:    "sqs",
		Type:      extractMessageType(record),
		Payload:   parseMessageBody(record.Body),
		Metadata:  extractMetadata(record),
		Timestamp: time.Now().UTC(),
	}
}

func extractMessageType(record events.SQSMessage) string {
	if attr, exists := record.MessageAttributes["type"]; exists && attr.StringValue != nil {
		return *attr.StringValue
	}
	return defaultRequestType
}

func parseMessageBody(body string) json.RawMessage {
	var payload json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		payload, _ = json.Marshal(body)
	}
	return payload
}

func extractMetadata(record events.SQSMessage) map[string]string {
	metadata := make(map[string]string)

	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			metadata[key] = *attr.StringValue
		}
	}

	metadata["sqs_message_id"] = record.MessageId
	metadata["sqs_receipt_handle"] = record.ReceiptHandle

	return metadata
}

// --- Metrics Helpers ---

func (rt *lambdaRuntime) recordBatchResults(stats batchStats) {
	rt.metrics.RecordHistogram("lambda.batch.success_count", float64(stats.successCount), nil)
	rt.metrics.RecordHistogram("lambda.batch.failure_count", float64(stats.failureCount), nil)

	switch {
	case stats.failureCount == 0:
		rt.metrics.IncrementCounter("lambda.batch.complete_success", nil)
	case stats.successCount == 0:
		rt.metrics.IncrementCounter("lambda.batch.complete_failure", nil)
	default:
		rt.metrics.IncrementCounter("lambda.batch.partial_failure", nil)
	}
}
