package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"trailingest/internal/domain/observability"
)

const bufferCapacity = 100

// Metrics publishes metrics to CloudWatch. Data points are buffered on a
// channel and shipped in batches from a single flusher goroutine, so hot
// paths never wait on the CloudWatch API.
type Metrics struct {
	client        *cloudwatch.Client
	namespace     string
	tags          map[string]string
	bufferCh      chan types.MetricDatum
	flushInterval time.Duration
	batchSize     int
}

// NewMetrics creates a CloudWatch metrics publisher and starts its flusher.
func NewMetrics(ctx context.Context, region, namespace string, flushInterval time.Duration, batchSize int) (*Metrics, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for cloudwatch: %w", err)
	}

	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}

	m := &Metrics{
		client:        cloudwatch.NewFromConfig(awsCfg),
		namespace:     namespace,
		tags:          map[string]string{},
		bufferCh:      make(chan types.MetricDatum, bufferCapacity),
		flushInterval: flushInterval,
		batchSize:     batchSize,
	}

	go m.flushLoop()

	return m, nil
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.record(name, 1, types.StandardUnitCount, tags)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.record(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.record(name, value, types.StandardUnitNone, tags)
}

// WithTags returns a publisher that adds the given tags to every metric.
// The client and buffer are shared, so all scoped publishers feed the same
// flusher.
func (m *Metrics) WithTags(tags map[string]string) observability.Metrics {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &Metrics{
		client:        m.client,
		namespace:     m.namespace,
		tags:          merged,
		bufferCh:      m.bufferCh,
		flushInterval: m.flushInterval,
		batchSize:     m.batchSize,
	}
}

func (m *Metrics) record(name string, value float64, unit types.StandardUnit, tags map[string]string) {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	datum := types.MetricDatum{
		MetricName: aws.String(m.buildMetricName(name, merged)),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now().UTC()),
		Dimensions: tagsToDimensions(merged),
	}

	select {
	case m.bufferCh <- datum:
	default:
		// Buffer full. Dropping a data point beats blocking the pipeline.
	}
}

func (m *Metrics) flushLoop() {
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	batch := make([]types.MetricDatum, 0, m.batchSize)

	for {
		select {
		case datum := <-m.bufferCh:
			batch = append(batch, datum)
			if len(batch) >= m.batchSize {
				m.publish(batch)
				batch = make([]types.MetricDatum, 0, m.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				m.publish(batch)
				batch = make([]types.MetricDatum, 0, m.batchSize)
			}
		}
	}
}

func (m *Metrics) publish(batch []types.MetricDatum) {
	data := make([]types.MetricDatum, len(batch))
	copy(data, batch)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data,
		})
		if err != nil {
			fmt.Printf("cloudwatch metrics publish failed: %v\n", err)
		}
	}()
}

// buildMetricName prefixes the metric with its component when one is set,
// so dashboards group by component without dimension filters.
func (m *Metrics) buildMetricName(name string, tags map[string]string) string {
	if component, ok := tags["component"]; ok && component != "" {
		return fmt.Sprintf("%s.%s", component, name)
	}
	return name
}

func tagsToDimensions(tags map[string]string) []types.Dimension {
	if len(tags) == 0 {
		return nil
	}
	dims := make([]types.Dimension, 0, len(tags))
	for k, v := range tags {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}
	return dims
}
