package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"trailingest/internal/config"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/storage"
)

type client struct {
	s3Client *s3.Client
	logger   observability.Logger
	metrics  observability.Metrics
}

// New creates an S3-backed object store. The bucket is not touched at
// construction time; listing and download failures surface per operation so
// one bad date cannot take the whole run down.
func New(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (storage.ObjectStore, error) {
	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	logger.Info("S3 client initialized", "region", cfg.S3.Region)

	return &client{
		s3Client: s3Client,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// ListPage fetches a single page of keys under the prefix. An empty token
// starts from the beginning; the returned token is empty on the last page.
func (c *client) ListPage(ctx context.Context, bucket, prefix, token string) (storage.Page, error) {
	start := time.Now()

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := c.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		c.logger.Error("Failed to list object page",
			"error", err,
			"bucket", bucket,
			"prefix", prefix)
		c.metrics.IncrementCounter("s3.list_page.errors", nil)
		return storage.Page{}, fmt.Errorf("failed to list objects: %w", err)
	}

	page := storage.Page{
		Objects: make([]storage.ObjectInfo, 0, len(out.Contents)),
	}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, storage.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}

	c.metrics.IncrementCounter("s3.list_page.success", nil)
	c.metrics.RecordHistogram("s3.list_page.duration", float64(time.Since(start).Milliseconds()), nil)

	return page, nil
}

// List returns every object under the prefix, following pagination.
func (c *client) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	start := time.Now()

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []storage.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, input)

	pageCount := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Error("Failed to list objects",
				"error", err,
				"bucket", bucket,
				"prefix", prefix,
				"pages_processed", pageCount)
			c.metrics.IncrementCounter("s3.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			objects = append(objects, storage.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
		pageCount++
	}

	c.logger.Info("Objects listed",
		"bucket", bucket,
		"prefix", prefix,
		"count", len(objects),
		"pages", pageCount)

	c.metrics.IncrementCounter("s3.list.success", nil)
	c.metrics.RecordHistogram("s3.list.duration", float64(time.Since(start).Milliseconds()), nil)

	return objects, nil
}

// Get retrieves an object. Missing keys map to storage.ErrObjectNotFound.
func (c *client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	start := time.Now()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	result, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		if isNotFoundError(err) {
			c.metrics.IncrementCounter("s3.get.not_found", nil)
			return nil, storage.ErrObjectNotFound
		}

		c.logger.Error("Failed to get object",
			"error", err,
			"bucket", bucket,
			"key", key)
		c.metrics.IncrementCounter("s3.get.errors", nil)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	c.metrics.IncrementCounter("s3.get.success", nil)
	c.metrics.RecordHistogram("s3.get.duration", float64(time.Since(start).Milliseconds()), nil)

	return result.Body, nil
}

// Put stores an object.
func (c *client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	start := time.Now()

	buf := &bytes.Buffer{}
	bytesRead, err := io.Copy(buf, reader)
	if err != nil {
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "read_error"})
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}

	_, err = c.s3Client.PutObject(ctx, input)
	if err != nil {
		c.logger.Error("Failed to put object",
			"error", err,
			"bucket", bucket,
			"key", key)
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "s3_error"})
		return fmt.Errorf("failed to put object: %w", err)
	}

	c.metrics.IncrementCounter("s3.put.success", nil)
	c.metrics.RecordHistogram("s3.put.size", float64(bytesRead), nil)
	c.metrics.RecordHistogram("s3.put.duration", float64(time.Since(start).Milliseconds()), nil)

	return nil
}

// Exists checks whether an object exists without fetching its body.
func (c *client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	_, err := c.s3Client.HeadObject(ctx, input)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		c.logger.Error("Failed to check object existence",
			"error", err,
			"bucket", bucket,
			"key", key)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// Delete removes an object.
func (c *client) Delete(ctx context.Context, bucket, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	_, err := c.s3Client.DeleteObject(ctx, input)
	if err != nil {
		c.logger.Error("Failed to delete object",
			"error", err,
			"bucket", bucket,
			"key", key)
		c.metrics.IncrementCounter("s3.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.metrics.IncrementCounter("s3.delete.success", nil)
	return nil
}

func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}

	// Static credentials are for local stacks; in AWS the ambient chain
	// (instance role, Lambda execution role) supplies them.
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKeyID,
				cfg.S3.SecretAccessKey,
				"",
			),
		))
	}

	if cfg.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nse *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nse)
}
