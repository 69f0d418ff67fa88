package config

import (
	"fmt"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Ingest.Validate(c.Adapters); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Retry.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.Adapters.Runtime {
	case "http":
		if err := c.HTTP.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	case "lambda":
		if err := c.Lambda.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Adapters.Storage == "filesystem" && c.Storage.LocalPath == "" {
		errors = append(errors, "STORAGE_LOCAL_PATH is required for the filesystem adapter")
	}

	if c.Adapters.Metrics == "cloudwatch" && c.Observability.CloudWatchNamespace == "" {
		errors = append(errors, "CLOUDWATCH_NAMESPACE is required for the cloudwatch adapter")
	}

	if c.Adapters.Database == "postgres" {
		if err := c.Database.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Adapters.Queue == "sqs" && c.Queue.SQS.QueueURL == "" {
		errors = append(errors, "SQS_QUEUE_URL is required for the sqs adapter")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter configuration
func (a *AdapterConfig) Validate() error {
	validRuntimes := map[string]bool{"cli": true, "http": true, "lambda": true}
	if !validRuntimes[a.Runtime] {
		return fmt.Errorf("invalid runtime adapter: %s (must be cli, http, or lambda)", a.Runtime)
	}

	validStorage := map[string]bool{"s3": true, "filesystem": true}
	if !validStorage[a.Storage] {
		return fmt.Errorf("invalid storage adapter: %s (must be s3 or filesystem)", a.Storage)
	}

	validLogger := map[string]bool{"stdout": true, "zerolog": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be stdout or zerolog)", a.Logger)
	}

	validMetrics := map[string]bool{"stdout": true, "cloudwatch": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be stdout or cloudwatch)", a.Metrics)
	}

	if a.Database != "" && a.Database != "postgres" {
		return fmt.Errorf("invalid database adapter: %s (must be postgres or empty)", a.Database)
	}

	if a.Queue != "" && a.Queue != "rabbitmq" && a.Queue != "sqs" {
		return fmt.Errorf("invalid queue adapter: %s (must be rabbitmq, sqs, or empty)", a.Queue)
	}

	return nil
}

// Validate validates pipeline configuration
func (i *IngestConfig) Validate(adapters AdapterConfig) error {
	if i.Bucket == "" {
		return fmt.Errorf("INGEST_BUCKET is required")
	}
	if i.DataRoot == "" {
		return fmt.Errorf("INGEST_DATA_ROOT is required")
	}
	if i.ArchiveSuffix == "" {
		return fmt.Errorf("INGEST_ARCHIVE_SUFFIX cannot be empty")
	}
	if i.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}
	return nil
}

// Validate validates retry configuration
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if r.InitialBackoff < 0 {
		return fmt.Errorf("RETRY_INITIAL_BACKOFF cannot be negative")
	}
	if r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("RETRY_MAX_BACKOFF cannot be below RETRY_INITIAL_BACKOFF")
	}
	if r.BackoffMultiplier < 1.0 {
		return fmt.Errorf("RETRY_BACKOFF_MULTIPLIER must be at least 1.0")
	}
	return nil
}

// Validate validates HTTP runtime configuration
func (h *HTTPConfig) Validate() error {
	if h.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required for the http runtime")
	}
	if h.ReadTimeout <= 0 || h.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	return nil
}

// Validate validates Lambda configuration
func (l *LambdaConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("LAMBDA_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates database configuration
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("DB_PORT must be a valid port")
	}
	if d.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.Username == "" {
		return fmt.Errorf("DB_USER is required")
	}
	return nil
}
