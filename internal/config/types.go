package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	Ingest        IngestConfig
	Retry         RetryConfig
	Storage       StorageConfig
	HTTP          HTTPConfig
	Lambda        LambdaConfig
	Database      DatabaseConfig
	Queue         QueueConfig
	Observability ObservabilityConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Runtime  string // "cli", "http", "lambda"
	Storage  string // "s3", "filesystem"
	Logger   string // "stdout", "zerolog"
	Metrics  string // "stdout", "cloudwatch"
	Database string // "postgres", "" to disable run history
	Queue    string // "rabbitmq", "sqs", "" to disable notifications
}

// IngestConfig holds the pipeline's own settings
type IngestConfig struct {
	// Remote side
	Bucket        string
	Prefix        string
	ArchiveSuffix string

	// Default date window; commands and requests override per run
	StartDate string
	EndDate   string

	// Local layout: {DataRoot}/raw and {DataRoot}/processed
	DataRoot    string
	ReportsRoot string

	// Worker pool bound for per-object work
	Workers int

	// SampleCheck enables first-record field validation
	SampleCheck bool
}

// RetryConfig holds download retry configuration
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// StorageConfig holds object-store configuration
type StorageConfig struct {
	// LocalPath backs the filesystem adapter
	LocalPath string
	Timeout   time.Duration

	// S3-specific configuration
	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
	UsePathStyle    bool
}

// HTTPConfig holds HTTP runtime configuration
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	Timeout                   time.Duration
	EnablePartialBatchFailure bool
}

// DatabaseConfig holds run-history database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	SSLMode      string
}

// QueueConfig holds completion-notifier configuration
type QueueConfig struct {
	// Target is the queue or topic run-completed events go to
	Target string

	RabbitMQ RabbitMQConfig
	SQS      SQSConfig
}

// RabbitMQConfig - minimal config
type RabbitMQConfig struct {
	URL     string
	Timeout time.Duration
}

// SQSConfig - minimal config
type SQSConfig struct {
	Region   string
	QueueURL string
}

// ObservabilityConfig holds metrics backend configuration
type ObservabilityConfig struct {
	CloudWatchRegion    string
	CloudWatchNamespace string
	FlushInterval       time.Duration
	BatchSize           int
}
