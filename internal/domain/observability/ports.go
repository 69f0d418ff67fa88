package observability

// Logger defines the interface for structured logging across the pipeline.
// Implementations are injected at construction time; components never reach
// for a process-global logger.
type Logger interface {
	// Debug logs fine-grained diagnostic detail (per-object progress).
	Debug(msg string, fields ...interface{})

	// Info logs informational messages for normal operations.
	Info(msg string, fields ...interface{})

	// Warn logs recoverable anomalies (a skipped date, a retried download).
	Warn(msg string, fields ...interface{})

	// Error logs error conditions with the associated error object.
	// Always pass the actual error; the implementation will extract details.
	Error(msg string, fields ...interface{})

	// WithFields returns a new Logger with the given fields added to all
	// subsequent logs. Useful for consistent context like run_id or component.
	WithFields(fields map[string]interface{}) Logger
}

// Metrics defines the interface for recording application metrics.
type Metrics interface {
	// IncrementCounter increments a counter metric by 1.
	// Use for counting discrete events: objects listed, downloads, failures.
	IncrementCounter(name string, tags map[string]string)

	// RecordHistogram records a value in a histogram distribution.
	// Use for latencies, archive sizes, or any value where distribution matters.
	RecordHistogram(name string, value float64, tags map[string]string)

	// RecordGauge records a point-in-time measurement.
	RecordGauge(name string, value float64, tags map[string]string)

	// WithTags returns a new Metrics instance with additional default tags.
	WithTags(tags map[string]string) Metrics
}

// Observability bundles the logger and metrics built once at startup and
// handed to every constructor.
type Observability interface {
	// Components returns the root logger and metrics without scoping
	Components() (Logger, Metrics, error)

	// ComponentsScoped returns logger and metrics scoped to a specific component
	ComponentsScoped(component string) (Logger, Metrics, error)

	// Logger returns the root logger
	Logger() (Logger, error)

	// LoggerScoped returns a logger scoped to a specific component
	LoggerScoped(component string) (Logger, error)

	// Metrics returns the root metrics
	Metrics() (Metrics, error)

	// MetricsScoped returns metrics scoped to a specific component
	MetricsScoped(component string) (Metrics, error)
}
