package mocks

import (
	"github.com/stretchr/testify/mock"

	"trailingest/internal/domain/observability"
)

// MockObservability is a mock implementation of the Observability bundle
type MockObservability struct {
	mock.Mock
}

func (m *MockObservability) Components() (observability.Logger, observability.Metrics, error) {
	args := m.Called()
	return toLogger(args.Get(0)), toMetrics(args.Get(1)), args.Error(2)
}

func (m *MockObservability) ComponentsScoped(component string) (observability.Logger, observability.Metrics, error) {
	args := m.Called(component)
	return toLogger(args.Get(0)), toMetrics(args.Get(1)), args.Error(2)
}

func (m *MockObservability) Logger() (observability.Logger, error) {
	args := m.Called()
	return toLogger(args.Get(0)), args.Error(1)
}

func (m *MockObservability) LoggerScoped(component string) (observability.Logger, error) {
	args := m.Called(component)
	return toLogger(args.Get(0)), args.Error(1)
}

func (m *MockObservability) Metrics() (observability.Metrics, error) {
	args := m.Called()
	return toMetrics(args.Get(0)), args.Error(1)
}

func (m *MockObservability) MetricsScoped(component string) (observability.Metrics, error) {
	args := m.Called(component)
	return toMetrics(args.Get(0)), args.Error(1)
}

func toLogger(v interface{}) observability.Logger {
	if logger, ok := v.(observability.Logger); ok {
		return logger
	}
	return nil
}

func toMetrics(v interface{}) observability.Metrics {
	if metrics, ok := v.(observability.Metrics); ok {
		return metrics
	}
	return nil
}

// NewQuietObservability returns a bundle that hands out quiet loggers and
// metrics for every request. Use it when a test only needs constructor
// plumbing, not log or metric assertions.
func NewQuietObservability() *MockObservability {
	obs := &MockObservability{}
	logger := NewQuietLogger()
	metrics := NewQuietMetrics()

	obs.On("Components").Return(logger, metrics, nil).Maybe()
	obs.On("ComponentsScoped", mock.Anything).Return(logger, metrics, nil).Maybe()
	obs.On("Logger").Return(logger, nil).Maybe()
	obs.On("LoggerScoped", mock.Anything).Return(logger, nil).Maybe()
	obs.On("Metrics").Return(metrics, nil).Maybe()
	obs.On("MetricsScoped", mock.Anything).Return(metrics, nil).Maybe()

	return obs
}
