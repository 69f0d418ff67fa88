package mocks

import (
	"github.com/stretchr/testify/mock"

	"trailingest/internal/domain/observability"
)

// MockMetrics is a mock implementation of the Metrics interface
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

func (m *MockMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) WithTags(tags map[string]string) observability.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(observability.Metrics); ok {
		return metrics
	}
	return m
}

// NewQuietMetrics returns a MockMetrics that accepts any call.
func NewQuietMetrics() *MockMetrics {
	mm := &MockMetrics{}
	mm.On("IncrementCounter", mock.Anything, mock.Anything).Maybe()
	mm.On("RecordHistogram", mock.Anything, mock.Anything, mock.Anything).Maybe()
	mm.On("RecordGauge", mock.Anything, mock.Anything, mock.Anything).Maybe()
	mm.On("WithTags", mock.Anything).Return(nil).Maybe()
	return mm
}
