package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trailingest/internal/application/ports"
)

// MockQueue is a mock implementation of the Queue interface
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}
