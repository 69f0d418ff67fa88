package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trailingest/internal/application/ports"
)

// MockHandler is a mock implementation of the Handler interface
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(ports.RuntimeResponse); ok {
		return resp, args.Error(1)
	}
	return ports.RuntimeResponse{}, args.Error(1)
}
