package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trailingest/internal/domain/archive"
)

// MockRunRepository is a mock implementation of the RunRepository interface
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, run *archive.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) Get(ctx context.Context, runID string) (*archive.RunRecord, error) {
	args := m.Called(ctx, runID)
	if record, ok := args.Get(0).(*archive.RunRecord); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]*archive.RunRecord, error) {
	args := m.Called(ctx, limit)
	if records, ok := args.Get(0).([]*archive.RunRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}
