package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// MockFieldCache is a mock implementation of port.FieldCache.
type MockFieldCache struct {
	mock.Mock
}

func (m *MockFieldCache) Get(ctx context.Context, text string) ([]domain.ExtractionField, bool) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]domain.ExtractionField), args.Bool(1)
}

func (m *MockFieldCache) Set(ctx context.Context, text string, fields []domain.ExtractionField) {
	m.Called(ctx, text, fields)
}
