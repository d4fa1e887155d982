package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/port"
)

// MockImageSource is a mock implementation of port.ImageSource.
type MockImageSource struct {
	mock.Mock
}

func (m *MockImageSource) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockImageSource) Load(ctx context.Context, key string) (*port.ImageObject, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ImageObject), args.Error(1)
}
