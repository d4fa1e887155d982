package mocks

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// MockOCRBackend is a mock implementation of port.OCRBackend.
type MockOCRBackend struct {
	mock.Mock
}

func (m *MockOCRBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockOCRBackend) ShouldSkip(img image.Image) bool {
	args := m.Called(img)
	return args.Bool(0)
}

func (m *MockOCRBackend) Process(ctx context.Context, img image.Image) domain.OCRResult {
	args := m.Called(ctx, img)
	return args.Get(0).(domain.OCRResult)
}
