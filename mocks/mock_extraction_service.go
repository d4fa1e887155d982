package mocks

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ExtractText(ctx context.Context, text string) (domain.ExtractionResult, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) ExtractImage(ctx context.Context, img image.Image) (*service.ImageExtraction, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImageExtraction), args.Error(1)
}

// MockOCRProcessor is a mock implementation of service.OCRProcessor.
type MockOCRProcessor struct {
	mock.Mock
}

func (m *MockOCRProcessor) Process(ctx context.Context, img image.Image) domain.OCRResult {
	args := m.Called(ctx, img)
	return args.Get(0).(domain.OCRResult)
}

// MockTextExtractor is a mock implementation of service.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Run(ctx context.Context, text string) (domain.ExtractionResult, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ExtractionResult), args.Error(1)
}
