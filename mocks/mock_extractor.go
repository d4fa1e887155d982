package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// MockFieldExtractor is a mock implementation of port.FieldExtractor.
type MockFieldExtractor struct {
	mock.Mock
}

func (m *MockFieldExtractor) Source() domain.CapabilitySource {
	args := m.Called()
	return args.Get(0).(domain.CapabilitySource)
}

func (m *MockFieldExtractor) Field() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockFieldExtractor) Extract(ctx context.Context, text string) domain.ExtractionField {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ExtractionField)
}

// MockMultiFieldExtractor is a mock implementation of port.MultiFieldExtractor.
type MockMultiFieldExtractor struct {
	mock.Mock
}

func (m *MockMultiFieldExtractor) Source() domain.CapabilitySource {
	args := m.Called()
	return args.Get(0).(domain.CapabilitySource)
}

func (m *MockMultiFieldExtractor) Fields() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockMultiFieldExtractor) ExtractAll(ctx context.Context, text string) domain.ExtractionResult {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ExtractionResult)
}
