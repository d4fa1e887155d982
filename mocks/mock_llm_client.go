package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// MockLLMClient is a mock implementation of port.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []domain.PromptMessage, jsonOutput bool) domain.LLMResponse {
	args := m.Called(ctx, messages, jsonOutput)
	return args.Get(0).(domain.LLMResponse)
}
