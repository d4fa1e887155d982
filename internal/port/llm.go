package port

import (
	"context"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// LLMClient sends chat prompts to a language model.
type LLMClient interface {
	Name() string
	Chat(ctx context.Context, messages []domain.PromptMessage, jsonOutput bool) domain.LLMResponse
}
