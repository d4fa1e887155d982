// Package deepseek implements port.LLMClient for the DeepSeek chat API.
package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/retry"
)

// Name is the source name reported in responses.
const Name = "deepseek"

const (
	baseURL            = "https://api.deepseek.com"
	defaultModel       = "deepseek-chat"
	defaultTemperature = 0.3
	defaultTimeout     = 30 * time.Second
)

// Client talks to DeepSeek through its OpenAI-compatible API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	policy      retry.Policy
	logger      *zap.Logger
}

// NewClient creates a DeepSeek client from config.
func NewClient(cfg *config.LLMConfig, l *zap.Logger) *Client {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = baseURL
	}
	return newClient(cfg, endpoint, l)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.LLMConfig, endpoint string, l *zap.Logger) *Client {
	return newClient(cfg, endpoint, l)
}

func newClient(cfg *config.LLMConfig, endpoint string, l *zap.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = endpoint
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		temperature: temperature,
		policy: retry.Policy{
			Attempts:  5,
			Delay:     time.Second,
			Mode:      retry.Increasing,
			Retryable: isRetryable,
		},
		logger: logger.OrNop(l),
	}
}

// WithRetryPolicy overrides the request retry policy.
func (c *Client) WithRetryPolicy(p retry.Policy) *Client {
	c.policy = p
	return c
}

// WithRetryTiming changes attempts and base delay but keeps the status
// classifier, so client errors are still returned without retrying.
func (c *Client) WithRetryTiming(attempts int, delay time.Duration) *Client {
	c.policy.Attempts = attempts
	c.policy.Delay = delay
	return c
}

func (c *Client) Name() string { return Name }

// Chat sends messages and returns the first choice. Failures are reported
// through LLMResponse.Err.
func (c *Client) Chat(ctx context.Context, messages []domain.PromptMessage, jsonOutput bool) domain.LLMResponse {
	out := domain.LLMResponse{Source: Name, Prompt: messages, JSONOutput: jsonOutput}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toMessages(messages),
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		c.logger.Error("deepseek: chat failed", zap.Error(err))
		out.Err = fmt.Errorf("calling deepseek API: %w", err)
		return out
	}

	if raw, err := json.Marshal(resp); err == nil {
		out.Data = raw
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		out.Err = domain.ErrEmptyResponse
		return out
	}

	content := resp.Choices[0].Message.Content
	if jsonOutput && !gjson.Valid(content) {
		c.logger.Error("deepseek: invalid json output", zap.String("content", truncate(content, 512)))
		out.Err = fmt.Errorf("deepseek content: %w", domain.ErrInvalidJSON)
		return out
	}
	out.Content = content
	return out
}

func toMessages(msgs []domain.PromptMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return temporaryStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return temporaryStatus(reqErr.HTTPStatusCode)
	}
	return retry.IsTransient(err)
}

func temporaryStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
