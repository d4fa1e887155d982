package llmextract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/extractor/llmextract"
	"github.com/ProstoyVadila/ml-service/mocks"
)

const receiptText = "12.03.2024 пробег 120000 км замена масла 4500 руб"

func newLLM(resp domain.LLMResponse) *mocks.MockLLMClient {
	m := new(mocks.MockLLMClient)
	m.On("Name").Return("deepseek")
	m.On("Chat", mock.Anything, mock.Anything, true).Return(resp)
	return m
}

func TestExtractAll_ParsesAllFields(t *testing.T) {
	llm := newLLM(domain.LLMResponse{
		Content: `{"date":"2024-03-12","mileage":120000,"price":"4500","works":["замена масла"," "],"materials":[]}`,
		Data:    []byte(`{"id":"cmpl-1"}`),
	})
	e := llmextract.New(llm, nil, nil)

	res := e.ExtractAll(context.Background(), receiptText)

	require.NoError(t, res.Err)
	assert.Equal(t, domain.CapabilitySource{Name: "deepseek", Type: domain.SourceExternalAPI}, res.Source)
	require.Len(t, res.Content, 5)
	assert.Equal(t, "2024-03-12", res.Value(domain.FieldDate))
	assert.Equal(t, "120000", res.Value(domain.FieldMileage))
	assert.Equal(t, "4500", res.Value(domain.FieldPrice))
	assert.Equal(t, "замена масла", res.Value(domain.FieldWorks))
	assert.Equal(t, "", res.Value(domain.FieldMaterials))
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.JSONEq(t, `{"id":"cmpl-1"}`, string(res.Data))

	for _, f := range res.Content {
		if f.Value == "" {
			assert.Equal(t, 0.0, f.Confidence)
		} else {
			assert.Equal(t, 1.0, f.Confidence)
		}
	}
}

func TestExtractAll_PromptListsFields(t *testing.T) {
	llm := new(mocks.MockLLMClient)
	llm.On("Name").Return("deepseek")
	llm.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []domain.PromptMessage) bool {
		return len(msgs) == 1 &&
			msgs[0].Role == domain.RoleUser &&
			strings.Contains(msgs[0].Content, "Извлеки следующие поля: date, price.") &&
			strings.Contains(msgs[0].Content, receiptText)
	}), true).Return(domain.LLMResponse{Content: `{"date":"","price":"10"}`})

	res := llmextract.New(llm, []string{"date", "price"}, nil).ExtractAll(context.Background(), receiptText)

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"date", "price"}, fieldNames(res))
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	llm.AssertExpectations(t)
}

func TestExtractAll_ChatError(t *testing.T) {
	chatErr := errors.New("connection refused")
	e := llmextract.New(newLLM(domain.LLMResponse{Err: chatErr}), nil, nil)

	res := e.ExtractAll(context.Background(), receiptText)

	assert.ErrorIs(t, res.Err, chatErr)
	assert.Equal(t, 0.0, res.Confidence)
	require.Len(t, res.Content, 5)
	for _, f := range res.Content {
		assert.Empty(t, f.Value)
		assert.Equal(t, 0.0, f.Confidence)
		assert.ErrorIs(t, f.Err, chatErr)
	}
}

func TestExtractAll_EmptyReply(t *testing.T) {
	res := llmextract.New(newLLM(domain.LLMResponse{}), nil, nil).ExtractAll(context.Background(), receiptText)
	assert.ErrorIs(t, res.Err, domain.ErrEmptyResponse)
}

func TestExtractAll_MalformedReply(t *testing.T) {
	for _, content := range []string{`{"date":`, `["2024-03-12"]`, `"text"`} {
		res := llmextract.New(newLLM(domain.LLMResponse{Content: content}), nil, nil).
			ExtractAll(context.Background(), receiptText)

		assert.ErrorIs(t, res.Err, domain.ErrInvalidJSON, content)
		assert.Equal(t, 0.0, res.Confidence)
		assert.Len(t, res.Content, 5)
	}
}

func TestFieldValue(t *testing.T) {
	doc := gjson.Parse(`{"s":" a ","n":12.5,"null":null,"list":["x",null,["y"]],"obj":{"k":1}}`)
	assert.Equal(t, "a", llmextract.FieldValue(doc.Get("s")))
	assert.Equal(t, "12.5", llmextract.FieldValue(doc.Get("n")))
	assert.Equal(t, "", llmextract.FieldValue(doc.Get("null")))
	assert.Equal(t, "", llmextract.FieldValue(doc.Get("missing")))
	assert.Equal(t, "x, y", llmextract.FieldValue(doc.Get("list")))
	assert.Equal(t, `{"k":1}`, llmextract.FieldValue(doc.Get("obj")))
}

func fieldNames(res domain.ExtractionResult) []string {
	names := make([]string, len(res.Content))
	for i, f := range res.Content {
		names[i] = f.Field
	}
	return names
}
