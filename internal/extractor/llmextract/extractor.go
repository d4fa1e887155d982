// Package llmextract extracts all service-record fields with one language model call.
package llmextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// Extractor implements port.MultiFieldExtractor over an LLM client.
type Extractor struct {
	llm    port.LLMClient
	fields []string
	logger *zap.Logger
}

// New creates an extractor. Empty fields default to domain.DefaultFields.
func New(llm port.LLMClient, fields []string, l *zap.Logger) *Extractor {
	if len(fields) == 0 {
		fields = domain.DefaultFields
	}
	return &Extractor{llm: llm, fields: fields, logger: logger.OrNop(l)}
}

func (e *Extractor) Source() domain.CapabilitySource {
	return domain.CapabilitySource{Name: e.llm.Name(), Type: domain.SourceExternalAPI}
}

func (e *Extractor) Fields() []string { return e.fields }

// ExtractAll never fails outright: a failed call or an unparsable reply
// yields one empty field per target field carrying the error.
func (e *Extractor) ExtractAll(ctx context.Context, text string) domain.ExtractionResult {
	prompt := []domain.PromptMessage{{Role: domain.RoleUser, Content: BuildServiceRecordPrompt(e.fields, text)}}
	resp := e.llm.Chat(ctx, prompt, true)

	if resp.Err != nil || resp.Content == "" {
		err := resp.Err
		if err == nil {
			err = domain.ErrEmptyResponse
		}
		e.logger.Error("llmextract: chat failed", zap.String("source", e.llm.Name()), zap.Error(err))
		return e.failed(err, resp.Data)
	}

	payload, err := parseObject(resp.Content)
	if err != nil {
		e.logger.Error("llmextract: unparsable reply", zap.Error(err))
		return e.failed(err, resp.Data)
	}

	src := e.Source()
	fields := make([]domain.ExtractionField, 0, len(e.fields))
	for _, name := range e.fields {
		value := FieldValue(payload.Get(gjson.Escape(name)))
		conf := 0.0
		if value != "" {
			conf = 1
		}
		fields = append(fields, domain.NewField(name, value, conf, src))
	}
	return domain.NewExtractionResult(fields, src, resp.Data)
}

func (e *Extractor) failed(err error, data json.RawMessage) domain.ExtractionResult {
	src := e.Source()
	fields := make([]domain.ExtractionField, len(e.fields))
	for i, name := range e.fields {
		fields[i] = domain.FailedField(name, src, err)
	}
	return domain.ExtractionResult{Content: fields, Source: src, Data: data, Err: err}
}

func parseObject(content string) (gjson.Result, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return gjson.Result{}, fmt.Errorf("llm reply: %w", domain.ErrInvalidJSON)
	}
	root := gjson.Parse(content)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("llm reply is %s, not an object: %w", root.Type, domain.ErrInvalidJSON)
	}
	return root, nil
}

// FieldValue flattens a JSON value into a field string: lists are joined
// with ", ", null and missing values become "".
func FieldValue(r gjson.Result) string {
	switch {
	case !r.Exists(), r.Type == gjson.Null:
		return ""
	case r.IsArray():
		var parts []string
		for _, item := range r.Array() {
			if s := FieldValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case r.IsObject():
		return r.Raw
	case r.Type == gjson.Number:
		return r.Raw
	}
	return strings.TrimSpace(r.String())
}
