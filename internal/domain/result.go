package domain

import (
	"encoding/json"
	"math"
)

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// ExtractionField is one extracted field.
type ExtractionField struct {
	Field      string           `json:"field"`
	Value      string           `json:"value"`
	Confidence float64          `json:"confidence"`
	Source     CapabilitySource `json:"source"`
	Err        error            `json:"-"`
}

// NewField builds a field with a clamped confidence.
func NewField(field, value string, confidence float64, source CapabilitySource) ExtractionField {
	return ExtractionField{
		Field:      field,
		Value:      value,
		Confidence: ClampConfidence(confidence),
		Source:     source,
	}
}

// FailedField builds an empty field carrying err.
func FailedField(field string, source CapabilitySource, err error) ExtractionField {
	return ExtractionField{Field: field, Source: source, Err: err}
}

// ExtractionResult is the outcome of one extraction attempt.
type ExtractionResult struct {
	Content    []ExtractionField `json:"content"`
	Confidence float64           `json:"confidence"`
	Source     CapabilitySource  `json:"source"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Err        error             `json:"-"`
}

// NewExtractionResult aggregates fields into a result whose confidence is
// the mean of the field confidences.
func NewExtractionResult(fields []ExtractionField, source CapabilitySource, data json.RawMessage) ExtractionResult {
	if fields == nil {
		fields = []ExtractionField{}
	}
	return ExtractionResult{
		Content:    fields,
		Confidence: MeanConfidence(fields),
		Source:     source,
		Data:       data,
	}
}

// EmptyExtraction is a result with no fields and zero confidence.
func EmptyExtraction(source CapabilitySource) ExtractionResult {
	return ExtractionResult{Content: []ExtractionField{}, Source: source}
}

// FailedExtraction is a result without content carrying err.
func FailedExtraction(source CapabilitySource, err error) ExtractionResult {
	return ExtractionResult{Source: source, Err: err}
}

// WithError returns a copy of r carrying err with confidence forced to zero.
func (r ExtractionResult) WithError(err error) ExtractionResult {
	r.Err = err
	if err != nil {
		r.Confidence = 0
	}
	return r
}

// Value returns the value of the named field, or "" when the field is absent.
func (r ExtractionResult) Value(field string) string {
	for _, f := range r.Content {
		if f.Field == field {
			return f.Value
		}
	}
	return ""
}

// MeanConfidence is the arithmetic mean of field confidences, 0 for no fields.
func MeanConfidence(fields []ExtractionField) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fields {
		if f.Err == nil {
			sum += ClampConfidence(f.Confidence)
		}
	}
	return ClampConfidence(sum / float64(len(fields)))
}

// OCRResult is the outcome of one OCR attempt.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
	Err        error   `json:"-"`
}

// NewOCRResult builds a successful OCR result with a clamped confidence.
func NewOCRResult(engine, text string, confidence float64) OCRResult {
	return OCRResult{Text: text, Confidence: ClampConfidence(confidence), Engine: engine}
}

// FailedOCR builds an OCR result with no text carrying err.
func FailedOCR(engine string, err error) OCRResult {
	return OCRResult{Engine: engine, Err: err}
}

// Acceptable reports whether r has no error and reaches threshold.
func (r OCRResult) Acceptable(threshold float64) bool {
	return r.Err == nil && r.Confidence >= threshold
}

// PromptMessage is a role-tagged chat message.
type PromptMessage struct {
	Role    PromptRole `json:"role"`
	Content string     `json:"content"`
}

// LLMResponse is a language-model reply.
type LLMResponse struct {
	Content    string          `json:"content"`
	Source     string          `json:"source"`
	Data       json.RawMessage `json:"data,omitempty"`
	Prompt     []PromptMessage `json:"prompt,omitempty"`
	JSONOutput bool            `json:"json_output"`
	Err        error           `json:"-"`
}
