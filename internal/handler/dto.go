package handler

import (
	"encoding/json"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/service"
)

// ExtractTextRequest is the body of POST /api/v1/extract/text.
type ExtractTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// FieldDTO is one extracted field with its error flattened to a string.
type FieldDTO struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Error      string  `json:"error,omitempty"`
}

// ExtractionDTO is the wire form of domain.ExtractionResult.
type ExtractionDTO struct {
	Fields     []FieldDTO        `json:"fields"`
	Values     map[string]string `json:"values"`
	Confidence float64           `json:"confidence"`
	Source     string            `json:"source"`
	Error      string            `json:"error,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
}

// OCRDTO is the wire form of domain.OCRResult.
type OCRDTO struct {
	Engine     string  `json:"engine"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// ImageExtractionDTO is the body returned by POST /api/v1/extract/image.
type ImageExtractionDTO struct {
	OCR        OCRDTO        `json:"ocr"`
	Extraction ExtractionDTO `json:"extraction"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func toExtractionDTO(r domain.ExtractionResult) ExtractionDTO {
	dto := ExtractionDTO{
		Fields:     make([]FieldDTO, len(r.Content)),
		Values:     make(map[string]string, len(r.Content)),
		Confidence: r.Confidence,
		Source:     r.Source.String(),
		Error:      errString(r.Err),
		Data:       r.Data,
	}
	for i, f := range r.Content {
		dto.Fields[i] = FieldDTO{
			Field:      f.Field,
			Value:      f.Value,
			Confidence: f.Confidence,
			Source:     f.Source.String(),
			Error:      errString(f.Err),
		}
		dto.Values[f.Field] = f.Value
	}
	return dto
}

func toImageExtractionDTO(r *service.ImageExtraction) ImageExtractionDTO {
	return ImageExtractionDTO{
		OCR: OCRDTO{
			Engine:     r.OCR.Engine,
			Text:       r.OCR.Text,
			Confidence: r.OCR.Confidence,
			Error:      errString(r.OCR.Err),
		},
		Extraction: toExtractionDTO(r.Extraction),
	}
}
