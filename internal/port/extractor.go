package port

import (
	"context"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// Extractor is anything that turns text into fields. Concrete extractors
// implement FieldExtractor or MultiFieldExtractor.
type Extractor interface {
	Source() domain.CapabilitySource
}

// FieldExtractor extracts exactly one named field.
type FieldExtractor interface {
	Extractor
	Field() string
	Extract(ctx context.Context, text string) domain.ExtractionField
}

// MultiFieldExtractor extracts the whole target field set in one call.
type MultiFieldExtractor interface {
	Extractor
	Fields() []string
	ExtractAll(ctx context.Context, text string) domain.ExtractionResult
}

// FieldCache stores per-text field results.
type FieldCache interface {
	Get(ctx context.Context, text string) ([]domain.ExtractionField, bool)
	Set(ctx context.Context, text string, fields []domain.ExtractionField)
}
