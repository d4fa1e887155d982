// Package extractor normalizes extractors into multi-field form and
// selects among them with a strategy.
package extractor

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/ProstoyVadila/ml-service/internal/cache"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// FieldToMultiAdapter runs a group of single-field extractors that share
// one source as one multi-field extractor. Results are memoized per text.
type FieldToMultiAdapter struct {
	source     domain.CapabilitySource
	extractors []port.FieldExtractor
	cache      port.FieldCache
	group      singleflight.Group
}

// NewFieldToMultiAdapter wraps extractors. A nil fieldCache gets a
// cache.NewMemory cache holding cache.DefaultMaxEntries texts.
func NewFieldToMultiAdapter(source domain.CapabilitySource, extractors []port.FieldExtractor, fieldCache port.FieldCache) *FieldToMultiAdapter {
	if fieldCache == nil {
		fieldCache = cache.NewMemory()
	}
	return &FieldToMultiAdapter{
		source:     source,
		extractors: extractors,
		cache:      fieldCache,
	}
}

func (a *FieldToMultiAdapter) Source() domain.CapabilitySource { return a.source }

func (a *FieldToMultiAdapter) Fields() []string {
	fields := make([]string, len(a.extractors))
	for i, e := range a.extractors {
		fields[i] = e.Field()
	}
	return fields
}

// ExtractAll returns cached fields for a known text. Otherwise it runs every
// wrapped extractor once, even under concurrent calls for the same text.
func (a *FieldToMultiAdapter) ExtractAll(ctx context.Context, text string) domain.ExtractionResult {
	if fields, ok := a.cache.Get(ctx, text); ok {
		return domain.NewExtractionResult(fields, a.source, nil)
	}

	v, _, _ := a.group.Do(text, func() (any, error) {
		if fields, ok := a.cache.Get(ctx, text); ok {
			return fields, nil
		}
		fields := make([]domain.ExtractionField, len(a.extractors))
		for i, e := range a.extractors {
			fields[i] = e.Extract(ctx, text)
		}
		a.cache.Set(ctx, text, fields)
		return fields, nil
	})

	shared := v.([]domain.ExtractionField)
	fields := make([]domain.ExtractionField, len(shared))
	copy(fields, shared)
	return domain.NewExtractionResult(fields, a.source, nil)
}
