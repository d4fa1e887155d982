// Package heuristic provides regex and keyword based single-field
// extractors for Russian vehicle-service receipts.
package heuristic

import (
	"context"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// Source is shared by every extractor in this package, so the strategy
// layer groups them into a single multi-field adapter.
var Source = domain.CapabilitySource{Name: "regex", Type: domain.SourceLocal}

type matchFunc func(text string) (value string, confidence float64)

// Extractor implements port.FieldExtractor with a match function.
type Extractor struct {
	field string
	match matchFunc
}

func (e *Extractor) Source() domain.CapabilitySource { return Source }

func (e *Extractor) Field() string { return e.field }

// Extract returns an empty zero-confidence field on a miss.
func (e *Extractor) Extract(_ context.Context, text string) domain.ExtractionField {
	value, conf := e.match(text)
	if value == "" {
		conf = 0
	}
	return domain.NewField(e.field, value, conf, Source)
}

// Date extracts the first valid date and normalizes it to YYYY-MM-DD.
func Date() *Extractor { return &Extractor{field: domain.FieldDate, match: matchDate} }

// Mileage extracts the odometer reading in km as bare digits.
func Mileage() *Extractor { return &Extractor{field: domain.FieldMileage, match: matchMileage} }

// Price extracts the total amount.
func Price() *Extractor { return &Extractor{field: domain.FieldPrice, match: matchPrice} }

// Works extracts performed works, joined by "; ".
func Works() *Extractor { return &Extractor{field: domain.FieldWorks, match: matchWorks} }

// Materials extracts used materials, joined by "; ".
func Materials() *Extractor { return &Extractor{field: domain.FieldMaterials, match: matchMaterials} }

// Extractors returns one extractor per default field.
func Extractors() []port.Extractor {
	return []port.Extractor{Date(), Mileage(), Price(), Works(), Materials()}
}
