package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

var regex = domain.CapabilitySource{Name: "regex", Type: domain.SourceLocal}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.2, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.ClampConfidence(tt.in))
	}
}

func TestNewExtractionResult_MeanConfidence(t *testing.T) {
	fields := []domain.ExtractionField{
		domain.NewField(domain.FieldDate, "2024-01-02", 0.9, regex),
		domain.NewField(domain.FieldPrice, "", 0, regex),
		domain.NewField(domain.FieldMileage, "120000", 1.5, regex),
	}

	res := domain.NewExtractionResult(fields, regex, nil)

	assert.InDelta(t, (0.9+0+1.0)/3, res.Confidence, 1e-9)
	assert.Equal(t, "120000", res.Value(domain.FieldMileage))
	assert.Equal(t, "", res.Value("unknown"))
	assert.NoError(t, res.Err)
}

func TestNewExtractionResult_EmptyFields(t *testing.T) {
	res := domain.NewExtractionResult(nil, regex, nil)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotNil(t, res.Content)
}

func TestWithError_ForcesZeroConfidence(t *testing.T) {
	res := domain.NewExtractionResult([]domain.ExtractionField{
		domain.NewField(domain.FieldDate, "2024-01-02", 0.9, regex),
	}, regex, nil)

	failed := res.WithError(errors.New("boom"))

	assert.Equal(t, 0.0, failed.Confidence)
	assert.EqualError(t, failed.Err, "boom")
	assert.InDelta(t, 0.9, res.Confidence, 1e-9, "original result must be untouched")
}

func TestFailedResults_HaveZeroConfidence(t *testing.T) {
	assert.Equal(t, 0.0, domain.FailedExtraction(regex, domain.ErrEmptyText).Confidence)
	assert.Equal(t, 0.0, domain.FailedOCR("Tesseract", domain.ErrEmptyText).Confidence)
	assert.Equal(t, 0.0, domain.FailedField(domain.FieldDate, regex, domain.ErrEmptyText).Confidence)
}

func TestOCRResult_Acceptable(t *testing.T) {
	assert.True(t, domain.NewOCRResult("a", "text", 0.6).Acceptable(0.6))
	assert.False(t, domain.NewOCRResult("a", "text", 0.59).Acceptable(0.6))
	assert.False(t, domain.FailedOCR("a", domain.ErrOCRFailed).Acceptable(0))
}

func TestCapabilitySource_Comparable(t *testing.T) {
	groups := map[domain.CapabilitySource]int{}
	groups[domain.CapabilitySource{Name: "regex", Type: domain.SourceLocal}]++
	groups[regex]++
	groups[domain.CapabilitySource{Name: "regex", Type: domain.SourceExternalAPI}]++

	assert.Len(t, groups, 2)
	assert.True(t, regex.IsLocal())
	assert.False(t, regex.IsExternal())
	assert.Equal(t, "regex/LOCAL", regex.String())
}
