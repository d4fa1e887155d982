package service

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
)

// OCRProcessor turns an image into text.
type OCRProcessor interface {
	Process(ctx context.Context, img image.Image) domain.OCRResult
}

// TextExtractor turns text into fields.
type TextExtractor interface {
	Run(ctx context.Context, text string) (domain.ExtractionResult, error)
}

// ImageExtraction pairs the OCR result with the extraction run over its text.
type ImageExtraction struct {
	OCR        domain.OCRResult
	Extraction domain.ExtractionResult
}

// ExtractionService defines the receipt extraction contract.
type ExtractionService interface {
	ExtractText(ctx context.Context, text string) (domain.ExtractionResult, error)
	ExtractImage(ctx context.Context, img image.Image) (*ImageExtraction, error)
}

type extractionService struct {
	ocr       OCRProcessor
	extractor TextExtractor
	logger    *zap.Logger
}

// NewExtractionService creates a new ExtractionService.
func NewExtractionService(ocr OCRProcessor, extractor TextExtractor, l *zap.Logger) ExtractionService {
	return &extractionService{
		ocr:       ocr,
		extractor: extractor,
		logger:    logger.OrNop(l),
	}
}

// ExtractText rejects blank text with ErrEmptyText.
func (s *extractionService) ExtractText(ctx context.Context, text string) (domain.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ExtractionResult{}, domain.ErrEmptyText
	}
	return s.extractor.Run(ctx, text)
}

// ExtractImage only returns an error for a misconfigured extractor. OCR
// failures come back inside the extraction result.
func (s *extractionService) ExtractImage(ctx context.Context, img image.Image) (*ImageExtraction, error) {
	if img == nil {
		return nil, domain.ErrUnsupportedImage
	}

	start := time.Now()
	ocrRes := s.ocr.Process(ctx, img)
	s.logger.Info("service: ocr finished",
		zap.String("engine", ocrRes.Engine),
		zap.Float64("confidence", ocrRes.Confidence),
		zap.Int("chars", len([]rune(ocrRes.Text))),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(ocrRes.Err),
	)

	out := &ImageExtraction{OCR: ocrRes}
	switch {
	case ocrRes.Err != nil:
		out.Extraction = domain.FailedExtraction(domain.NoneSource, fmt.Errorf("%w: %w", domain.ErrOCRFailed, ocrRes.Err))
		return out, nil
	case strings.TrimSpace(ocrRes.Text) == "":
		out.Extraction = domain.FailedExtraction(domain.NoneSource, domain.ErrEmptyText)
		return out, nil
	}

	res, err := s.extractor.Run(ctx, ocrRes.Text)
	if err != nil {
		return nil, err
	}
	out.Extraction = res
	return out, nil
}
