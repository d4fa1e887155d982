package port

import (
	"context"
	"image"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// OCRBackend recognizes text on an image. Process never panics and reports
// every failure through OCRResult.Err.
type OCRBackend interface {
	Name() string
	ShouldSkip(img image.Image) bool
	Process(ctx context.Context, img image.Image) domain.OCRResult
}
