package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/ProstoyVadila/ml-service/internal/domain"

	// Decoders for the formats accepted at the service edge.
	_ "image/jpeg"
)

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes a PNG or JPEG image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedImage, err)
	}
	return img, nil
}
