// Package easyocr runs an EasyOCR wrapper command as a local OCR backend.
//
// The command reads a PNG image on stdin and prints the EasyOCR detail
// output as JSON: an array of [bbox, text, confidence] items.
package easyocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
)

// Name is the engine name reported in results.
const Name = "EasyOCR"

const (
	defaultCommand = "easyocr-json"
	itemLength     = 3
)

var defaultLanguages = []string{"ru", "en"}

// Backend implements port.OCRBackend.
type Backend struct {
	command   string
	languages []string
	gpu       bool
	runner    ocr.Runner
	logger    *zap.Logger
}

// New creates an EasyOCR backend from config. A nil runner uses os/exec.
func New(cfg *config.EasyOCRConfig, runner ocr.Runner, l *zap.Logger) *Backend {
	l = logger.OrNop(l)
	if runner == nil {
		runner = ocr.ExecRunner{Logger: l}
	}
	command := cfg.Command
	if command == "" {
		command = defaultCommand
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = defaultLanguages
	}
	return &Backend{command: command, languages: langs, gpu: cfg.GPU, runner: runner, logger: l}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) ShouldSkip(image.Image) bool { return false }

func (b *Backend) Process(ctx context.Context, img image.Image) domain.OCRResult {
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return domain.FailedOCR(Name, err)
	}

	args := []string{"--langs", strings.Join(b.languages, ",")}
	if b.gpu {
		args = append(args, "--gpu")
	}
	stdout, stderr, err := b.runner.Run(ctx, data, b.command, args...)
	if err != nil {
		return domain.FailedOCR(Name, fmt.Errorf("running easyocr: %w: %s", err, ocr.Truncate(string(stderr), 512)))
	}

	text, conf, err := ParseOutput(stdout)
	if err != nil {
		b.logger.Warn("easyocr: no usable text", zap.Error(err))
		return domain.FailedOCR(Name, err)
	}
	return domain.NewOCRResult(Name, text, conf)
}

// ParseOutput joins the text blocks of EasyOCR JSON output and averages
// their confidences. Malformed items are ignored.
func ParseOutput(out []byte) (string, float64, error) {
	if !gjson.ValidBytes(out) {
		return "", 0, fmt.Errorf("easyocr output: %w", domain.ErrInvalidJSON)
	}
	root := gjson.ParseBytes(out)
	if !root.IsArray() || len(root.Array()) == 0 {
		return "", 0, fmt.Errorf("no text detected by easyocr: %w", domain.ErrEmptyText)
	}

	var (
		parts []string
		sum   float64
	)
	for _, item := range root.Array() {
		fields := item.Array()
		if !item.IsArray() || len(fields) < itemLength {
			continue
		}
		if fields[1].Type != gjson.String || fields[2].Type != gjson.Number {
			continue
		}
		parts = append(parts, fields[1].String())
		sum += fields[2].Float()
	}
	if len(parts) == 0 {
		return "", 0, fmt.Errorf("no valid text blocks in easyocr output: %w", domain.ErrEmptyText)
	}

	text := strings.Join(parts, " ")
	text = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, "\r", ""), "\n", " "))
	return text, sum / float64(len(parts)), nil
}
