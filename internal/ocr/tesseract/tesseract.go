// Package tesseract runs the tesseract CLI as a local OCR backend.
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
)

// Name is the engine name reported in results.
const Name = "Tesseract"

const (
	defaultBinary = "tesseract"
	defaultLang   = "rus+eng"

	// TSV columns: level page_num block_num par_num line_num word_num left top width height conf text
	tsvColumns = 12
	colConf    = 10
	colText    = 11
)

// Backend implements port.OCRBackend on top of the tesseract CLI.
type Backend struct {
	binary string
	lang   string
	runner ocr.Runner
	logger *zap.Logger
}

// New creates a tesseract backend from config. A nil runner uses os/exec.
func New(cfg *config.TesseractConfig, runner ocr.Runner, l *zap.Logger) *Backend {
	l = logger.OrNop(l)
	if runner == nil {
		runner = ocr.ExecRunner{Logger: l}
	}
	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}
	lang := cfg.Lang
	if lang == "" {
		lang = defaultLang
	}
	return &Backend{binary: binary, lang: lang, runner: runner, logger: l}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) ShouldSkip(image.Image) bool { return false }

func (b *Backend) Process(ctx context.Context, img image.Image) domain.OCRResult {
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return domain.FailedOCR(Name, err)
	}

	stdout, stderr, err := b.runner.Run(ctx, data, b.binary, "stdin", "stdout", "-l", b.lang, "tsv")
	if err != nil {
		b.logger.Error("tesseract: run failed", zap.Error(err))
		return domain.FailedOCR(Name, fmt.Errorf("running tesseract: %w: %s", err, ocr.Truncate(string(stderr), 512)))
	}

	text, conf, err := ParseTSV(stdout)
	if err != nil {
		b.logger.Warn("tesseract: no usable text", zap.Error(err))
		return domain.FailedOCR(Name, err)
	}
	return domain.NewOCRResult(Name, text, conf)
}

// ParseTSV extracts the recognized words and the mean word confidence (0..1)
// from tesseract TSV output. Rows with conf -1 carry layout only.
func ParseTSV(tsv []byte) (string, float64, error) {
	var (
		words []string
		sum   float64
		n     int
	)

	sc := bufio.NewScanner(bytes.NewReader(tsv))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < tsvColumns {
			continue
		}
		if word := strings.TrimSpace(cols[colText]); word != "" {
			words = append(words, word)
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[colConf]), 64)
		if err != nil || conf == -1 {
			continue
		}
		sum += conf
		n++
	}
	if err := sc.Err(); err != nil {
		return "", 0, fmt.Errorf("reading tesseract tsv: %w", err)
	}
	if len(words) == 0 {
		return "", 0, fmt.Errorf("tesseract returned no valid text: %w", domain.ErrEmptyText)
	}

	var conf float64
	if n > 0 {
		conf = sum / float64(n) / 100
	}
	return strings.Join(words, " "), conf, nil
}
