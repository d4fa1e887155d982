// Package ocrspace implements the OCR.space parse API as an external OCR backend.
package ocrspace

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
	"github.com/ProstoyVadila/ml-service/internal/retry"
)

// Name is the engine name reported in results.
const Name = "OCR_SPACE"

const (
	apiURL          = "https://api.ocr.space/parse/image"
	defaultLanguage = "rus"
	defaultMaxSize  = 1 << 20
	defaultTimeout  = 30 * time.Second
)

// ExitCode is the OCRExitCode reported by the API.
type ExitCode int

const (
	ParsedSuccessfully ExitCode = 1
	ParsedPartially    ExitCode = 2
	FailedParsing      ExitCode = 3
	ErrorOccurred      ExitCode = 4
)

func (c ExitCode) String() string {
	switch c {
	case ParsedSuccessfully:
		return "PARSED_SUCCESSFULLY"
	case ParsedPartially:
		return "PARSED_PARTIALLY"
	case FailedParsing:
		return "FAILED_PARSING"
	case ErrorOccurred:
		return "ERROR_OCCURRED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

// Backend implements port.OCRBackend using the OCR.space HTTP API.
type Backend struct {
	apiKey   string
	language string
	maxSize  int
	endpoint string
	client   *http.Client
	policy   retry.Policy
	logger   *zap.Logger

	// last PNG encoding, shared between ShouldSkip and Process
	mu   sync.Mutex
	last *encoded
}

type encoded struct {
	img  image.Image
	data []byte
	err  error
}

// New creates an OCR.space backend from config.
func New(cfg *config.OCRSpaceConfig, l *zap.Logger) *Backend {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = apiURL
	}
	return newBackend(cfg, endpoint, l)
}

// NewWithEndpoint creates a backend pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.OCRSpaceConfig, endpoint string, l *zap.Logger) *Backend {
	return newBackend(cfg, endpoint, l)
}

func newBackend(cfg *config.OCRSpaceConfig, endpoint string, l *zap.Logger) *Backend {
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}
	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Backend{
		apiKey:   cfg.APIKey,
		language: language,
		maxSize:  maxSize,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		policy: retry.Policy{
			Attempts:  4,
			Delay:     700 * time.Millisecond,
			Mode:      retry.Increasing,
			Retryable: retry.IsTransient,
		},
		logger: logger.OrNop(l),
	}
}

// WithRetryPolicy overrides the request retry policy.
func (b *Backend) WithRetryPolicy(p retry.Policy) *Backend {
	b.policy = p
	return b
}

func (b *Backend) Name() string { return Name }

// ShouldSkip skips images whose PNG encoding exceeds the API size limit.
func (b *Backend) ShouldSkip(img image.Image) bool {
	data, err := b.encode(img, true)
	if err != nil {
		return true
	}
	return len(data) > b.maxSize
}

func (b *Backend) Process(ctx context.Context, img image.Image) domain.OCRResult {
	data, err := b.encode(img, false)
	if err != nil {
		return domain.FailedOCR(Name, err)
	}

	body, err := retry.DoValue(ctx, b.policy, func(ctx context.Context) ([]byte, error) {
		return b.doRequest(ctx, data)
	})
	if err != nil {
		b.logger.Error("ocrspace: request failed", zap.Error(err))
		return domain.FailedOCR(Name, fmt.Errorf("calling ocr.space API: %w", err))
	}

	text, err := parseResponse(body)
	if err != nil {
		b.logger.Error("ocrspace: unusable response", zap.Error(err))
		return domain.FailedOCR(Name, err)
	}
	return domain.NewOCRResult(Name, text, ocr.EstimateConfidence(text, img.Bounds()))
}

// encode returns the PNG bytes of img, reusing the encoding from the
// preceding ShouldSkip call for the same image pointer. keep leaves the
// encoding cached for the next call.
func (b *Backend) encode(img image.Image, keep bool) ([]byte, error) {
	memo := img != nil && reflect.TypeOf(img).Kind() == reflect.Pointer

	if memo {
		b.mu.Lock()
		last := b.last
		if last != nil && last.img == img {
			if !keep {
				b.last = nil
			}
			b.mu.Unlock()
			return last.data, last.err
		}
		b.mu.Unlock()
	}

	data, err := ocr.EncodePNG(img)
	if memo && keep {
		b.mu.Lock()
		b.last = &encoded{img: img, data: data, err: err}
		b.mu.Unlock()
	}
	return data, err
}

func (b *Backend) doRequest(ctx context.Context, png []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"apikey":   b.apiKey,
		"language": b.language,
		"filetype": "png",
	} {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	b.logger.Debug("ocrspace: response", zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPStatusError{StatusCode: resp.StatusCode, Body: ocr.Truncate(string(respBody), 512)}
	}
	return respBody, nil
}

func parseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("ocr.space response: %w", domain.ErrInvalidJSON)
	}
	root := gjson.ParseBytes(body)

	code := ErrorOccurred
	if c := root.Get("OCRExitCode"); c.Exists() {
		code = ExitCode(c.Int())
	}
	if code != ParsedSuccessfully {
		msg := joinMessage(root.Get("ErrorMessage"), "Unknown error") + root.Get("ErrorDetails").String()
		return "", fmt.Errorf("%w: exit code %s: %s", domain.ErrOCRFailed, code, msg)
	}

	parsed := root.Get("ParsedResults.0")
	if !parsed.Exists() {
		msg := joinMessage(root.Get("ErrorMessage"), "No parsed results returned by OCR_SPACE API")
		return "", fmt.Errorf("%w: %s", domain.ErrOCRFailed, msg)
	}

	text := parsed.Get("ParsedText").String()
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return "", fmt.Errorf("ocr.space returned empty parsed text: %w", domain.ErrEmptyText)
	}
	return text, nil
}

// joinMessage reads ErrorMessage, which the API sends either as a string or
// as an array of strings.
func joinMessage(r gjson.Result, fallback string) string {
	if !r.Exists() || r.Type == gjson.Null {
		return fallback
	}
	if r.IsArray() {
		var parts []string
		for _, p := range r.Array() {
			parts = append(parts, p.String())
		}
		return strings.Join(parts, "; ")
	}
	return r.String()
}
