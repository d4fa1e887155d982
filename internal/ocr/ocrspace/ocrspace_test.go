package ocrspace_test

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/ocr/ocrspace"
	"github.com/ProstoyVadila/ml-service/internal/retry"
)

var fastRetry = retry.Policy{Attempts: 4, Delay: time.Millisecond, Mode: retry.Increasing, Retryable: retry.IsTransient}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *ocrspace.Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.OCRSpaceConfig{APIKey: "test-key"}
	return ocrspace.NewWithEndpoint(cfg, srv.URL, nil).WithRetryPolicy(fastRetry)
}

func receipt() image.Image {
	return image.NewGray(image.Rect(0, 0, 200, 100))
}

func TestProcess_Success(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "rus", r.FormValue("language"))
		assert.Equal(t, "png", r.FormValue("filetype"))
		if f, hdr, err := r.FormFile("file"); assert.NoError(t, err) {
			_ = f.Close()
			assert.Equal(t, "image.png", hdr.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"Замена масла\r\nДата 12.03.2024\r\n"}]}`))
	})

	res := b.Process(context.Background(), receipt())

	require.NoError(t, res.Err)
	assert.Equal(t, ocrspace.Name, res.Engine)
	assert.Equal(t, "Замена масла Дата 12.03.2024", res.Text)
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestProcess_FailedExitCode(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"OCRExitCode":3,"ErrorMessage":["Unable to recognize"],"ErrorDetails":" bad image"}`))
	})

	res := b.Process(context.Background(), receipt())

	assert.ErrorIs(t, res.Err, domain.ErrOCRFailed)
	assert.Contains(t, res.Err.Error(), "FAILED_PARSING")
	assert.Contains(t, res.Err.Error(), "Unable to recognize bad image")
	assert.Equal(t, 0.0, res.Confidence)
}

func TestProcess_EmptyText(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"  \r\n"}]}`))
	})

	res := b.Process(context.Background(), receipt())
	assert.ErrorIs(t, res.Err, domain.ErrEmptyText)
}

func TestProcess_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"ok"}]}`))
	})

	res := b.Process(context.Background(), receipt())

	require.NoError(t, res.Err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProcess_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	res := b.Process(context.Background(), receipt())

	var statusErr *retry.HTTPStatusError
	require.ErrorAs(t, res.Err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestProcess_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	res := b.Process(context.Background(), receipt())

	assert.Error(t, res.Err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestShouldSkip_LargeImage(t *testing.T) {
	b := ocrspace.NewWithEndpoint(&config.OCRSpaceConfig{MaxSizeBytes: 1024}, "http://unused", nil)

	assert.False(t, b.ShouldSkip(image.NewGray(image.Rect(0, 0, 10, 10))))

	// Random pixels do not compress, so the PNG exceeds 1 KiB.
	noisy := image.NewRGBA(image.Rect(0, 0, 64, 64))
	rng := rand.New(rand.NewPCG(1, 2))
	for x := range 64 {
		for y := range 64 {
			noisy.Set(x, y, color.RGBA{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255})
		}
	}
	assert.True(t, b.ShouldSkip(noisy))
}

// countingImage counts pixel reads so tests can tell how often it was encoded.
type countingImage struct {
	*image.Gray
	reads atomic.Int64
}

func (c *countingImage) At(x, y int) color.Color {
	c.reads.Add(1)
	return c.Gray.At(x, y)
}

func TestProcess_ReusesEncodingFromShouldSkip(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"Итого 1500 руб"}]}`))
	})
	img := &countingImage{Gray: image.NewGray(image.Rect(0, 0, 16, 16))}

	require.False(t, b.ShouldSkip(img))
	afterSkip := img.reads.Load()
	require.Positive(t, afterSkip)

	res := b.Process(context.Background(), img)
	require.NoError(t, res.Err)
	assert.Equal(t, afterSkip, img.reads.Load(), "Process must not encode again")

	// The cached encoding is consumed, so a fresh Process encodes once more.
	res = b.Process(context.Background(), img)
	require.NoError(t, res.Err)
	assert.Greater(t, img.reads.Load(), afterSkip)
}

func TestExitCode_String(t *testing.T) {
	assert.Equal(t, "PARSED_PARTIALLY", ocrspace.ParsedPartially.String())
	assert.Equal(t, "UNKNOWN(9)", ocrspace.ExitCode(9).String())
}
