package bootstrap_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ProstoyVadila/ml-service/internal/bootstrap"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/extractor/heuristic"
	"github.com/ProstoyVadila/ml-service/internal/extractor/llmextract"
	"github.com/ProstoyVadila/ml-service/internal/ocr/easyocr"
	"github.com/ProstoyVadila/ml-service/internal/ocr/ocrspace"
	"github.com/ProstoyVadila/ml-service/internal/ocr/tesseract"
)

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewChain_Order(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.EasyOCR.Enabled = true
	cfg.OCRSpace.Enabled = true
	cfg.OCRSpace.APIKey = "k"

	chain, err := bootstrap.NewChain(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{tesseract.Name, easyocr.Name, ocrspace.Name}, chain.Engines())
}

func TestNewChain_NoBackends(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Tesseract.Enabled = false

	_, err := bootstrap.NewChain(cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, domain.ErrEmptyChain)
}

func TestNewExtractors(t *testing.T) {
	cfg := loadDefaults(t)

	got := bootstrap.NewExtractors(cfg, zaptest.NewLogger(t))
	assert.Len(t, got, len(heuristic.Extractors()))

	cfg.LLM.APIKey = "sk-test"
	got = bootstrap.NewExtractors(cfg, zaptest.NewLogger(t))
	require.Len(t, got, len(heuristic.Extractors())+1)
	assert.IsType(t, &llmextract.Extractor{}, got[len(got)-1])
}

func TestNewCacheFactory(t *testing.T) {
	ctx := context.Background()
	src := domain.CapabilitySource{Name: "regex", Type: domain.SourceLocal}
	fields := []domain.ExtractionField{{Field: "mileage", Value: "120000", Confidence: 0.8, Source: src}}

	t.Run("memory", func(t *testing.T) {
		f, closer, err := bootstrap.NewCacheFactory(ctx, &config.CacheConfig{Backend: "memory"}, nil)
		require.NoError(t, err)
		assert.Nil(t, closer)
		require.NotNil(t, f(src))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		f, closer, err := bootstrap.NewCacheFactory(ctx, &config.CacheConfig{Backend: "redis", RedisAddr: mr.Addr()}, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, closer)
		defer func() { _ = closer() }()

		c := f(src)
		c.Set(ctx, "receipt", fields)
		got, ok := c.Get(ctx, "receipt")
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "120000", got[0].Value)
		assert.NotEmpty(t, mr.Keys())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, _, err := bootstrap.NewCacheFactory(ctx, &config.CacheConfig{Backend: "redis", RedisAddr: addr}, nil)
		assert.Error(t, err)
	})
}

func TestNew_Pipeline(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Extraction.Strategy = "local"

	p, err := bootstrap.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Close()) }()

	assert.Equal(t, "local", p.Strategy.Name())
	assert.Same(t, p.Strategy, p.Orchestrator.Strategy())

	res, err := p.Service.ExtractText(context.Background(), "Дата: 12.03.2024\nПробег: 120 000 км")
	require.NoError(t, err)
	assert.Equal(t, heuristic.Source, res.Source)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestNew_UnknownStrategy(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Extraction.Strategy = "fastest"

	_, err := bootstrap.New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
