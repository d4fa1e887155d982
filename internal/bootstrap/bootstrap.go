// Package bootstrap wires configuration into the extraction pipeline shared
// by the server and the batch CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/cache"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/extractor"
	"github.com/ProstoyVadila/ml-service/internal/extractor/heuristic"
	"github.com/ProstoyVadila/ml-service/internal/extractor/llmextract"
	"github.com/ProstoyVadila/ml-service/internal/llm/deepseek"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
	"github.com/ProstoyVadila/ml-service/internal/ocr/easyocr"
	"github.com/ProstoyVadila/ml-service/internal/ocr/ocrspace"
	"github.com/ProstoyVadila/ml-service/internal/ocr/tesseract"
	"github.com/ProstoyVadila/ml-service/internal/port"
	"github.com/ProstoyVadila/ml-service/internal/service"
)

// Pipeline holds the wired extraction components.
type Pipeline struct {
	Chain        *ocr.Chain
	Strategy     extractor.Strategy
	Orchestrator *extractor.Orchestrator
	Service      service.ExtractionService

	closers []func() error
}

// Close releases connections opened by New.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// New builds the OCR chain, extractors, cache, strategy and service from cfg.
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Pipeline, error) {
	l = logger.OrNop(l)
	p := &Pipeline{}

	chain, err := NewChain(cfg, l)
	if err != nil {
		return nil, err
	}
	p.Chain = chain

	newCache, closeCache, err := NewCacheFactory(ctx, &cfg.Cache, l)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		p.closers = append(p.closers, closeCache)
	}

	strategy, err := extractor.NewStrategy(
		extractor.StrategyName(cfg.Extraction.Strategy),
		NewExtractors(cfg, l),
		extractor.WithMaxWorkers(cfg.Extraction.MaxWorkers),
		extractor.WithCache(newCache),
		extractor.WithLogger(l),
	)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("building extraction strategy: %w", err)
	}
	p.Strategy = strategy
	p.Orchestrator = extractor.NewOrchestrator(strategy, l)
	p.Service = service.NewExtractionService(chain, p.Orchestrator, l)

	l.Info("bootstrap: pipeline ready",
		zap.Strings("ocr_engines", chain.Engines()),
		zap.String("strategy", strategy.Name()),
		zap.Int("extractors", len(strategy.Extractors())),
		zap.String("cache", cfg.Cache.Backend),
	)
	return p, nil
}

// NewChain assembles enabled OCR backends, cheapest first.
func NewChain(cfg *config.Config, l *zap.Logger) (*ocr.Chain, error) {
	runner := ocr.ExecRunner{Logger: l}
	f := ocr.NewFactory(cfg.OCR.DefaultTimeout, l)

	if cfg.Tesseract.Enabled {
		f.Add(tesseract.New(&cfg.Tesseract, runner, l), cfg.Tesseract.Timeout)
	}
	if cfg.EasyOCR.Enabled {
		f.Add(easyocr.New(&cfg.EasyOCR, runner, l), cfg.EasyOCR.Timeout)
	}
	if cfg.OCRSpace.Enabled {
		f.Add(ocrspace.New(&cfg.OCRSpace, l), cfg.OCRSpace.Timeout)
	}

	chain, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("building ocr chain: %w", err)
	}
	return chain, nil
}

// NewExtractors returns the regex extractors, plus the DeepSeek extractor
// when an API key is configured.
func NewExtractors(cfg *config.Config, l *zap.Logger) []port.Extractor {
	extractors := heuristic.Extractors()
	if cfg.LLM.APIKey == "" {
		if cfg.Extraction.Strategy != string(extractor.StrategyLocal) {
			l.Warn("bootstrap: no llm api key, external extraction disabled",
				zap.String("strategy", cfg.Extraction.Strategy))
		}
		return extractors
	}
	client := deepseek.NewClient(&cfg.LLM, l)
	return append(extractors, llmextract.New(client, nil, l))
}

// NewCacheFactory returns per-source field caches for the configured
// backend. The closer is nil for the in-memory backend.
func NewCacheFactory(ctx context.Context, cfg *config.CacheConfig, l *zap.Logger) (cache.Factory, func() error, error) {
	if cfg.Backend != "redis" {
		return cache.MemoryFactory, nil, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedis(client, cfg.Prefix, cfg.TTL, l).Factory(), client.Close, nil
}
