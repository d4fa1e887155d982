package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/ocr"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// BatchConfig holds settings for the batch runner.
type BatchConfig struct {
	Workers     int
	ItemTimeout time.Duration
}

// BatchResult is the outcome for one image. Err is set when the image could
// not be loaded, decoded or extracted at all.
type BatchResult struct {
	Key string
	*ImageExtraction
	Err error
}

// BatchRunner extracts many images with bounded concurrency.
type BatchRunner struct {
	svc    ExtractionService
	cfg    BatchConfig
	logger *zap.Logger
}

// NewBatchRunner creates a BatchRunner. Workers <= 0 uses config.DefaultWorkers.
func NewBatchRunner(svc ExtractionService, cfg BatchConfig, l *zap.Logger) *BatchRunner {
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultWorkers()
	}
	return &BatchRunner{svc: svc, cfg: cfg, logger: logger.OrNop(l)}
}

// Run processes keys from src and returns results in input order. It stops
// dispatching when ctx is canceled and blocks until in-flight items finish.
func (r *BatchRunner) Run(ctx context.Context, src port.ImageSource, keys []string) []BatchResult {
	results := make([]BatchResult, len(keys))
	sem := make(chan struct{}, r.cfg.Workers)
	var wg sync.WaitGroup

	r.logger.Info("batch: started", zap.Int("images", len(keys)), zap.Int("workers", r.cfg.Workers))

	for i, key := range keys {
		if err := acquire(ctx, sem); err != nil {
			for j := i; j < len(keys); j++ {
				results[j] = BatchResult{Key: keys[j], Err: err}
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.process(ctx, src, key)
		}()
	}

	wg.Wait()
	r.logger.Info("batch: finished", zap.Int("images", len(keys)))
	return results
}

func acquire(ctx context.Context, sem chan<- struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *BatchRunner) process(ctx context.Context, src port.ImageSource, key string) (res BatchResult) {
	res.Key = key
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("batch: item panicked", zap.String("key", key), zap.Any("panic", p))
			res.Err = fmt.Errorf("processing %s panicked: %v", key, p)
		}
	}()

	if r.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ItemTimeout)
		defer cancel()
	}

	obj, err := src.Load(ctx, key)
	if err != nil {
		res.Err = fmt.Errorf("loading %s: %w", key, err)
		return res
	}
	img, err := ocr.Decode(obj.Body)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", key, err)
		return res
	}

	out, err := r.svc.ExtractImage(ctx, img)
	if err != nil {
		res.Err = fmt.Errorf("extracting %s: %w", key, err)
		return res
	}
	res.ImageExtraction = out
	r.logger.Debug("batch: item done",
		zap.String("key", key),
		zap.String("engine", out.OCR.Engine),
		zap.Float64("confidence", out.Extraction.Confidence),
	)
	return res
}
