// Package ocr runs OCR backends as a fallback chain.
package ocr

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/metrics"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// Link is one backend in a chain together with its attempt timeout.
// A zero timeout runs the backend without a deadline.
type Link struct {
	Backend port.OCRBackend
	Timeout time.Duration
}

// Chain tries backends in order and returns the first acceptable result.
type Chain struct {
	links     []Link
	threshold float64
	logger    *zap.Logger
}

// NewChain creates a Chain over links in priority order.
func NewChain(links []Link, l *zap.Logger) *Chain {
	return &Chain{
		links:     links,
		threshold: AcceptanceThreshold,
		logger:    logger.OrNop(l),
	}
}

// Engines returns backend names in chain order.
func (c *Chain) Engines() []string {
	names := make([]string, len(c.links))
	for i, l := range c.links {
		names[i] = l.Backend.Name()
	}
	return names
}

// Process runs img through the chain. When every backend rejects the image
// the result carries ErrNoNextHandler under the last engine's name.
func (c *Chain) Process(ctx context.Context, img image.Image) domain.OCRResult {
	if len(c.links) == 0 {
		return domain.FailedOCR("none", domain.ErrEmptyChain)
	}

	for i, link := range c.links {
		name := link.Backend.Name()
		last := i == len(c.links)-1

		skip, ok := c.safeShouldSkip(link.Backend, img)
		if !ok {
			if last {
				c.logger.Error("ocr: no next handler", zap.String("engine", name))
				return domain.FailedOCR(name, domain.ErrNoNextHandler)
			}
			continue
		}
		if skip {
			metrics.OCRAttempts.WithLabelValues(name, metrics.OutcomeSkipped).Inc()
			c.logger.Warn("ocr: skipping image", zap.String("engine", name))
			if last {
				return domain.OCRResult{Engine: name}
			}
			continue
		}

		start := time.Now()
		res, ok := c.attempt(ctx, link, img)
		if ok && res.Acceptable(c.threshold) {
			metrics.OCRAttempts.WithLabelValues(name, metrics.OutcomeAccepted).Inc()
			c.logger.Debug("ocr: accepted result",
				zap.String("engine", name),
				zap.Float64("confidence", res.Confidence),
				zap.Duration("elapsed", time.Since(start)),
			)
			return res
		}

		if ok {
			metrics.OCRAttempts.WithLabelValues(name, metrics.OutcomeRejected).Inc()
			c.logger.Warn("ocr: rejected result",
				zap.String("engine", name),
				zap.Float64("confidence", res.Confidence),
				zap.Error(res.Err),
				zap.Duration("elapsed", time.Since(start)),
			)
		}

		if last {
			err := domain.ErrNoNextHandler
			if ok && res.Err != nil {
				err = fmt.Errorf("%w: %s: %v", domain.ErrNoNextHandler, name, res.Err)
			}
			c.logger.Error("ocr: no next handler", zap.String("engine", name))
			return domain.FailedOCR(name, err)
		}
	}
	// unreachable: the last link always returns
	return domain.FailedOCR("none", domain.ErrNoNextHandler)
}

type attemptResult struct {
	res domain.OCRResult
	ok  bool
}

// attempt runs one backend under its timeout. ok is false on timeout or panic,
// and a result arriving after the deadline is dropped.
func (c *Chain) attempt(ctx context.Context, link Link, img image.Image) (domain.OCRResult, bool) {
	if link.Timeout <= 0 {
		r := c.safeProcess(ctx, link.Backend, img, nil)
		return r.res, r.ok
	}

	ctx, cancel := context.WithTimeout(ctx, link.Timeout)
	defer cancel()

	ch := make(chan attemptResult, 1)
	go c.safeProcess(ctx, link.Backend, img, ch)

	select {
	case r := <-ch:
		return r.res, r.ok
	case <-ctx.Done():
		metrics.Timeouts.Inc()
		metrics.OCRAttempts.WithLabelValues(link.Backend.Name(), metrics.OutcomeTimeout).Inc()
		c.logger.Warn("ocr: processing timed out",
			zap.String("engine", link.Backend.Name()),
			zap.Duration("timeout", link.Timeout),
		)
		return domain.OCRResult{}, false
	}
}

// safeShouldSkip reports ok=false when the backend panics, which the chain
// treats as a rejection.
func (c *Chain) safeShouldSkip(b port.OCRBackend, img image.Image) (skip, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			c.recordPanic(b, p)
			skip, ok = false, false
		}
	}()
	return b.ShouldSkip(img), true
}

func (c *Chain) recordPanic(b port.OCRBackend, p any) {
	metrics.Exceptions.Inc()
	metrics.OCRAttempts.WithLabelValues(b.Name(), metrics.OutcomePanic).Inc()
	c.logger.Error("ocr: backend panicked", zap.String("engine", b.Name()), zap.Any("panic", p))
}

func (c *Chain) safeProcess(ctx context.Context, b port.OCRBackend, img image.Image, ch chan<- attemptResult) (r attemptResult) {
	defer func() {
		if p := recover(); p != nil {
			c.recordPanic(b, p)
			r = attemptResult{}
		}
		if ch != nil {
			ch <- r
		}
	}()
	return attemptResult{res: b.Process(ctx, img), ok: true}
}
