package extractor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/metrics"
)

// Orchestrator runs the active strategy and turns its failures into
// zero-confidence results.
type Orchestrator struct {
	mu       sync.RWMutex
	strategy Strategy
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator. strategy may be nil and set later.
func NewOrchestrator(strategy Strategy, l *zap.Logger) *Orchestrator {
	return &Orchestrator{strategy: strategy, logger: logger.OrNop(l)}
}

func (o *Orchestrator) SetStrategy(s Strategy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.strategy = s
}

func (o *Orchestrator) Strategy() Strategy {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.strategy
}

// Run returns ErrNoStrategy when no strategy is set. Any other failure,
// including a panic, comes back as a result carrying the error.
func (o *Orchestrator) Run(ctx context.Context, text string) (res domain.ExtractionResult, err error) {
	s := o.Strategy()
	if s == nil {
		return domain.ExtractionResult{}, domain.ErrNoStrategy
	}

	name := s.Name()
	start := time.Now()
	o.logger.Info("orchestrator: running strategy", zap.String("strategy", name))

	defer func() {
		if p := recover(); p != nil {
			metrics.Exceptions.Inc()
			o.logger.Error("orchestrator: strategy panicked", zap.String("strategy", name), zap.Any("panic", p))
			res = domain.FailedExtraction(firstSource(s), fmt.Errorf("strategy %s panicked: %v", name, p))
			err = nil
		}
		metrics.ExtractionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	res, runErr := s.Run(ctx, text)
	if runErr != nil {
		o.logger.Error("orchestrator: strategy failed",
			zap.String("strategy", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(runErr),
		)
		return domain.FailedExtraction(firstSource(s), runErr), nil
	}

	o.logger.Info("orchestrator: strategy completed",
		zap.String("strategy", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Stringer("source", res.Source),
		zap.Float64("confidence", res.Confidence),
	)
	return res, nil
}

func firstSource(s Strategy) domain.CapabilitySource {
	if ex := s.Extractors(); len(ex) > 0 {
		return ex[0].Source()
	}
	return domain.NoneSource
}
