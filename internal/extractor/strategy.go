package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ProstoyVadila/ml-service/internal/cache"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/logger"
	"github.com/ProstoyVadila/ml-service/internal/metrics"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// StrategyName selects a selection policy.
type StrategyName string

const (
	StrategyLocal    StrategyName = "local"
	StrategyExternal StrategyName = "external"
	StrategyBackup   StrategyName = "backup"
	StrategyAll      StrategyName = "all"

	DefaultStrategy = StrategyBackup
)

// Strategy picks one result out of a normalized extractor list.
type Strategy interface {
	Name() string
	Extractors() []port.MultiFieldExtractor
	Run(ctx context.Context, text string) (domain.ExtractionResult, error)
}

type options struct {
	maxWorkers int
	cache      cache.Factory
	logger     *zap.Logger
}

// Option configures a strategy.
type Option func(*options)

// WithMaxWorkers bounds the parallelism of the all strategy. Values of 1 or
// less run extractors sequentially.
func WithMaxWorkers(n int) Option {
	return func(o *options) { o.maxWorkers = n }
}

// WithCache sets the cache used by adapters built during normalization.
func WithCache(f cache.Factory) Option {
	return func(o *options) { o.cache = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// normalize keeps multi-field extractors where they are and groups bare
// field extractors by source into adapters appended in first-seen order.
func normalize(extractors []port.Extractor, newCache cache.Factory) ([]port.MultiFieldExtractor, error) {
	var (
		out    []port.MultiFieldExtractor
		order  []domain.CapabilitySource
		groups = make(map[domain.CapabilitySource][]port.FieldExtractor)
	)

	for i, e := range extractors {
		switch x := e.(type) {
		case port.MultiFieldExtractor:
			out = append(out, x)
		case port.FieldExtractor:
			src := x.Source()
			if _, seen := groups[src]; !seen {
				order = append(order, src)
			}
			groups[src] = append(groups[src], x)
		default:
			return nil, fmt.Errorf("%w: %T at position %d", domain.ErrUnknownExtractor, e, i)
		}
	}

	for _, src := range order {
		out = append(out, NewFieldToMultiAdapter(src, groups[src], newCache(src)))
	}
	return out, nil
}

// scanStrategy walks extractors of each source type in turn and returns the
// first result with a positive confidence.
type scanStrategy struct {
	name       StrategyName
	types      []domain.SourceType
	extractors []port.MultiFieldExtractor
	logger     *zap.Logger
}

func (s *scanStrategy) Name() string { return string(s.name) }

func (s *scanStrategy) Extractors() []port.MultiFieldExtractor { return s.extractors }

func (s *scanStrategy) Run(ctx context.Context, text string) (domain.ExtractionResult, error) {
	for _, typ := range s.types {
		for _, e := range s.extractors {
			if e.Source().Type != typ {
				continue
			}
			if err := ctx.Err(); err != nil {
				return domain.ExtractionResult{}, err
			}

			res := e.ExtractAll(ctx, text)
			if res.Confidence > 0 {
				return res, nil
			}
			s.logger.Debug("extractor: no confident result",
				zap.String("strategy", s.Name()),
				zap.Stringer("source", e.Source()),
				zap.Error(res.Err),
			)
		}
	}
	return domain.EmptyExtraction(domain.NoneSource), nil
}

// bestOfStrategy runs every extractor and keeps the first highest
// confidence result in list order.
type bestOfStrategy struct {
	extractors []port.MultiFieldExtractor
	maxWorkers int
	logger     *zap.Logger
}

func (s *bestOfStrategy) Name() string { return string(StrategyAll) }

func (s *bestOfStrategy) Extractors() []port.MultiFieldExtractor { return s.extractors }

func (s *bestOfStrategy) Run(ctx context.Context, text string) (domain.ExtractionResult, error) {
	if len(s.extractors) == 0 {
		return domain.EmptyExtraction(domain.NoneSource), nil
	}

	results := make([]domain.ExtractionResult, len(s.extractors))
	if s.maxWorkers <= 1 {
		for i, e := range s.extractors {
			results[i] = s.safeExtract(ctx, e, text)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.maxWorkers)
		for i, e := range s.extractors {
			g.Go(func() error {
				results[i] = s.safeExtract(ctx, e, text)
				return nil
			})
		}
		_ = g.Wait()
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].Confidence > results[best].Confidence {
			best = i
		}
	}
	return results[best], nil
}

func (s *bestOfStrategy) safeExtract(ctx context.Context, e port.MultiFieldExtractor, text string) (res domain.ExtractionResult) {
	defer func() {
		if p := recover(); p != nil {
			metrics.Exceptions.Inc()
			src := e.Source()
			s.logger.Error("extractor: panicked", zap.Stringer("source", src), zap.Any("panic", p))
			res = domain.FailedExtraction(src, fmt.Errorf("extractor %s panicked: %v", src, p))
		}
	}()
	return e.ExtractAll(ctx, text)
}

func newOptions(opts []Option) *options {
	o := &options{
		maxWorkers: config.DefaultWorkers(),
		cache:      cache.MemoryFactory,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.OrNop(o.logger)
	return o
}
