package extractor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// StrategyFactory builds a strategy over an already normalized list.
type StrategyFactory func(extractors []port.MultiFieldExtractor, maxWorkers int, l *zap.Logger) Strategy

var strategies = map[StrategyName]StrategyFactory{
	StrategyLocal: func(ex []port.MultiFieldExtractor, _ int, l *zap.Logger) Strategy {
		return &scanStrategy{name: StrategyLocal, types: []domain.SourceType{domain.SourceLocal}, extractors: ex, logger: l}
	},
	StrategyExternal: func(ex []port.MultiFieldExtractor, _ int, l *zap.Logger) Strategy {
		return &scanStrategy{name: StrategyExternal, types: []domain.SourceType{domain.SourceExternalAPI}, extractors: ex, logger: l}
	},
	StrategyBackup: func(ex []port.MultiFieldExtractor, _ int, l *zap.Logger) Strategy {
		return &scanStrategy{
			name:       StrategyBackup,
			types:      []domain.SourceType{domain.SourceLocal, domain.SourceExternalAPI},
			extractors: ex,
			logger:     l,
		}
	},
	StrategyAll: func(ex []port.MultiFieldExtractor, workers int, l *zap.Logger) Strategy {
		return &bestOfStrategy{extractors: ex, maxWorkers: workers, logger: l}
	},
}

// RegisterStrategy adds or replaces a named strategy.
func RegisterStrategy(name StrategyName, factory StrategyFactory) {
	strategies[name] = factory
}

// NewStrategy normalizes extractors and builds the named strategy. An empty
// name selects DefaultStrategy.
func NewStrategy(name StrategyName, extractors []port.Extractor, opts ...Option) (Strategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	factory, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown extraction strategy: %s", name)
	}

	o := newOptions(opts)
	normalized, err := normalize(extractors, o.cache)
	if err != nil {
		return nil, err
	}
	return factory(normalized, o.maxWorkers, o.logger), nil
}
