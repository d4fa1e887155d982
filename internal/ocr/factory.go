package ocr

import (
	"time"

	"go.uber.org/zap"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// Factory collects backends and builds a Chain.
type Factory struct {
	defaultTimeout time.Duration
	links          []Link
	logger         *zap.Logger
}

// NewFactory creates a Factory whose backends default to defaultTimeout.
func NewFactory(defaultTimeout time.Duration, l *zap.Logger) *Factory {
	return &Factory{defaultTimeout: defaultTimeout, logger: l}
}

// Add appends a backend. A zero timeout uses the factory default.
func (f *Factory) Add(b port.OCRBackend, timeout time.Duration) *Factory {
	if timeout == 0 {
		timeout = f.defaultTimeout
	}
	f.links = append(f.links, Link{Backend: b, Timeout: timeout})
	return f
}

// Build returns a Chain in the order backends were added.
func (f *Factory) Build() (*Chain, error) {
	if len(f.links) == 0 {
		return nil, domain.ErrEmptyChain
	}
	links := make([]Link, len(f.links))
	copy(links, f.links)
	return NewChain(links, f.logger), nil
}
