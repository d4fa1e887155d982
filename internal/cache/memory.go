// Package cache holds field caches used by extraction adapters.
package cache

import (
	"context"
	"sync"

	"github.com/ProstoyVadila/ml-service/internal/domain"
	"github.com/ProstoyVadila/ml-service/internal/port"
)

// Factory returns the cache for one extractor source.
type Factory func(source domain.CapabilitySource) port.FieldCache

// DefaultMaxEntries bounds caches created by NewMemory.
const DefaultMaxEntries = 4096

// Memory is an in-process cache keyed by the exact text. When full, the
// oldest inserted text is evicted.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]domain.ExtractionField
	order []string
	max   int
}

// NewMemory creates an empty Memory cache holding DefaultMaxEntries texts.
func NewMemory() *Memory {
	return NewBoundedMemory(DefaultMaxEntries)
}

// NewBoundedMemory creates a Memory cache holding at most maxEntries texts.
// maxEntries <= 0 means unbounded.
func NewBoundedMemory(maxEntries int) *Memory {
	return &Memory{items: make(map[string][]domain.ExtractionField), max: maxEntries}
}

// MemoryFactory gives every source its own Memory cache.
func MemoryFactory(domain.CapabilitySource) port.FieldCache {
	return NewMemory()
}

func (m *Memory) Get(_ context.Context, text string) ([]domain.ExtractionField, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.items[text]
	if !ok {
		return nil, false
	}
	return cloneFields(fields), true
}

func (m *Memory) Set(_ context.Context, text string, fields []domain.ExtractionField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[text]; !ok {
		if m.max > 0 && len(m.items) >= m.max {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.items, oldest)
		}
		m.order = append(m.order, text)
	}
	m.items[text] = cloneFields(fields)
}

// Len returns the number of cached texts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func cloneFields(fields []domain.ExtractionField) []domain.ExtractionField {
	out := make([]domain.ExtractionField, len(fields))
	copy(out, fields)
	return out
}
