package store

import (
	"context"
	"sync"
	"time"

	"imagestudio/internal/domain"
)

// Memory keeps predictions in a process-local map. Records do not survive
// a restart, which is the documented trade-off of this backend.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*domain.Prediction
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*domain.Prediction)}
}

func (m *Memory) Put(_ context.Context, p *domain.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.records[p.ID] = p.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Patch(_ context.Context, id string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	applyPatch(p, patch)
	return nil
}

func (m *Memory) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Prune(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, p := range m.records {
		if !p.Status.Terminal() || p.CompletedAt == nil {
			continue
		}
		if p.CompletedAt.Before(olderThan) {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}
