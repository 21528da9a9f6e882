package gallery

import (
	"context"
	"sync"
)

// Memory keeps galleries in process memory, one slice per owner.
type Memory struct {
	mu    sync.RWMutex
	lists map[string][]Item
}

func NewMemory() *Memory {
	return &Memory{lists: make(map[string][]Item)}
}

func (m *Memory) Add(_ context.Context, owner string, item Item) (Item, error) {
	item = prepare(item)
	m.mu.Lock()
	defer m.mu.Unlock()
	// Newest first.
	m.lists[owner] = append([]Item{item}, m.lists[owner]...)
	return item, nil
}

func (m *Memory) List(_ context.Context, owner string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.lists[owner]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (m *Memory) Remove(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.lists[owner]
	for i, item := range items {
		if item.ID == id {
			m.lists[owner] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Clear(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, owner)
	return nil
}
