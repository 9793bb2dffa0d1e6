package assets

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory asset store for demo/development mode.
type MemoryStore struct {
	assets map[string]*Asset
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory asset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string]*Asset)}
}

func (m *MemoryStore) Create(ctx context.Context, asset *Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[asset.ID]; ok {
		return ErrAssetExists
	}
	cp := *asset
	m.assets[asset.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	cp := *asset
	return &cp, nil
}

func (m *MemoryStore) TransferOwner(ctx context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, ok := m.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	if asset.Owner != from {
		return ErrNotOwned
	}
	asset.Owner = to
	asset.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListByOwner(ctx context.Context, owner string, limit int) ([]*Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Asset
	for _, a := range m.assets {
		if a.Owner == owner {
			cp := *a
			result = append(result, &cp)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}
