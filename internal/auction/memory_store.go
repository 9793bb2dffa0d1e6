package auction

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory auction store for demo/development mode.
type MemoryStore struct {
	auctions map[string]*Auction
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory auction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{auctions: make(map[string]*Auction)}
}

// clone deep-copies an auction so callers never share the Refundable map
// with the stored record.
func clone(a *Auction) *Auction {
	cp := *a
	if a.Refundable != nil {
		cp.Refundable = make(map[string]string, len(a.Refundable))
		for k, v := range a.Refundable {
			cp.Refundable[k] = v
		}
	}
	return &cp
}

func (m *MemoryStore) Create(ctx context.Context, a *Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.auctions[a.ID] = clone(a)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.auctions[id]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return clone(a), nil
}

func (m *MemoryStore) Update(ctx context.Context, a *Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.auctions[a.ID]; !ok {
		return ErrAuctionNotFound
	}
	m.auctions[a.ID] = clone(a)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, status Status, limit int) ([]*Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Auction
	for _, a := range m.auctions {
		if status != "" && a.Status != status {
			continue
		}
		result = append(result, clone(a))
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]*Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Auction
	for _, a := range m.auctions {
		if a.Status == StatusActive && a.EndAt != nil && a.EndAt.Before(before) {
			result = append(result, clone(a))
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}
