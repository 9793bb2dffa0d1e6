package ledger

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/mbd888/gavel/internal/idgen"
	"github.com/mbd888/gavel/internal/pagination"
	"github.com/mbd888/gavel/internal/token"
)

// MemoryStore is an in-memory ledger store for demo/development mode.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]*memBalance
	entries  []*Entry
}

type memBalance struct {
	available *big.Int
	totalIn   *big.Int
	totalOut  *big.Int
}

// NewMemoryStore creates a new in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[string]*memBalance)}
}

// balance returns the balance record for addr, creating a zero record on
// first touch. Absent addresses read as zero.
func (m *MemoryStore) balance(addr string) *memBalance {
	b, ok := m.balances[addr]
	if !ok {
		b = &memBalance{
			available: big.NewInt(0),
			totalIn:   big.NewInt(0),
			totalOut:  big.NewInt(0),
		}
		m.balances[addr] = b
	}
	return b
}

func (m *MemoryStore) GetBalance(ctx context.Context, addr string) (*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.balance(addr)
	return &Balance{
		Address:   addr,
		Available: token.Format(b.available),
		TotalIn:   token.Format(b.totalIn),
		TotalOut:  token.Format(b.totalOut),
	}, nil
}

func (m *MemoryStore) Credit(ctx context.Context, addr, amount, reference, description string) error {
	amt, ok := token.Parse(amount)
	if !ok {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.balance(addr)
	b.available.Add(b.available, amt)
	b.totalIn.Add(b.totalIn, amt)
	m.append(addr, "credit", amount, reference, description)
	return nil
}

func (m *MemoryStore) Debit(ctx context.Context, addr, amount, reference, description string) error {
	amt, ok := token.Parse(amount)
	if !ok {
		return ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.balance(addr)
	if b.available.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	b.available.Sub(b.available, amt)
	b.totalOut.Add(b.totalOut, amt)
	m.append(addr, "debit", amount, reference, description)
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, addr string, cursor *pagination.Cursor, limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*Entry
	// Newest first.
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.entries[i]
		if e.Address != addr {
			continue
		}
		if cursor != nil && !beforeCursor(e, cursor) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

// beforeCursor reports whether e sorts strictly after the cursor position
// in newest-first order.
func beforeCursor(e *Entry, c *pagination.Cursor) bool {
	if e.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return e.CreatedAt.Equal(c.CreatedAt) && e.ID < c.ID
}

// append records an entry; callers hold m.mu.
func (m *MemoryStore) append(addr, typ, amount, reference, description string) {
	m.entries = append(m.entries, &Entry{
		ID:          idgen.WithPrefix("le_"),
		Address:     addr,
		Type:        typ,
		Amount:      amount,
		Reference:   reference,
		Description: description,
		CreatedAt:   time.Now(),
	})
}
