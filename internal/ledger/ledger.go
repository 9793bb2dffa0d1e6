// Package ledger tracks per-address credit balances on the platform.
//
// Flow:
//  1. Agent deposits credits (external on-ramp, out of scope here)
//  2. Bids debit the bidder's balance into auction escrow
//  3. Outbid refunds and settlement proceeds credit balances back
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbd888/gavel/internal/pagination"
	"github.com/mbd888/gavel/internal/token"
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidAmount     = errors.New("ledger: invalid amount")
)

// Entry represents a ledger entry.
type Entry struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Type        string    `json:"type"` // credit, debit
	Amount      string    `json:"amount"`
	Reference   string    `json:"reference,omitempty"` // auction ID, asset ID, etc.
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Balance represents an address's balance.
type Balance struct {
	Address   string `json:"address"`
	Available string `json:"available"`
	TotalIn   string `json:"totalIn"`
	TotalOut  string `json:"totalOut"`
}

// Store persists ledger data.
type Store interface {
	GetBalance(ctx context.Context, addr string) (*Balance, error)
	// Credit adds amount to addr's available balance.
	Credit(ctx context.Context, addr, amount, reference, description string) error
	// Debit removes amount from addr's available balance; it must fail
	// with ErrInsufficientFunds (and change nothing) when the balance
	// does not cover the amount.
	Debit(ctx context.Context, addr, amount, reference, description string) error
	// GetHistory returns entries newest first, starting strictly after
	// the cursor position when cursor is non-nil.
	GetHistory(ctx context.Context, addr string, cursor *pagination.Cursor, limit int) ([]*Entry, error)
}

// Ledger manages address balances. Credit and Debit are atomic per call:
// they fully succeed or fully fail, with no partial transfer.
type Ledger struct {
	store Store
}

// New creates a new ledger.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// GetBalance returns an address's current balance.
func (l *Ledger) GetBalance(ctx context.Context, addr string) (*Balance, error) {
	return l.store.GetBalance(ctx, strings.ToLower(addr))
}

// Deposit credits an address's balance from an external source.
func (l *Ledger) Deposit(ctx context.Context, addr, amount string) error {
	if !token.IsPositive(amount) {
		return ErrInvalidAmount
	}
	return l.store.Credit(ctx, strings.ToLower(addr), amount, "", "deposit")
}

// Credit releases funds to an address (refund payout or sale proceeds).
func (l *Ledger) Credit(ctx context.Context, addr, amount, reference string) error {
	if !token.IsPositive(amount) {
		return ErrInvalidAmount
	}
	return l.store.Credit(ctx, strings.ToLower(addr), amount, reference, "auction_credit")
}

// Debit takes funds from an address (bid escrow).
func (l *Ledger) Debit(ctx context.Context, addr, amount, reference string) error {
	if !token.IsPositive(amount) {
		return ErrInvalidAmount
	}
	return l.store.Debit(ctx, strings.ToLower(addr), amount, reference, "bid_escrow")
}

// GetHistory returns ledger entries for an address, newest first.
// A non-nil cursor resumes from a previous page.
func (l *Ledger) GetHistory(ctx context.Context, addr string, cursor *pagination.Cursor, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.GetHistory(ctx, strings.ToLower(addr), cursor, limit)
}
