// Package auction implements single-item ascending auctions.
//
// Lifecycle:
//  1. Seller creates an auction for an asset they hold
//  2. Start escrows the asset and opens a fixed 7-day bidding window
//  3. Bids must strictly exceed the current highest bid; the outbid
//     leader's funds become withdrawable
//  4. After the deadline the auction settles: asset to the winner,
//     proceeds to the seller (or asset back to the seller if nobody bid)
//
// Every operation takes exclusive access to its auction for its full
// duration. Funds for the live highest bid are held by the auction and
// are never withdrawable until that bid is superseded.
package auction

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/gavel/internal/token"
)

var (
	ErrAuctionNotFound = errors.New("auction: auction not found")
	ErrUnauthorized    = errors.New("auction: not authorized for this operation")
	ErrAlreadyStarted  = errors.New("auction: already started")
	ErrNotStarted      = errors.New("auction: not started")
	ErrAlreadyEnded    = errors.New("auction: already ended")
	ErrExpired         = errors.New("auction: bidding window has closed")
	ErrTooEarly        = errors.New("auction: bidding window still open")
	ErrBidTooLow       = errors.New("auction: bid must exceed the current highest bid")
	ErrInvalidAmount   = errors.New("auction: invalid amount")
	ErrExternalCall    = errors.New("auction: external capability call failed")
)

// Status represents the state of an auction.
type Status string

const (
	StatusCreated Status = "created" // Registered, bidding not yet open
	StatusActive  Status = "active"  // Asset escrowed, accepting bids
	StatusEnded   Status = "ended"   // Settled, terminal
)

// Duration is the fixed length of the bidding window. Not configurable.
const Duration = 7 * 24 * time.Hour

// NoBidder is the sentinel value of HighestBidder while no bid has been
// accepted.
const NoBidder = ""

// Auction is a single-item ascending auction instance.
type Auction struct {
	ID            string     `json:"id"`
	AssetID       string     `json:"assetId"`
	Seller        string     `json:"seller"`
	StartingPrice string     `json:"startingPrice"`
	Status        Status     `json:"status"`
	EndAt         *time.Time `json:"endAt,omitempty"` // set only by Start

	// HighestBid starts at the seller's starting price; a bid must
	// strictly exceed it. HighestBidder stays NoBidder until the first
	// accepted bid.
	HighestBid    string `json:"highestBid"`
	HighestBidder string `json:"highestBidder,omitempty"`

	// Refundable accumulates superseded bids per address. Entries only
	// grow via bids and only reset to zero via withdrawals. The live
	// leader's own bid is never in here.
	Refundable map[string]string `json:"refundable,omitempty"`

	// Winner and SalePrice record the settlement outcome.
	Winner    string     `json:"winner,omitempty"`
	SalePrice string     `json:"salePrice,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RefundableOf returns the withdrawable balance for an address. Absent
// keys read as zero.
func (a *Auction) RefundableOf(addr string) string {
	if a.Refundable == nil {
		return "0"
	}
	bal, ok := a.Refundable[addr]
	if !ok || bal == "" {
		return "0"
	}
	return bal
}

// IsTerminal returns true once the auction has settled.
func (a *Auction) IsTerminal() bool {
	return a.Status == StatusEnded
}

// checkStart validates the start preconditions without mutating anything.
func (a *Auction) checkStart(caller string) error {
	if caller != a.Seller {
		return ErrUnauthorized
	}
	switch a.Status {
	case StatusActive:
		return ErrAlreadyStarted
	case StatusEnded:
		return ErrAlreadyEnded
	}
	return nil
}

// checkBid validates the bid preconditions without mutating anything.
func (a *Auction) checkBid(now time.Time, amount string) error {
	switch a.Status {
	case StatusCreated:
		return ErrNotStarted
	case StatusEnded:
		return ErrAlreadyEnded
	}
	if a.EndAt == nil || !now.Before(*a.EndAt) {
		return ErrExpired
	}
	if !token.GreaterThan(amount, a.HighestBid) {
		// Strictly-greater comparison: a tie is rejected, so leadership
		// can never silently swap between equal bids.
		return ErrBidTooLow
	}
	return nil
}

// checkEnd validates the settlement preconditions without mutating anything.
func (a *Auction) checkEnd(now time.Time) error {
	switch a.Status {
	case StatusCreated:
		return ErrNotStarted
	case StatusEnded:
		return ErrAlreadyEnded
	}
	if a.EndAt != nil && now.Before(*a.EndAt) {
		return ErrTooEarly
	}
	return nil
}

// applyStart transitions Created -> Active and fixes the deadline.
func (a *Auction) applyStart(now time.Time) {
	endAt := now.Add(Duration)
	a.Status = StatusActive
	a.EndAt = &endAt
	a.UpdatedAt = now
}

// applyBid installs a new leader and moves the superseded bid, if any,
// into the previous leader's refundable balance. Returns the superseded
// bidder and amount (NoBidder, "" when this is the first bid).
func (a *Auction) applyBid(now time.Time, bidder, amount string) (prevBidder, prevBid string) {
	prevBidder = a.HighestBidder
	if prevBidder != NoBidder {
		prevBid = a.HighestBid
		if a.Refundable == nil {
			a.Refundable = make(map[string]string)
		}
		a.Refundable[prevBidder] = token.Add(a.RefundableOf(prevBidder), prevBid)
	}
	a.HighestBid = amount
	a.HighestBidder = bidder
	a.UpdatedAt = now
	return prevBidder, prevBid
}

// applyEnd transitions Active -> Ended and records the outcome.
func (a *Auction) applyEnd(now time.Time) {
	a.Status = StatusEnded
	a.EndedAt = &now
	a.UpdatedAt = now
	if a.HighestBidder != NoBidder {
		a.Winner = a.HighestBidder
		a.SalePrice = a.HighestBid
	}
}

// Store persists auction data.
type Store interface {
	Create(ctx context.Context, a *Auction) error
	Get(ctx context.Context, id string) (*Auction, error)
	Update(ctx context.Context, a *Auction) error
	List(ctx context.Context, status Status, limit int) ([]*Auction, error)
	// ListExpired returns active auctions whose deadline passed before
	// the given time.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*Auction, error)
}
