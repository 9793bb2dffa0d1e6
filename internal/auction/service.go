package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/gavel/internal/idgen"
	"github.com/mbd888/gavel/internal/metrics"
	"github.com/mbd888/gavel/internal/token"
	"github.com/mbd888/gavel/internal/traces"
)

// AssetRegistry abstracts asset custody so the auction doesn't import assets.
type AssetRegistry interface {
	Transfer(ctx context.Context, from, to, assetID string) error
	Owner(ctx context.Context, assetID string) (string, error)
}

// PaymentLedger abstracts fund movement. Both calls are atomic: they
// fully succeed or fully fail with no partial transfer.
type PaymentLedger interface {
	Credit(ctx context.Context, addr, amount, reference string) error
	Debit(ctx context.Context, addr, amount, reference string) error
}

// Notifier receives fire-and-forget lifecycle notifications. Implementations
// must not block; the service never reads anything back.
type Notifier interface {
	AuctionStarted(a *Auction)
	BidPlaced(a *Auction, bidder, amount string)
	RefundWithdrawn(auctionID, addr, amount string)
	AuctionEnded(a *Auction)
}

// Service implements auction business logic.
type Service struct {
	store      Store
	assets     AssetRegistry
	payments   PaymentLedger
	notifier   Notifier
	escrowAddr string
	locks      lockTable // per-auction locks: every mutator holds one for its full duration
}

// NewService creates a new auction service. escrowAddr is the address
// that holds assets while their auction runs.
func NewService(store Store, assets AssetRegistry, payments PaymentLedger, escrowAddr string) *Service {
	return &Service{
		store:      store,
		assets:     assets,
		payments:   payments,
		escrowAddr: strings.ToLower(escrowAddr),
	}
}

// WithNotifier adds a lifecycle notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// CreateRequest contains the parameters for creating an auction.
type CreateRequest struct {
	AssetID       string `json:"assetId" binding:"required"`
	Seller        string `json:"seller" binding:"required"`
	StartingPrice string `json:"startingPrice" binding:"required"`
}

// Create registers a new auction in the Created state. The asset must
// currently be held by the seller; custody is enforced again when Start
// escrows it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Auction, error) {
	ctx, span := traces.StartSpan(ctx, "auction.Create", traces.AssetID(req.AssetID))
	defer span.End()

	if !token.IsPositive(req.StartingPrice) {
		return nil, fmt.Errorf("%w: starting price must be positive", ErrInvalidAmount)
	}

	seller := strings.ToLower(req.Seller)
	owner, err := s.assets.Owner(ctx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("look up asset custody: %w", err)
	}
	if owner != seller {
		return nil, fmt.Errorf("%w: asset is not held by the seller", ErrUnauthorized)
	}

	now := time.Now()
	a := &Auction{
		ID:            idgen.WithPrefix("auc_"),
		AssetID:       req.AssetID,
		Seller:        seller,
		StartingPrice: req.StartingPrice,
		HighestBid:    req.StartingPrice,
		HighestBidder: NoBidder,
		Status:        StatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create auction record: %w", err)
	}
	return a, nil
}

// Start opens the bidding window. Only the seller may start, and only
// once. The asset is escrowed as part of this call; if escrow fails the
// auction stays in Created with no observable change.
func (s *Service) Start(ctx context.Context, id, caller string) (*Auction, error) {
	ctx, span := traces.StartSpan(ctx, "auction.Start", traces.AuctionID(id), traces.Caller(caller))
	defer span.End()

	unlock := s.locks.acquire(id)
	defer unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.checkStart(strings.ToLower(caller)); err != nil {
		return nil, err
	}

	// Escrow the asset before the transition becomes observable. A
	// failed transfer aborts the whole operation.
	if err := s.assets.Transfer(ctx, a.Seller, s.escrowAddr, a.AssetID); err != nil {
		return nil, fmt.Errorf("%w: escrow asset: %v", ErrExternalCall, err)
	}

	a.applyStart(time.Now())
	if err := s.store.Update(ctx, a); err != nil {
		// Hand the asset back so it can't get stuck in escrow.
		_ = s.assets.Transfer(ctx, s.escrowAddr, a.Seller, a.AssetID)
		return nil, fmt.Errorf("persist start: %w", err)
	}

	metrics.AuctionsStartedTotal.Inc()
	metrics.AuctionsActive.Inc()
	if s.notifier != nil {
		s.notifier.AuctionStarted(a)
	}
	return a, nil
}

// Bid places a bid. The bidder's funds are debited into escrow before
// any auction state changes; a failed debit leaves everything untouched.
// The superseded leader's bid becomes withdrawable.
func (s *Service) Bid(ctx context.Context, id, caller, amount string) (*Auction, error) {
	ctx, span := traces.StartSpan(ctx, "auction.Bid",
		traces.AuctionID(id), traces.Caller(caller), traces.Amount(amount))
	defer span.End()

	unlock := s.locks.acquire(id)
	defer unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	caller = strings.ToLower(caller)
	if err := a.checkBid(time.Now(), amount); err != nil {
		if errors.Is(err, ErrBidTooLow) {
			metrics.BidsTotal.WithLabelValues("too_low").Inc()
		} else {
			metrics.BidsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	// The payment accompanies the bid: debit first, mutate after. If the
	// bidder can't cover the amount nothing has changed.
	if err := s.payments.Debit(ctx, caller, amount, a.ID); err != nil {
		metrics.BidsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: escrow bid funds: %w", ErrExternalCall, err)
	}

	a.applyBid(time.Now(), caller, amount)
	if err := s.store.Update(ctx, a); err != nil {
		// Return the debited funds; the bid never happened.
		_ = s.payments.Credit(ctx, caller, amount, a.ID)
		return nil, fmt.Errorf("persist bid: %w", err)
	}

	metrics.BidsTotal.WithLabelValues("accepted").Inc()
	if s.notifier != nil {
		s.notifier.BidPlaced(a, caller, amount)
	}
	return a, nil
}

// Withdraw pays out the caller's accumulated refundable balance. Legal
// in any state; a zero balance is a successful no-op. The balance is
// zeroed and persisted BEFORE the ledger credit, so nothing observing
// intermediate state can double-spend it.
func (s *Service) Withdraw(ctx context.Context, id, caller string) (string, error) {
	ctx, span := traces.StartSpan(ctx, "auction.Withdraw", traces.AuctionID(id), traces.Caller(caller))
	defer span.End()

	unlock := s.locks.acquire(id)
	defer unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	caller = strings.ToLower(caller)
	bal := a.RefundableOf(caller)
	if token.IsZero(bal) {
		return "0", nil
	}

	delete(a.Refundable, caller)
	a.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, a); err != nil {
		return "", fmt.Errorf("persist withdrawal: %w", err)
	}

	if err := s.payments.Credit(ctx, caller, bal, a.ID); err != nil {
		// The credit failed with the balance already cleared. Restore it
		// so the funds aren't lost: the lock is still held, so no other
		// operation can have observed the cleared balance.
		if a.Refundable == nil {
			a.Refundable = make(map[string]string)
		}
		a.Refundable[caller] = bal
		if restoreErr := s.store.Update(ctx, a); restoreErr != nil {
			return "", fmt.Errorf("%w: payout failed (%v) and balance restore failed: %v",
				ErrExternalCall, err, restoreErr)
		}
		return "", fmt.Errorf("%w: pay out refund: %v", ErrExternalCall, err)
	}

	metrics.RefundsTotal.Inc()
	if s.notifier != nil {
		s.notifier.RefundWithdrawn(a.ID, caller, bal)
	}
	return bal, nil
}

// End settles an expired auction. Anyone may call it once the deadline
// has passed. The terminal state is persisted before the settlement
// transfers; if a transfer fails the auction reverts to Active and End
// can be retried.
func (s *Service) End(ctx context.Context, id string) (*Auction, error) {
	ctx, span := traces.StartSpan(ctx, "auction.End", traces.AuctionID(id))
	defer span.End()

	unlock := s.locks.acquire(id)
	defer unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.checkEnd(time.Now()); err != nil {
		return nil, err
	}

	a.applyEnd(time.Now())
	if err := s.store.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist settlement: %w", err)
	}

	if err := s.settle(ctx, a); err != nil {
		// Roll the terminal transition back so the settlement can be
		// retried. Nothing else ran meanwhile: the lock is held.
		a.Status = StatusActive
		a.Winner = ""
		a.SalePrice = ""
		a.EndedAt = nil
		_ = s.store.Update(ctx, a)
		return nil, err
	}

	metrics.AuctionsActive.Dec()
	if a.HighestBidder != NoBidder {
		metrics.SettlementsTotal.WithLabelValues("sold").Inc()
	} else {
		metrics.SettlementsTotal.WithLabelValues("unsold").Inc()
	}
	if s.notifier != nil {
		s.notifier.AuctionEnded(a)
	}
	return a, nil
}

// settle moves the asset and proceeds for an ended auction. The no-bid
// branch never credits anyone; the has-bid branch never pays the
// sentinel. Either way the asset leaves escrow.
func (s *Service) settle(ctx context.Context, a *Auction) error {
	if a.HighestBidder == NoBidder {
		if err := s.assets.Transfer(ctx, s.escrowAddr, a.Seller, a.AssetID); err != nil {
			return fmt.Errorf("%w: return asset to seller: %v", ErrExternalCall, err)
		}
		return nil
	}

	if err := s.assets.Transfer(ctx, s.escrowAddr, a.HighestBidder, a.AssetID); err != nil {
		return fmt.Errorf("%w: transfer asset to winner: %v", ErrExternalCall, err)
	}
	if err := s.payments.Credit(ctx, a.Seller, a.HighestBid, a.ID); err != nil {
		// Pull the asset back so the revert leaves full escrow intact.
		_ = s.assets.Transfer(ctx, a.HighestBidder, s.escrowAddr, a.AssetID)
		return fmt.Errorf("%w: credit sale proceeds: %v", ErrExternalCall, err)
	}
	return nil
}

// Get returns an auction by ID.
func (s *Service) Get(ctx context.Context, id string) (*Auction, error) {
	return s.store.Get(ctx, id)
}

// List returns auctions, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit int) ([]*Auction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, status, limit)
}
