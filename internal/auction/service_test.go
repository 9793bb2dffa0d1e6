package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mbd888/gavel/internal/assets"
	"github.com/mbd888/gavel/internal/ledger"
)

const (
	testEscrow = "0x0000000000000000000000000000000000000a0c"
	seller     = "0xseller"
	bidderA    = "0xaaaa"
	bidderB    = "0xbbbb"
)

type rig struct {
	store    *MemoryStore
	registry *assets.Registry
	ledger   *ledger.Ledger
	service  *Service
}

func newRig(t *testing.T) *rig {
	t.Helper()
	registry := assets.NewRegistry(assets.NewMemoryStore())
	l := ledger.New(ledger.NewMemoryStore())
	store := NewMemoryStore()
	return &rig{
		store:    store,
		registry: registry,
		ledger:   l,
		service:  NewService(store, registry, l, testEscrow),
	}
}

// newAsset mints an asset held by the given owner.
func (r *rig) newAsset(t *testing.T, owner string) string {
	t.Helper()
	a, err := r.registry.Register(context.Background(), assets.RegisterRequest{
		Name:  "model-weights-v3",
		Owner: owner,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return a.ID
}

func (r *rig) fund(t *testing.T, addr, amount string) {
	t.Helper()
	if err := r.ledger.Deposit(context.Background(), addr, amount); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
}

func (r *rig) available(t *testing.T, addr string) string {
	t.Helper()
	bal, err := r.ledger.GetBalance(context.Background(), addr)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	return bal.Available
}

func (r *rig) owner(t *testing.T, assetID string) string {
	t.Helper()
	owner, err := r.registry.Owner(context.Background(), assetID)
	if err != nil {
		t.Fatalf("Owner failed: %v", err)
	}
	return owner
}

// newActiveAuction creates and starts an auction for a fresh asset.
func (r *rig) newActiveAuction(t *testing.T, startingPrice string) *Auction {
	t.Helper()
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, err := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: startingPrice,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a, err = r.service.Start(ctx, a.ID, seller)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return a
}

// expire rewinds the deadline so the auction reads as past its window.
func (r *rig) expire(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	a, err := r.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	a.EndAt = &past
	if err := r.store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestCreate(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)

	a, err := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if a.Status != StatusCreated {
		t.Errorf("Status = %q, want created", a.Status)
	}
	if a.HighestBid != "10" {
		t.Errorf("HighestBid = %q, want the starting price", a.HighestBid)
	}
	if a.HighestBidder != NoBidder {
		t.Errorf("HighestBidder = %q, want sentinel", a.HighestBidder)
	}
	if a.EndAt != nil {
		t.Error("EndAt set before Start")
	}
	// Creation does not escrow the asset.
	if got := r.owner(t, assetID); got != seller {
		t.Errorf("asset owner after Create = %q, want seller", got)
	}
}

func TestCreate_AssetNotHeldBySeller(t *testing.T) {
	r := newRig(t)
	assetID := r.newAsset(t, bidderA)

	_, err := r.service.Create(context.Background(), CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Create = %v, want ErrUnauthorized", err)
	}
}

func TestCreate_InvalidStartingPrice(t *testing.T) {
	r := newRig(t)
	assetID := r.newAsset(t, seller)

	for _, price := range []string{"0", "-5", "abc", ""} {
		_, err := r.service.Create(context.Background(), CreateRequest{
			AssetID: assetID, Seller: seller, StartingPrice: price,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Create(price=%q) = %v, want ErrInvalidAmount", price, err)
		}
	}
}

func TestStart(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, _ := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})

	started, err := r.service.Start(ctx, a.ID, seller)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if started.Status != StatusActive {
		t.Errorf("Status = %q, want active", started.Status)
	}
	if started.EndAt == nil {
		t.Fatal("EndAt not set")
	}
	window := time.Until(*started.EndAt)
	if window < Duration-time.Minute || window > Duration+time.Minute {
		t.Errorf("bidding window = %v, want %v", window, Duration)
	}
	if got := r.owner(t, assetID); got != testEscrow {
		t.Errorf("asset owner after Start = %q, want escrow", got)
	}
}

func TestStart_OnlySeller(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, _ := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})

	if _, err := r.service.Start(ctx, a.ID, bidderA); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Start by non-seller = %v, want ErrUnauthorized", err)
	}
	// The failed attempt changed nothing.
	if got := r.owner(t, assetID); got != seller {
		t.Errorf("asset owner = %q, want seller", got)
	}
}

func TestStart_OnlyOnce(t *testing.T) {
	r := newRig(t)
	a := r.newActiveAuction(t, "10")

	if _, err := r.service.Start(context.Background(), a.ID, seller); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestBid_BeforeStart(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, _ := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})
	r.fund(t, bidderA, "100")

	if _, err := r.service.Bid(ctx, a.ID, bidderA, "15"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Bid before Start = %v, want ErrNotStarted", err)
	}
	if got := r.available(t, bidderA); got != "100.000000" {
		t.Errorf("bidder balance mutated by rejected bid: %q", got)
	}
}

func TestBid(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")

	got, err := r.service.Bid(ctx, a.ID, bidderA, "15")
	if err != nil {
		t.Fatalf("Bid failed: %v", err)
	}

	if got.HighestBid != "15" || got.HighestBidder != bidderA {
		t.Errorf("leader = (%q, %q), want (15, %q)", got.HighestBid, got.HighestBidder, bidderA)
	}
	// The live bid is escrowed, not withdrawable.
	if bal := got.RefundableOf(bidderA); bal != "0" {
		t.Errorf("leader's own bid is refundable: %q", bal)
	}
	if bal := r.available(t, bidderA); bal != "85.000000" {
		t.Errorf("bidder balance = %q, want 85.000000", bal)
	}
}

func TestBid_MustStrictlyExceed(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	// Equal to the starting price: rejected.
	if _, err := r.service.Bid(ctx, a.ID, bidderA, "10"); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("Bid at starting price = %v, want ErrBidTooLow", err)
	}

	if _, err := r.service.Bid(ctx, a.ID, bidderA, "15"); err != nil {
		t.Fatalf("Bid failed: %v", err)
	}

	// A tie with the current highest: rejected, leadership unchanged.
	if _, err := r.service.Bid(ctx, a.ID, bidderB, "15"); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("tying bid = %v, want ErrBidTooLow", err)
	}
	cur, _ := r.service.Get(ctx, a.ID)
	if cur.HighestBidder != bidderA {
		t.Errorf("leadership swapped on a tie: %q", cur.HighestBidder)
	}
	if bal := r.available(t, bidderB); bal != "100.000000" {
		t.Errorf("rejected bidder's balance mutated: %q", bal)
	}
}

func TestBid_InsufficientFunds(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "12")

	_, err := r.service.Bid(ctx, a.ID, bidderA, "15")
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("Bid = %v, want ErrInsufficientFunds", err)
	}

	cur, _ := r.service.Get(ctx, a.ID)
	if cur.HighestBidder != NoBidder || cur.HighestBid != "10" {
		t.Errorf("auction mutated by unfunded bid: (%q, %q)", cur.HighestBid, cur.HighestBidder)
	}
}

func TestBid_OutbidBecomesRefundable(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	_, _ = r.service.Bid(ctx, a.ID, bidderA, "15")
	cur, err := r.service.Bid(ctx, a.ID, bidderB, "20")
	if err != nil {
		t.Fatalf("Bid failed: %v", err)
	}

	if cur.HighestBidder != bidderB || cur.HighestBid != "20" {
		t.Errorf("leader = (%q, %q), want (20, %q)", cur.HighestBid, cur.HighestBidder, bidderB)
	}
	if bal := cur.RefundableOf(bidderA); bal != "15.000000" {
		t.Errorf("outbid balance = %q, want 15.000000", bal)
	}
	if bal := cur.RefundableOf(bidderB); bal != "0" {
		t.Errorf("new leader has refundable balance: %q", bal)
	}
}

func TestBid_RefundableAccumulates(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	// A leads twice and is outbid twice without withdrawing in between.
	_, _ = r.service.Bid(ctx, a.ID, bidderA, "15")
	_, _ = r.service.Bid(ctx, a.ID, bidderB, "20")
	_, _ = r.service.Bid(ctx, a.ID, bidderA, "25")
	cur, err := r.service.Bid(ctx, a.ID, bidderB, "30")
	if err != nil {
		t.Fatalf("Bid failed: %v", err)
	}

	if bal := cur.RefundableOf(bidderA); bal != "40.000000" {
		t.Errorf("accumulated refundable = %q, want 40.000000", bal)
	}
	if bal := cur.RefundableOf(bidderB); bal != "20.000000" {
		t.Errorf("accumulated refundable = %q, want 20.000000", bal)
	}
}

func TestBid_AfterDeadline(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.expire(t, a.ID)

	if _, err := r.service.Bid(ctx, a.ID, bidderA, "15"); !errors.Is(err, ErrExpired) {
		t.Fatalf("Bid past deadline = %v, want ErrExpired", err)
	}
}

func TestWithdraw_ZeroIsNoop(t *testing.T) {
	r := newRig(t)
	a := r.newActiveAuction(t, "10")

	amount, err := r.service.Withdraw(context.Background(), a.ID, bidderA)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if amount != "0" {
		t.Errorf("Withdraw = %q, want 0", amount)
	}
}

func TestWithdraw(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	_, _ = r.service.Bid(ctx, a.ID, bidderA, "15")
	_, _ = r.service.Bid(ctx, a.ID, bidderB, "20")

	amount, err := r.service.Withdraw(ctx, a.ID, bidderA)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if amount != "15.000000" {
		t.Errorf("Withdraw = %q, want 15.000000", amount)
	}
	if bal := r.available(t, bidderA); bal != "100.000000" {
		t.Errorf("bidder balance after refund = %q, want 100.000000", bal)
	}

	// The balance pays out exactly once.
	amount, err = r.service.Withdraw(ctx, a.ID, bidderA)
	if err != nil {
		t.Fatalf("second Withdraw failed: %v", err)
	}
	if amount != "0" {
		t.Errorf("second Withdraw = %q, want 0", amount)
	}
	if bal := r.available(t, bidderA); bal != "100.000000" {
		t.Errorf("double payout: %q", bal)
	}
}

func TestWithdraw_LeaderCannotPullLiveBid(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")

	_, _ = r.service.Bid(ctx, a.ID, bidderA, "15")

	amount, err := r.service.Withdraw(ctx, a.ID, bidderA)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if amount != "0" {
		t.Errorf("leader withdrew live bid: %q", amount)
	}
	if bal := r.available(t, bidderA); bal != "85.000000" {
		t.Errorf("bidder balance = %q, want 85.000000", bal)
	}
}

func TestWithdraw_AfterSettlement(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "10")
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	_, _ = r.service.Bid(ctx, a.ID, bidderA, "15")
	_, _ = r.service.Bid(ctx, a.ID, bidderB, "20")
	r.expire(t, a.ID)
	if _, err := r.service.End(ctx, a.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	// Refunds survive settlement.
	amount, err := r.service.Withdraw(ctx, a.ID, bidderA)
	if err != nil {
		t.Fatalf("Withdraw after End failed: %v", err)
	}
	if amount != "15.000000" {
		t.Errorf("Withdraw = %q, want 15.000000", amount)
	}
}

func TestEnd_TooEarly(t *testing.T) {
	r := newRig(t)
	a := r.newActiveAuction(t, "10")

	if _, err := r.service.End(context.Background(), a.ID); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("End before deadline = %v, want ErrTooEarly", err)
	}
}

func TestEnd_BeforeStart(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, _ := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})

	if _, err := r.service.End(ctx, a.ID); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("End before Start = %v, want ErrNotStarted", err)
	}
}

// TestFullAuction walks the whole happy path: create at 10, A bids 15,
// B underbids and is rejected, B bids 20, A withdraws the superseded 15,
// the window lapses and settlement hands the asset to B and pays the
// seller 20.
func TestFullAuction(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	r.fund(t, bidderA, "100")
	r.fund(t, bidderB, "100")

	a, err := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := r.service.Start(ctx, a.ID, seller); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := r.service.Bid(ctx, a.ID, bidderA, "15"); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	if _, err := r.service.Bid(ctx, a.ID, bidderB, "12"); !errors.Is(err, ErrBidTooLow) {
		t.Fatalf("underbid = %v, want ErrBidTooLow", err)
	}
	if _, err := r.service.Bid(ctx, a.ID, bidderB, "20"); err != nil {
		t.Fatalf("second bid failed: %v", err)
	}

	if amount, _ := r.service.Withdraw(ctx, a.ID, bidderA); amount != "15.000000" {
		t.Fatalf("Withdraw = %q, want 15.000000", amount)
	}

	r.expire(t, a.ID)
	ended, err := r.service.End(ctx, a.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if ended.Status != StatusEnded {
		t.Errorf("Status = %q, want ended", ended.Status)
	}
	if ended.Winner != bidderB || ended.SalePrice != "20" {
		t.Errorf("outcome = (%q, %q), want (%q, 20)", ended.Winner, ended.SalePrice, bidderB)
	}
	if got := r.owner(t, assetID); got != bidderB {
		t.Errorf("asset owner = %q, want winner", got)
	}
	if bal := r.available(t, seller); bal != "20.000000" {
		t.Errorf("seller proceeds = %q, want 20.000000", bal)
	}
	if bal := r.available(t, bidderA); bal != "100.000000" {
		t.Errorf("outbid bidder balance = %q, want fully refunded 100.000000", bal)
	}
	if bal := r.available(t, bidderB); bal != "80.000000" {
		t.Errorf("winner balance = %q, want 80.000000", bal)
	}

	// Settlement happens exactly once.
	if _, err := r.service.End(ctx, a.ID); !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("second End = %v, want ErrAlreadyEnded", err)
	}
}

func TestEnd_NoBids(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	assetID := r.newAsset(t, seller)
	a, _ := r.service.Create(ctx, CreateRequest{
		AssetID: assetID, Seller: seller, StartingPrice: "10",
	})
	if _, err := r.service.Start(ctx, a.ID, seller); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.expire(t, a.ID)

	ended, err := r.service.End(ctx, a.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if ended.Winner != "" || ended.SalePrice != "" {
		t.Errorf("no-bid outcome = (%q, %q), want empty", ended.Winner, ended.SalePrice)
	}
	if ended.HighestBidder != NoBidder {
		t.Errorf("HighestBidder = %q, want sentinel", ended.HighestBidder)
	}
	if got := r.owner(t, assetID); got != seller {
		t.Errorf("asset owner = %q, want returned to seller", got)
	}
	if bal := r.available(t, seller); bal != "0.000000" {
		t.Errorf("seller was paid for an unsold asset: %q", bal)
	}
}

// failingLedger fails Credit on demand to exercise the rollback paths.
type failingLedger struct {
	*ledger.Ledger
	failCredit bool
}

func (f *failingLedger) Credit(ctx context.Context, addr, amount, reference string) error {
	if f.failCredit {
		return fmt.Errorf("ledger unavailable")
	}
	return f.Ledger.Credit(ctx, addr, amount, reference)
}

func TestWithdraw_CreditFailureRestoresBalance(t *testing.T) {
	registry := assets.NewRegistry(assets.NewMemoryStore())
	l := ledger.New(ledger.NewMemoryStore())
	fl := &failingLedger{Ledger: l}
	store := NewMemoryStore()
	svc := NewService(store, registry, fl, testEscrow)
	ctx := context.Background()

	asset, _ := registry.Register(ctx, assets.RegisterRequest{Name: "x", Owner: seller})
	_ = l.Deposit(ctx, bidderA, "100")
	_ = l.Deposit(ctx, bidderB, "100")
	a, _ := svc.Create(ctx, CreateRequest{AssetID: asset.ID, Seller: seller, StartingPrice: "10"})
	_, _ = svc.Start(ctx, a.ID, seller)
	_, _ = svc.Bid(ctx, a.ID, bidderA, "15")
	_, _ = svc.Bid(ctx, a.ID, bidderB, "20")

	fl.failCredit = true
	if _, err := svc.Withdraw(ctx, a.ID, bidderA); !errors.Is(err, ErrExternalCall) {
		t.Fatalf("Withdraw = %v, want ErrExternalCall", err)
	}

	// The refundable balance survived the failed payout.
	cur, _ := svc.Get(ctx, a.ID)
	if bal := cur.RefundableOf(bidderA); bal != "15.000000" {
		t.Fatalf("refundable after failed payout = %q, want 15.000000", bal)
	}

	fl.failCredit = false
	amount, err := svc.Withdraw(ctx, a.ID, bidderA)
	if err != nil {
		t.Fatalf("retried Withdraw failed: %v", err)
	}
	if amount != "15.000000" {
		t.Errorf("retried Withdraw = %q, want 15.000000", amount)
	}
}

func TestEnd_SettlementFailureRevertsToActive(t *testing.T) {
	registry := assets.NewRegistry(assets.NewMemoryStore())
	l := ledger.New(ledger.NewMemoryStore())
	fl := &failingLedger{Ledger: l}
	store := NewMemoryStore()
	svc := NewService(store, registry, fl, testEscrow)
	ctx := context.Background()

	asset, _ := registry.Register(ctx, assets.RegisterRequest{Name: "x", Owner: seller})
	_ = l.Deposit(ctx, bidderA, "100")
	a, _ := svc.Create(ctx, CreateRequest{AssetID: asset.ID, Seller: seller, StartingPrice: "10"})
	_, _ = svc.Start(ctx, a.ID, seller)
	_, _ = svc.Bid(ctx, a.ID, bidderA, "15")

	past := time.Now().Add(-time.Minute)
	stored, _ := store.Get(ctx, a.ID)
	stored.EndAt = &past
	_ = store.Update(ctx, stored)

	fl.failCredit = true
	if _, err := svc.End(ctx, a.ID); !errors.Is(err, ErrExternalCall) {
		t.Fatalf("End = %v, want ErrExternalCall", err)
	}

	// The auction is back in Active with the asset still escrowed, so
	// settlement can be retried.
	cur, _ := svc.Get(ctx, a.ID)
	if cur.Status != StatusActive {
		t.Fatalf("Status after failed settlement = %q, want active", cur.Status)
	}
	if owner, _ := registry.Owner(ctx, asset.ID); owner != testEscrow {
		t.Fatalf("asset owner after failed settlement = %q, want escrow", owner)
	}

	fl.failCredit = false
	ended, err := svc.End(ctx, a.ID)
	if err != nil {
		t.Fatalf("retried End failed: %v", err)
	}
	if ended.Winner != bidderA {
		t.Errorf("Winner = %q, want %q", ended.Winner, bidderA)
	}
	if owner, _ := registry.Owner(ctx, asset.ID); owner != bidderA {
		t.Errorf("asset owner = %q, want winner", owner)
	}
}

// TestConcurrentBids hammers one auction from many goroutines and then
// checks fund conservation: everything debited from the bidders is
// either the live highest bid or sitting in a refundable balance.
func TestConcurrentBids(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	a := r.newActiveAuction(t, "1")

	const bidders = 8
	addrs := make([]string, bidders)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("0xbidder%02d", i)
		r.fund(t, addrs[i], "10000")
	}

	var wg sync.WaitGroup
	for i, addr := range addrs {
		for round := 0; round < 5; round++ {
			wg.Add(1)
			go func(addr string, amount int) {
				defer wg.Done()
				_, err := r.service.Bid(ctx, a.ID, addr, fmt.Sprintf("%d", amount))
				if err != nil && !errors.Is(err, ErrBidTooLow) {
					t.Errorf("Bid(%s, %d) = %v", addr, amount, err)
				}
			}(addr, 2+i+round*bidders)
		}
	}
	wg.Wait()

	cur, err := r.service.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// The top amount always lands: no bid above it existed to reject it.
	if cur.HighestBid != "41" {
		t.Errorf("HighestBid = %q, want 41", cur.HighestBid)
	}

	totalDebited := 0.0
	for _, addr := range addrs {
		var bal float64
		fmt.Sscanf(r.available(t, addr), "%f", &bal)
		totalDebited += 10000 - bal
	}
	held := 0.0
	var top float64
	fmt.Sscanf(cur.HighestBid, "%f", &top)
	held += top
	for addr := range cur.Refundable {
		var refund float64
		fmt.Sscanf(cur.RefundableOf(addr), "%f", &refund)
		held += refund
	}
	if totalDebited != held {
		t.Errorf("conservation violated: debited %.6f, held %.6f", totalDebited, held)
	}
}
