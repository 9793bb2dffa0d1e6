package auction

import (
	"errors"
	"testing"
	"time"
)

// The instant the deadline hits, bidding closes and settlement opens.
func TestDeadlineBoundary(t *testing.T) {
	deadline := time.Now()
	a := &Auction{
		Status:     StatusActive,
		Seller:     seller,
		HighestBid: "10",
		EndAt:      &deadline,
	}

	if err := a.checkBid(deadline, "15"); !errors.Is(err, ErrExpired) {
		t.Errorf("checkBid at deadline = %v, want ErrExpired", err)
	}
	if err := a.checkEnd(deadline); err != nil {
		t.Errorf("checkEnd at deadline = %v, want nil", err)
	}

	before := deadline.Add(-time.Second)
	if err := a.checkBid(before, "15"); err != nil {
		t.Errorf("checkBid before deadline = %v, want nil", err)
	}
	if err := a.checkEnd(before); !errors.Is(err, ErrTooEarly) {
		t.Errorf("checkEnd before deadline = %v, want ErrTooEarly", err)
	}
}

func TestRefundableOf(t *testing.T) {
	a := &Auction{}
	if got := a.RefundableOf("0xnobody"); got != "0" {
		t.Errorf("nil map reads %q, want 0", got)
	}

	a.Refundable = map[string]string{"0xa": "15.000000"}
	if got := a.RefundableOf("0xa"); got != "15.000000" {
		t.Errorf("RefundableOf = %q", got)
	}
	if got := a.RefundableOf("0xb"); got != "0" {
		t.Errorf("absent key reads %q, want 0", got)
	}
}

func TestApplyBid_FirstBidHasNoRefund(t *testing.T) {
	a := &Auction{Status: StatusActive, HighestBid: "10", HighestBidder: NoBidder}

	prevBidder, prevBid := a.applyBid(time.Now(), "0xa", "15")
	if prevBidder != NoBidder || prevBid != "" {
		t.Errorf("first bid superseded (%q, %q), want nothing", prevBidder, prevBid)
	}
	if len(a.Refundable) != 0 {
		t.Errorf("first bid created refundable entries: %v", a.Refundable)
	}
}
