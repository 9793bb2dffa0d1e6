package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Timer periodically sweeps for auctions past their deadline and settles
// them. Settlement is permissionless, so running it here is just a
// convenience for auctions nobody bothered to end by hand.
type Timer struct {
	service  *Service
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewTimer creates a new settlement sweeper.
func NewTimer(service *Service, store Store, interval time.Duration, logger *slog.Logger) *Timer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Timer{
		service:  service,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the settlement loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeSettleExpired(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeSettleExpired(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in settlement timer", "panic", fmt.Sprint(r))
		}
	}()
	t.settleExpired(ctx)
}

func (t *Timer) settleExpired(ctx context.Context) {
	expired, err := t.store.ListExpired(ctx, time.Now(), 100)
	if err != nil {
		t.logger.Warn("failed to list expired auctions", "error", err)
		return
	}

	for _, a := range expired {
		settled, err := t.service.End(ctx, a.ID)
		if err != nil {
			// Someone may have settled it between the list and the call.
			if errors.Is(err, ErrAlreadyEnded) {
				continue
			}
			t.logger.Warn("failed to settle expired auction",
				"auctionId", a.ID,
				"error", err,
			)
			continue
		}
		t.logger.Info("settled expired auction",
			"auctionId", a.ID,
			"seller", settled.Seller,
			"winner", settled.Winner,
			"salePrice", settled.SalePrice,
		)
	}
}
