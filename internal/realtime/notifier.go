package realtime

import (
	"time"

	"github.com/mbd888/gavel/internal/auction"
)

// Notifier bridges auction lifecycle callbacks onto the hub's broadcast
// channel. Broadcast never blocks, so the auction's critical section is
// never held up by slow WebSocket clients.
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a notifier publishing to the given hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) AuctionStarted(a *auction.Auction) {
	n.hub.Broadcast(&Event{
		Type:      EventAuctionStarted,
		AuctionID: a.ID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"assetId":       a.AssetID,
			"seller":        a.Seller,
			"startingPrice": a.StartingPrice,
			"endAt":         a.EndAt,
		},
	})
}

func (n *Notifier) BidPlaced(a *auction.Auction, bidder, amount string) {
	n.hub.Broadcast(&Event{
		Type:      EventBidPlaced,
		AuctionID: a.ID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"seller": a.Seller,
			"bidder": bidder,
			"amount": amount,
		},
	})
}

func (n *Notifier) RefundWithdrawn(auctionID, addr, amount string) {
	n.hub.Broadcast(&Event{
		Type:      EventRefund,
		AuctionID: auctionID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"bidder": addr,
			"amount": amount,
		},
	})
}

func (n *Notifier) AuctionEnded(a *auction.Auction) {
	n.hub.Broadcast(&Event{
		Type:      EventAuctionEnded,
		AuctionID: a.ID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"seller":    a.Seller,
			"winner":    a.Winner,
			"salePrice": a.SalePrice,
		},
	})
}
