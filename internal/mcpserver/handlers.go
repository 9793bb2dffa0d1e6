package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *GavelClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *GavelClient) *Handlers {
	return &Handlers{client: client}
}

// HandleListAuctions browses the auction house.
func (h *Handlers) HandleListAuctions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListAuctions(ctx, status, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list auctions: %v", err)), nil
	}

	text, err := formatAuctionList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auctions: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetAuction returns details for one auction, including the
// agent's own withdrawable amount when there is one.
func (h *Handlers) HandleGetAuction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	auctionID := req.GetString("auction_id", "")
	if auctionID == "" {
		return mcp.NewToolResultError("auction_id is required"), nil
	}

	raw, err := h.client.GetAuction(ctx, auctionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get auction: %v", err)), nil
	}

	a, err := parseAuction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auction: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(formatAuction(a))

	// Best effort; the auction details stand on their own
	if refRaw, err := h.client.GetRefundable(ctx, auctionID); err == nil {
		var ref struct {
			Refundable string `json:"refundable"`
		}
		if json.Unmarshal(refRaw, &ref) == nil && ref.Refundable != "" && ref.Refundable != "0" {
			fmt.Fprintf(&sb, "\nYour withdrawable amount: %s USDC (use withdraw_refund to reclaim it)\n", ref.Refundable)
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleCreateAuction registers a new auction.
func (h *Handlers) HandleCreateAuction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assetID := req.GetString("asset_id", "")
	if assetID == "" {
		return mcp.NewToolResultError("asset_id is required"), nil
	}
	startingPrice := req.GetString("starting_price", "")
	if startingPrice == "" {
		return mcp.NewToolResultError("starting_price is required"), nil
	}

	raw, err := h.client.CreateAuction(ctx, assetID, startingPrice)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create auction: %v", err)), nil
	}

	a, err := parseAuction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auction: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Auction created for asset %s\n"+
			"Auction ID: %s\n"+
			"Starting price: %s USDC\n"+
			"Status: %s\n\n"+
			"Bidding has not opened yet. Use start_auction when you are ready; "+
			"that escrows the asset and opens a 7-day window.",
		a.AssetID, a.ID, a.StartingPrice, a.Status)), nil
}

// HandleStartAuction opens bidding.
func (h *Handlers) HandleStartAuction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	auctionID := req.GetString("auction_id", "")
	if auctionID == "" {
		return mcp.NewToolResultError("auction_id is required"), nil
	}

	raw, err := h.client.StartAuction(ctx, auctionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start auction: %v", err)), nil
	}

	a, err := parseAuction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auction: %v", err)), nil
	}

	deadline := ""
	if a.EndAt != nil {
		deadline = a.EndAt.UTC().Format(time.RFC3339)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Auction %s is live. Your asset is in escrow.\n"+
			"Bidding closes: %s\n"+
			"Starting price: %s USDC",
		a.ID, deadline, a.StartingPrice)), nil
}

// HandlePlaceBid submits a bid.
func (h *Handlers) HandlePlaceBid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	auctionID := req.GetString("auction_id", "")
	if auctionID == "" {
		return mcp.NewToolResultError("auction_id is required"), nil
	}
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}

	raw, err := h.client.PlaceBid(ctx, auctionID, amount)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Bid failed: %v", err)), nil
	}

	a, err := parseAuction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auction: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Bid accepted. You are the highest bidder on auction %s.\n"+
			"Your bid: %s USDC (debited from your balance)\n\n"+
			"If someone outbids you, your money becomes withdrawable via withdraw_refund.",
		a.ID, a.HighestBid)), nil
}

// HandleWithdrawRefund reclaims superseded bids.
func (h *Handlers) HandleWithdrawRefund(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	auctionID := req.GetString("auction_id", "")
	if auctionID == "" {
		return mcp.NewToolResultError("auction_id is required"), nil
	}

	raw, err := h.client.WithdrawRefund(ctx, auctionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Withdrawal failed: %v", err)), nil
	}

	var resp struct {
		Withdrawn string `json:"withdrawn"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse withdrawal: %v", err)), nil
	}

	if resp.Withdrawn == "" || resp.Withdrawn == "0" {
		return mcp.NewToolResultText("Nothing to withdraw from this auction."), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Withdrew %s USDC back to your balance.", resp.Withdrawn)), nil
}

// HandleSettleAuction settles an expired auction.
func (h *Handlers) HandleSettleAuction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	auctionID := req.GetString("auction_id", "")
	if auctionID == "" {
		return mcp.NewToolResultError("auction_id is required"), nil
	}

	raw, err := h.client.SettleAuction(ctx, auctionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Settlement failed: %v", err)), nil
	}

	a, err := parseAuction(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse auction: %v", err)), nil
	}

	if a.Winner == "" {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Auction %s settled with no bids. The asset returned to the seller.", a.ID)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Auction %s settled.\n"+
			"Winner: %s\n"+
			"Sale price: %s USDC\n"+
			"The asset transferred to the winner and the proceeds to the seller.",
		a.ID, a.Winner, a.SalePrice)), nil
}

// HandleCheckBalance returns the agent's USDC balance.
func (h *Handlers) HandleCheckBalance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetBalance(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to check balance: %v", err)), nil
	}

	var resp struct {
		Balance struct {
			Available string `json:"available"`
			TotalIn   string `json:"totalIn"`
			TotalOut  string `json:"totalOut"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse balance: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("USDC Balance:\n")
	fmt.Fprintf(&sb, "  Available: %s USDC\n", resp.Balance.Available)
	if resp.Balance.TotalIn != "" {
		fmt.Fprintf(&sb, "  Total in:  %s USDC\n", resp.Balance.TotalIn)
	}
	if resp.Balance.TotalOut != "" {
		fmt.Fprintf(&sb, "  Total out: %s USDC\n", resp.Balance.TotalOut)
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// --- Formatting helpers ---

type auctionInfo struct {
	ID            string            `json:"id"`
	AssetID       string            `json:"assetId"`
	Seller        string            `json:"seller"`
	StartingPrice string            `json:"startingPrice"`
	Status        string            `json:"status"`
	EndAt         *time.Time        `json:"endAt"`
	HighestBid    string            `json:"highestBid"`
	HighestBidder string            `json:"highestBidder"`
	Refundable    map[string]string `json:"refundable"`
	Winner        string            `json:"winner"`
	SalePrice     string            `json:"salePrice"`
}

func parseAuction(raw json.RawMessage) (auctionInfo, error) {
	var wrapper struct {
		Auction *auctionInfo `json:"auction"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Auction != nil {
		return *wrapper.Auction, nil
	}

	var a auctionInfo
	if err := json.Unmarshal(raw, &a); err != nil || a.ID == "" {
		return auctionInfo{}, fmt.Errorf("unexpected auction response format")
	}
	return a, nil
}

func formatAuction(a auctionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Auction %s (%s)\n", a.ID, a.Status)
	fmt.Fprintf(&sb, "  Asset: %s\n", a.AssetID)
	fmt.Fprintf(&sb, "  Seller: %s\n", a.Seller)
	fmt.Fprintf(&sb, "  Starting price: %s USDC\n", a.StartingPrice)

	if a.HighestBidder != "" {
		fmt.Fprintf(&sb, "  Highest bid: %s USDC by %s\n", a.HighestBid, a.HighestBidder)
	} else {
		sb.WriteString("  No bids yet\n")
	}

	switch a.Status {
	case "active":
		if a.EndAt != nil {
			remaining := time.Until(*a.EndAt)
			if remaining > 0 {
				fmt.Fprintf(&sb, "  Closes: %s (%s remaining)\n",
					a.EndAt.UTC().Format(time.RFC3339), remaining.Round(time.Minute))
			} else {
				sb.WriteString("  Bidding window closed; auction awaits settlement (use settle_auction)\n")
			}
		}
	case "ended":
		if a.Winner != "" {
			fmt.Fprintf(&sb, "  Sold to %s for %s USDC\n", a.Winner, a.SalePrice)
		} else {
			sb.WriteString("  Ended with no bids; asset returned to seller\n")
		}
	}

	return sb.String()
}

func formatAuctionList(raw json.RawMessage) (string, error) {
	var resp struct {
		Auctions []auctionInfo `json:"auctions"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		// Try as direct array
		if err := json.Unmarshal(raw, &resp.Auctions); err != nil {
			return "", fmt.Errorf("unexpected auctions response format")
		}
	}

	if len(resp.Auctions) == 0 {
		return "No auctions found matching your criteria.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d auction(s):\n\n", len(resp.Auctions))
	for i, a := range resp.Auctions {
		fmt.Fprintf(&sb, "%d. %s", i+1, formatAuction(a))
		if i < len(resp.Auctions)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
