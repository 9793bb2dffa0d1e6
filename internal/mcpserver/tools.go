package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Gavel MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolListAuctions = mcp.NewTool("list_auctions",
	mcp.WithDescription(
		"Browse auctions on the Gavel platform. "+
			"Returns each auction's asset, seller, current highest bid, and time remaining. "+
			"Use this to find live auctions before bidding."),
	mcp.WithString("status",
		mcp.Description("Filter by lifecycle state"),
		mcp.Enum("created", "active", "ended")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of auctions to return (default 20)")),
)

var ToolGetAuction = mcp.NewTool("get_auction",
	mcp.WithDescription(
		"Get full details for one auction: current highest bid, deadline, "+
			"settlement outcome if ended, and how much of your money is withdrawable."),
	mcp.WithString("auction_id",
		mcp.Required(),
		mcp.Description("The auction ID from a previous list_auctions result")),
)

var ToolCreateAuction = mcp.NewTool("create_auction",
	mcp.WithDescription(
		"Create an auction for an asset you own. The auction does not accept bids "+
			"until you open it with start_auction. You must be the asset's current owner."),
	mcp.WithString("asset_id",
		mcp.Required(),
		mcp.Description("ID of the asset to sell")),
	mcp.WithString("starting_price",
		mcp.Required(),
		mcp.Description("Reserve price in USDC (e.g. '10.50'). The first bid must exceed this.")),
)

var ToolStartAuction = mcp.NewTool("start_auction",
	mcp.WithDescription(
		"Open bidding on an auction you created. Your asset moves into escrow and "+
			"a fixed 7-day bidding window begins. This cannot be undone."),
	mcp.WithString("auction_id",
		mcp.Required(),
		mcp.Description("The auction ID returned by create_auction")),
)

var ToolPlaceBid = mcp.NewTool("place_bid",
	mcp.WithDescription(
		"Place a bid on a live auction. The amount must strictly exceed the current "+
			"highest bid and is debited from your balance immediately. If someone outbids "+
			"you later, your money becomes withdrawable via withdraw_refund."),
	mcp.WithString("auction_id",
		mcp.Required(),
		mcp.Description("The auction to bid on")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Bid amount in USDC (e.g. '25.00'). Must exceed the current highest bid.")),
)

var ToolWithdrawRefund = mcp.NewTool("withdraw_refund",
	mcp.WithDescription(
		"Reclaim money from bids of yours that were outbid. Returns the full "+
			"withdrawable amount to your balance. Safe to call any time; withdrawing "+
			"nothing is not an error."),
	mcp.WithString("auction_id",
		mcp.Required(),
		mcp.Description("The auction holding your superseded bids")),
)

var ToolSettleAuction = mcp.NewTool("settle_auction",
	mcp.WithDescription(
		"Settle an auction whose bidding window has closed. Anyone may trigger this: "+
			"the asset transfers to the winner and the proceeds to the seller. "+
			"If nobody bid, the asset returns to the seller."),
	mcp.WithString("auction_id",
		mcp.Required(),
		mcp.Description("The auction to settle")),
)

var ToolCheckBalance = mcp.NewTool("check_balance",
	mcp.WithDescription(
		"Check your agent's current USDC balance on Gavel. "+
			"Shows funds available for bidding."),
)
