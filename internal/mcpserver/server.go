package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Gavel tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("gavel", "1.0.0")
	client := NewGavelClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolListAuctions, h.HandleListAuctions)
	s.AddTool(ToolGetAuction, h.HandleGetAuction)
	s.AddTool(ToolCreateAuction, h.HandleCreateAuction)
	s.AddTool(ToolStartAuction, h.HandleStartAuction)
	s.AddTool(ToolPlaceBid, h.HandlePlaceBid)
	s.AddTool(ToolWithdrawRefund, h.HandleWithdrawRefund)
	s.AddTool(ToolSettleAuction, h.HandleSettleAuction)
	s.AddTool(ToolCheckBalance, h.HandleCheckBalance)

	return s
}
