package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewMCPServer creates a configured MCP server with all Nexa Guard tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("nexaguard", Version)
	h := NewHandlers(NewClient(cfg))

	s.AddTool(ToolAnalyzeWallet, h.HandleAnalyzeWallet)
	s.AddTool(ToolAnalyzeToken, h.HandleAnalyzeToken)
	s.AddTool(ToolGetRecentHistory, h.HandleGetRecentHistory)

	return s
}
