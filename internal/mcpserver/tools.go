package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Nexa Guard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeWallet = mcp.NewTool("analyze_wallet",
	mcp.WithDescription(
		"Score a Sui wallet address for risk. "+
			"Looks at the 50 most recent transactions, tokens the wallet created, and its SUI balance. "+
			"Returns a 0-100 score with a LOW/MEDIUM/HIGH/CRITICAL level and the reasons behind it."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("The wallet address (e.g. '0x1234...')")),
)

var ToolAnalyzeToken = mcp.NewTool("analyze_token",
	mcp.WithDescription(
		"Score a Sui coin type for rug-pull risk. "+
			"Inspects the defining package for mint and freeze functions and checks whether it can still be upgraded. "+
			"Returns metadata, total supply, the detected risk factors, and a 0-100 score."),
	mcp.WithString("coin_type",
		mcp.Required(),
		mcp.Description("Fully qualified coin type in Package::Module::Symbol form (e.g. '0x2::sui::SUI')")),
)

var ToolGetRecentHistory = mcp.NewTool("get_recent_history",
	mcp.WithDescription(
		"List the most recent wallet and token analyses run on this Nexa Guard backend, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries to return (default: all retained, at most 20)")),
)
