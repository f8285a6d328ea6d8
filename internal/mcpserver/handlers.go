package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/nexaguard/internal/history"
	"github.com/mbd888/nexaguard/internal/risk"
	"github.com/mbd888/nexaguard/internal/validation"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeWallet scores a wallet address.
func (h *Handlers) HandleAnalyzeWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := strings.TrimSpace(req.GetString("address", ""))
	if errs := validation.Validate(
		validation.Required("address", address),
		validation.ValidAddress("address", address),
	); errs != nil {
		return mcp.NewToolResultError(errs.Error()), nil
	}

	a, err := h.client.AnalyzeWallet(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze wallet: %v", err)), nil
	}
	return mcp.NewToolResultText(formatWallet(a)), nil
}

// HandleAnalyzeToken scores a coin type.
func (h *Handlers) HandleAnalyzeToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coinType := strings.TrimSpace(req.GetString("coin_type", ""))
	if errs := validation.Validate(
		validation.Required("coin_type", coinType),
		validation.MaxLength("coin_type", coinType, validation.MaxStringLength),
		validation.ValidCoinType("coin_type", coinType),
	); errs != nil {
		return mcp.NewToolResultError(errs.Error()), nil
	}

	a, err := h.client.AnalyzeToken(ctx, coinType)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze token: %v", err)), nil
	}
	return mcp.NewToolResultText(formatToken(a)), nil
}

// HandleGetRecentHistory lists recent analyses.
func (h *Handlers) HandleGetRecentHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)

	entries, err := h.client.History(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get history: %v", err)), nil
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return mcp.NewToolResultText(formatHistory(entries)), nil
}

func formatWallet(a *risk.WalletAssessment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Wallet: %s\n", a.Address)
	fmt.Fprintf(&sb, "Risk: %d/100 (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(&sb, "Assessment: %s\n\n", a.Description)
	sb.WriteString("Details:\n")
	fmt.Fprintf(&sb, "  Transactions sampled: %d\n", a.Details.Transactions)
	fmt.Fprintf(&sb, "  Tokens created:       %d\n", a.Details.CreatedTokens)
	fmt.Fprintf(&sb, "  Scam interactions:    %d\n", a.Details.ScamInteractions)
	fmt.Fprintf(&sb, "  SUI balance:          %s\n", a.Details.SuiBalance)
	if a.AIInsight != "" {
		fmt.Fprintf(&sb, "\nSignals: %s\n", a.AIInsight)
	}
	return sb.String()
}

func formatToken(a *risk.TokenAssessment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Token: %s (%s)\n", a.Name, a.Symbol)
	fmt.Fprintf(&sb, "Coin type: %s\n", a.CoinType)
	fmt.Fprintf(&sb, "Total supply: %s\n", a.TotalSupply)
	fmt.Fprintf(&sb, "Risk: %d/100 (%s)\n", a.RiskScore, a.RiskLevel)
	fmt.Fprintf(&sb, "Assessment: %s\n\n", a.Description)
	sb.WriteString("Risk factors:\n")
	fmt.Fprintf(&sb, "  Mint authority:   %s\n", a.Risks.MintAuthority)
	fmt.Fprintf(&sb, "  Freeze authority: %s\n", a.Risks.FreezeAuthority)
	fmt.Fprintf(&sb, "  Upgradeable:      %t\n", a.Risks.IsUpgradeable)
	if len(a.Risks.MatchedFunctions) > 0 {
		fmt.Fprintf(&sb, "  Matched functions: %s\n", strings.Join(a.Risks.MatchedFunctions, ", "))
	}
	return sb.String()
}

func formatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No analyses have been run yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent analyses (%d):\n\n", len(entries))
	for i, e := range entries {
		ts := time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339)
		fmt.Fprintf(&sb, "%d. [%s] %s score %d at %s\n", i+1, e.Type, e.Address, e.RiskScore, ts)
	}
	return sb.String()
}
