package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// --- Input types ---

type emptyInput struct{}

type claimsInput struct {
	Limit int `json:"limit" jsonschema:"max number of claims to return (0 = default)"`
}

type walletClaimsInput struct {
	Wallet string `json:"wallet" jsonschema:"wallet address to list local claims for"`
}

type sessionStartInput struct {
	Devices []string `json:"devices" jsonschema:"devices to mine with (low, high)"`
}

type sessionStopInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true — stopping forfeits all accrued reward"`
}

// registerTools adds all faucetminer MCP tools to the server.
func (s *MCPServer) registerTools() {
	// Read-only tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_status",
		Description: "Full node status — ID, uptime, session, distributor balance, totals",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session",
		Description: "Mining session state — progress, accrued reward, devices, hashrate",
	}, s.handleSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_log",
		Description: "Decorative session log stream (info/share/block/reward events)",
	}, s.handleLog)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_claims",
		Description: "Recent claim ledger — feed-derived with local fallback",
	}, s.handleClaims)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_wallet_claims",
		Description: "Locally recorded claims for one wallet",
	}, s.handleWalletClaims)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_total_claimed",
		Description: "Best-effort aggregate of all distributor payouts",
	}, s.handleTotalClaimed)

	// Session control tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session_start",
		Description: "Start a mining session with the given devices",
	}, s.handleSessionStart)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session_pause",
		Description: "Pause the running session — no time accrues while paused",
	}, s.handleSessionPause)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session_resume",
		Description: "Resume a paused session from its snapshot",
	}, s.handleSessionResume)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session_stop",
		Description: "Stop and discard the session — destructive, requires confirm=true",
	}, s.handleSessionStop)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "faucetminer_session_claim",
		Description: "Claim the completed session's reward on-chain",
	}, s.handleSessionClaim)
}

// --- Handlers ---

func (s *MCPServer) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	st := s.daemon.SessionStatus()
	total, count := s.daemon.Reconciler().AggregateTotalClaimed(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "# FaucetMiner Status\n\n")
	fmt.Fprintf(&b, "**Node ID:** `%s`\n", s.daemon.NodeID())
	fmt.Fprintf(&b, "**Uptime:** %s\n", s.daemon.Uptime().Round(time.Second))
	fmt.Fprintf(&b, "**Distributor balance:** %s\n\n", s.daemon.DistributorBalance())

	fmt.Fprintf(&b, "## Session\n")
	for k, v := range st {
		fmt.Fprintf(&b, "- %s: %v\n", k, v)
	}

	fmt.Fprintf(&b, "\n## Ledger\n")
	fmt.Fprintf(&b, "- Total claimed: %s\n", total)
	fmt.Fprintf(&b, "- Claim count: %d\n", count)

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleSession(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	st := s.daemon.SessionStatus()

	var b strings.Builder
	fmt.Fprintf(&b, "# Mining Session\n\n")
	for k, v := range st {
		fmt.Fprintf(&b, "- **%s:** %v\n", k, v)
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleLog(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	events := s.daemon.SessionEvents()

	var b strings.Builder
	fmt.Fprintf(&b, "# Session Log (%d)\n\n", len(events))

	if len(events) == 0 {
		fmt.Fprintf(&b, "No events.\n")
	} else {
		for _, ev := range events {
			ts := time.UnixMilli(ev.Timestamp).Format("15:04:05")
			fmt.Fprintf(&b, "- `%s` [%s] %s\n", ts, ev.Kind, ev.Message)
		}
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleClaims(ctx context.Context, _ *mcp.CallToolRequest, input claimsInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	claims, err := s.daemon.Reconciler().ListRecent(ctx, limit)
	if err != nil {
		return errResult(fmt.Sprintf("failed to list claims: %v", err)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent Claims (%d)\n\n", len(claims))

	if len(claims) == 0 {
		fmt.Fprintf(&b, "No claims.\n")
	} else {
		fmt.Fprintf(&b, "| ID | Wallet | Amount | Claimed At |\n")
		fmt.Fprintf(&b, "|----|--------|--------|------------|\n")
		for _, c := range claims {
			wallet := c.WalletAddress
			if len(wallet) > 16 {
				wallet = wallet[:16] + "..."
			}
			when := time.UnixMilli(c.ClaimedAt).Format("2006-01-02 15:04")
			fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s |\n", c.ID, wallet, c.Amount, when)
		}
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleWalletClaims(_ context.Context, _ *mcp.CallToolRequest, input walletClaimsInput) (*mcp.CallToolResult, any, error) {
	if input.Wallet == "" {
		return errResult("wallet is required"), nil, nil
	}

	claims, err := s.daemon.Reconciler().ListForWallet(input.Wallet)
	if err != nil {
		return errResult(fmt.Sprintf("failed to list claims: %v", err)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Claims for `%s` (%d)\n\n", input.Wallet, len(claims))
	for _, c := range claims {
		when := time.UnixMilli(c.ClaimedAt).Format("2006-01-02 15:04")
		fmt.Fprintf(&b, "- %s — %s (`%s`)\n", when, c.Amount, c.ID)
	}
	if len(claims) == 0 {
		fmt.Fprintf(&b, "No local claims recorded.\n")
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleTotalClaimed(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	total, count := s.daemon.Reconciler().AggregateTotalClaimed(ctx)
	return textResult(fmt.Sprintf("# Total Claimed\n\n- **Total:** %s\n- **Claims:** %d", total, count)), nil, nil
}

// --- Session control ---

func (s *MCPServer) handleSessionStart(ctx context.Context, _ *mcp.CallToolRequest, input sessionStartInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.StartSession(ctx, input.Devices); err != nil {
		return errResult(fmt.Sprintf("start failed: %v", err)), nil, nil
	}
	return textResult("Session started."), nil, nil
}

func (s *MCPServer) handleSessionPause(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.PauseSession(); err != nil {
		return errResult(fmt.Sprintf("pause failed: %v", err)), nil, nil
	}
	return textResult("Session paused."), nil, nil
}

func (s *MCPServer) handleSessionResume(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	if err := s.daemon.ResumeSession(); err != nil {
		return errResult(fmt.Sprintf("resume failed: %v", err)), nil, nil
	}
	return textResult("Session resumed."), nil, nil
}

func (s *MCPServer) handleSessionStop(_ context.Context, _ *mcp.CallToolRequest, input sessionStopInput) (*mcp.CallToolResult, any, error) {
	if !input.Confirm {
		return errResult("stopping forfeits all accrued reward — call again with confirm=true"), nil, nil
	}
	if err := s.daemon.RequestStopSession(); err != nil {
		return errResult(fmt.Sprintf("stop failed: %v", err)), nil, nil
	}
	if err := s.daemon.ConfirmStopSession(); err != nil {
		return errResult(fmt.Sprintf("stop failed: %v", err)), nil, nil
	}
	return textResult("Session stopped and discarded."), nil, nil
}

func (s *MCPServer) handleSessionClaim(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	txid, err := s.daemon.ClaimSession(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("claim failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Claim confirmed.\n\n- **Txid:** `%s`", txid)), nil, nil
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
