package mcpserver

import (
	"context"
	"time"

	"faucetminer/internal/ledger"
	"faucetminer/internal/session"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DaemonInfo provides access to daemon state for MCP tools.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	SessionStatus() map[string]interface{}
	SessionEvents() []session.Event
	DistributorBalance() string
	StartSession(ctx context.Context, devices []string) error
	PauseSession() error
	ResumeSession() error
	RequestStopSession() error
	ConfirmStopSession() error
	ClaimSession(ctx context.Context) (string, error)
	Reconciler() *ledger.Reconciler
}

// MCPServer wraps the MCP protocol server with faucetminer tools.
type MCPServer struct {
	server *mcp.Server
	daemon DaemonInfo
}

// New creates an MCP server with all faucetminer tools registered.
func New(version string, daemon DaemonInfo) *MCPServer {
	s := &MCPServer{
		daemon: daemon,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "faucetminer",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: "FaucetMiner simulated mining node. Provides tools to inspect and control the mining session and to query the reconciled claim ledger.",
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
