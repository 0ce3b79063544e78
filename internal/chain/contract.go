package chain

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// ClaimInfo is the distributor contract's per-wallet view.
type ClaimInfo struct {
	TotalClaimed       float64 `json:"total_claimed"`
	RemainingAllowance float64 `json:"remaining_allowance"`
	NextClaimAt        int64   `json:"next_claim_at"` // Unix seconds, 0 = immediately
}

// ErrUnreachable marks transport-level failures talking to the
// distributor, as opposed to the distributor rejecting a claim.
var ErrUnreachable = errors.New("contract unreachable")

// ContractClient talks to the external distributor contract. The contract
// enforces the per-wallet lifetime cap and pays a fixed amount per claim;
// this process only consults it.
type ContractClient interface {
	ClaimInfo(ctx context.Context, wallet string) (*ClaimInfo, error)
	Claim(ctx context.Context, wallet string) (string, error)
}

var defaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ── HTTP contract client ─────────────────────────────────────────
// Calls a distributor bridge service that holds the contract keys and
// submits the actual on-chain transaction.

// HTTPContractClient reaches the distributor service over HTTP.
type HTTPContractClient struct {
	Endpoint string // e.g. "http://127.0.0.1:8431"
	client   *http.Client
}

// NewHTTPContractClient creates a client for the distributor service.
func NewHTTPContractClient(endpoint string) *HTTPContractClient {
	return &HTTPContractClient{
		Endpoint: endpoint,
		client:   defaultHTTPClient,
	}
}

// ClaimInfo fetches the wallet's lifetime totals and remaining allowance.
func (c *HTTPContractClient) ClaimInfo(ctx context.Context, wallet string) (*ClaimInfo, error) {
	u := fmt.Sprintf("%s/claim-info?wallet=%s", c.Endpoint, url.QueryEscape(wallet))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var info ClaimInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode claim info: %w", err)
	}
	return &info, nil
}

type claimRequest struct {
	Wallet string `json:"wallet"`
}

type claimResponse struct {
	Success bool   `json:"success"`
	Txid    string `json:"txid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Claim submits the claim transaction and waits for confirmation. A
// rejected or reverted transaction comes back as an error with the
// service's message verbatim.
func (c *HTTPContractClient) Claim(ctx context.Context, wallet string) (string, error) {
	body, err := json.Marshal(claimRequest{Wallet: wallet})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/claim", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var result claimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode claim response: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			result.Error = fmt.Sprintf("claim failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%s", result.Error)
	}
	return result.Txid, nil
}

// ── No-op contract client ────────────────────────────────────────
// Used when no distributor endpoint is configured (logs only).

// NoopContractClient confirms claims locally without touching a chain.
type NoopContractClient struct {
	MaxReward float64
}

// ClaimInfo reports an unlimited allowance.
func (n *NoopContractClient) ClaimInfo(ctx context.Context, wallet string) (*ClaimInfo, error) {
	return &ClaimInfo{RemainingAllowance: n.MaxReward * 1000}, nil
}

// Claim fabricates a transaction hash.
func (n *NoopContractClient) Claim(ctx context.Context, wallet string) (string, error) {
	buf := make([]byte, 32)
	rand.Read(buf)
	txid := "0x" + hex.EncodeToString(buf)
	log.Printf("[chain] Claim confirmed locally (no distributor configured): %s", txid)
	return txid, nil
}
