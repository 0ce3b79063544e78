package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"
)

// TokenTransfer is one record from the third-party transfer feed. The feed
// returns every numeric field as a string.
type TokenTransfer struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	TimeStamp       string `json:"timeStamp"`
	ContractAddress string `json:"contractAddress"`
}

type feedEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"` // array on success, message string on error
}

// FeedClient queries an etherscan-compatible account API.
type FeedClient struct {
	BaseURL string
	APIKey  string // optional
	client  *http.Client
}

// NewFeedClient creates a feed client for the given API base URL.
func NewFeedClient(baseURL, apiKey string) *FeedClient {
	return &FeedClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// TokenTransfers fetches the newest token transfers touching an address.
func (f *FeedClient) TokenTransfers(ctx context.Context, address string, offset int) ([]TokenTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("address", address)
	q.Set("page", "1")
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("sort", "desc")
	if f.APIKey != "" {
		q.Set("apikey", f.APIKey)
	}

	env, err := f.get(ctx, q)
	if err != nil {
		return nil, err
	}

	var transfers []TokenTransfer
	if err := json.Unmarshal(env.Result, &transfers); err != nil {
		return nil, fmt.Errorf("decode feed result: %w", err)
	}
	return transfers, nil
}

// TokenBalance fetches a token balance in smallest units. Display only.
func (f *FeedClient) TokenBalance(ctx context.Context, token, address string) (*big.Int, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokenbalance")
	q.Set("contractaddress", token)
	q.Set("address", address)
	q.Set("tag", "latest")
	if f.APIKey != "" {
		q.Set("apikey", f.APIKey)
	}

	env, err := f.get(ctx, q)
	if err != nil {
		return nil, err
	}

	var raw string
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("decode balance result: %w", err)
	}
	bal, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", raw)
	}
	return bal, nil
}

func (f *FeedClient) get(ctx context.Context, q url.Values) (*feedEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	var env feedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	if env.Status != "1" {
		return nil, fmt.Errorf("feed error: %s", env.Message)
	}
	return &env, nil
}
