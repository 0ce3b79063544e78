package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"faucetminer/internal/db"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if err := db.Open(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(db.Close)
}

// newFeedServer serves a fixed transfer list in the feed envelope format.
func newFeedServer(t *testing.T, transfers []TokenTransfer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, _ := json.Marshal(transfers)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "1",
			"message": "OK",
			"result":  json.RawMessage(result),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestReconciler(feedURL string) *Reconciler {
	feed := NewFeedClient(feedURL, "")
	r := NewReconciler(feed, testFilter(), 25, 1000)
	r.now = func() time.Time { return time.UnixMilli(1755000123456) }
	return r
}

func TestListRecentPrefersFeed(t *testing.T) {
	setupTestDB(t)

	noise := payoutTransfer()
	noise.Value = "5000000" // partial transfer, not a payout
	wrongToken := payoutTransfer()
	wrongToken.ContractAddress = "0x9999999999999999999999999999999999999999"

	srv := newFeedServer(t, []TokenTransfer{payoutTransfer(), noise, wrongToken})
	r := newTestReconciler(srv.URL)

	// A local entry exists but must not be served while the feed is healthy
	if _, err := r.RecordLocalClaim("0xlocal", "200.000000", nil); err != nil {
		t.Fatalf("RecordLocalClaim: %v", err)
	}

	claims, err := r.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1 (noise filtered): %+v", len(claims), claims)
	}
	if claims[0].Amount != "200.000000" {
		t.Errorf("amount = %s, want 200.000000", claims[0].Amount)
	}
	if claims[0].WalletAddress == "0xlocal" {
		t.Error("local fallback entry served while feed healthy")
	}
}

func TestListRecentRespectsLimit(t *testing.T) {
	setupTestDB(t)

	var transfers []TokenTransfer
	for i := 0; i < 8; i++ {
		tr := payoutTransfer()
		tr.Hash = tr.Hash + string(rune('a'+i))
		transfers = append(transfers, tr)
	}
	srv := newFeedServer(t, transfers)
	r := newTestReconciler(srv.URL)

	claims, err := r.ListRecent(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(claims) != 3 {
		t.Errorf("claims = %d, want limit of 3", len(claims))
	}
}

func TestListRecentFallsBackWhenFeedDown(t *testing.T) {
	setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	r := newTestReconciler(srv.URL)
	if _, err := r.RecordLocalClaim("0xfallback", "200.000000", nil); err != nil {
		t.Fatalf("RecordLocalClaim: %v", err)
	}

	claims, err := r.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent must not surface feed errors: %v", err)
	}
	if len(claims) != 1 || claims[0].WalletAddress != "0xfallback" {
		t.Errorf("claims = %+v, want the local fallback entry", claims)
	}
}

func TestListRecentFallsBackOnFeedErrorStatus(t *testing.T) {
	setupTestDB(t)

	// HTTP 200 but feed-level error envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "0",
			"message": "NOTOK",
			"result":  "Max rate limit reached",
		})
	}))
	t.Cleanup(srv.Close)

	r := newTestReconciler(srv.URL)
	claims, err := r.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("claims = %+v, want empty slice from empty store", claims)
	}
	if claims == nil {
		t.Error("claims is nil, want non-nil empty slice")
	}
}

func TestRecordLocalClaimValidation(t *testing.T) {
	setupTestDB(t)
	srv := newFeedServer(t, nil)
	r := newTestReconciler(srv.URL)

	for _, tc := range []struct {
		name   string
		wallet string
		amount string
	}{
		{"empty wallet", "", "200.000000"},
		{"whitespace wallet", "   ", "200.000000"},
		{"empty amount", "0xwallet", ""},
		{"signed amount", "0xwallet", "-200"},
		{"exponent amount", "0xwallet", "2e2"},
		{"trailing dot", "0xwallet", "200."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.RecordLocalClaim(tc.wallet, tc.amount, nil); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	if n, _ := db.CountClaims(); n != 0 {
		t.Errorf("claims stored = %d, want 0 after rejected input", n)
	}
}

func TestRecordLocalClaimRoundTrip(t *testing.T) {
	setupTestDB(t)
	srv := newFeedServer(t, nil)
	r := newTestReconciler(srv.URL)

	tx := "0xabc123"
	entry, err := r.RecordLocalClaim("  0xWalletMixedCase  ", "200.000000", &tx)
	if err != nil {
		t.Fatalf("RecordLocalClaim: %v", err)
	}
	if entry.ID == "" {
		t.Error("entry.ID is empty, want generated id")
	}
	if entry.WalletAddress != "0xWalletMixedCase" {
		t.Errorf("wallet = %q, want trimmed input", entry.WalletAddress)
	}
	if entry.ClaimedAt != 1755000123456 {
		t.Errorf("claimedAt = %d, want injected clock", entry.ClaimedAt)
	}

	// Wallet lookup is case-insensitive
	claims, err := r.ListForWallet("0XWALLETMIXEDCASE")
	if err != nil {
		t.Fatalf("ListForWallet: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1", len(claims))
	}
	if claims[0].TransactionHash == nil || *claims[0].TransactionHash != tx {
		t.Errorf("txHash = %v, want %s", claims[0].TransactionHash, tx)
	}
}

func TestListForWalletValidation(t *testing.T) {
	setupTestDB(t)
	srv := newFeedServer(t, nil)
	r := newTestReconciler(srv.URL)

	if _, err := r.ListForWallet("  "); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	claims, err := r.ListForWallet("0xnobody")
	if err != nil {
		t.Fatalf("ListForWallet: %v", err)
	}
	if claims == nil || len(claims) != 0 {
		t.Errorf("claims = %v, want non-nil empty slice", claims)
	}
}

func TestAggregateTotalClaimed(t *testing.T) {
	setupTestDB(t)

	noise := payoutTransfer()
	noise.Value = "123"
	srv := newFeedServer(t, []TokenTransfer{
		payoutTransfer(), payoutTransfer(), payoutTransfer(), noise,
	})
	r := newTestReconciler(srv.URL)

	total, count := r.AggregateTotalClaimed(context.Background())
	if total != "600.00" {
		t.Errorf("total = %s, want 600.00", total)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestAggregateTotalClaimedFeedDown(t *testing.T) {
	setupTestDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	r := newTestReconciler(srv.URL)
	total, count := r.AggregateTotalClaimed(context.Background())
	if total != "0.00" || count != 0 {
		t.Errorf("total = %s count = %d, want 0.00 and 0 on feed failure", total, count)
	}
}
