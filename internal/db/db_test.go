package db

import (
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if err := Open(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(Close)
}

func TestOpenIdempotent(t *testing.T) {
	setupTestDB(t)
	// Second open against a live handle is a no-op
	if err := Open(filepath.Join(t.TempDir(), "other.db")); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if DB() == nil {
		t.Fatal("DB() returned nil after Open")
	}
}

func TestClaimsRoundTrip(t *testing.T) {
	setupTestDB(t)

	tx := "0xfeed01"
	claims := []Claim{
		{ID: "c1", WalletAddress: "0xAAA", Amount: "200.000000", TransactionHash: &tx, ClaimedAt: 1000},
		{ID: "c2", WalletAddress: "0xBBB", Amount: "200.000000", ClaimedAt: 3000},
		{ID: "c3", WalletAddress: "0xaaa", Amount: "200.000000", ClaimedAt: 2000},
	}
	for i := range claims {
		if err := InsertClaim(&claims[i]); err != nil {
			t.Fatalf("InsertClaim(%s): %v", claims[i].ID, err)
		}
	}

	recent, err := GetRecentClaims(10)
	if err != nil {
		t.Fatalf("GetRecentClaims: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	// Newest first
	if recent[0].ID != "c2" || recent[1].ID != "c3" || recent[2].ID != "c1" {
		t.Errorf("order = %s,%s,%s, want c2,c3,c1", recent[0].ID, recent[1].ID, recent[2].ID)
	}
	if recent[2].TransactionHash == nil || *recent[2].TransactionHash != tx {
		t.Errorf("c1 txHash = %v, want %s", recent[2].TransactionHash, tx)
	}
	if recent[0].TransactionHash != nil {
		t.Errorf("c2 txHash = %v, want nil", recent[0].TransactionHash)
	}

	limited, err := GetRecentClaims(2)
	if err != nil {
		t.Fatalf("GetRecentClaims(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited = %d, want 2", len(limited))
	}

	n, err := CountClaims()
	if err != nil {
		t.Fatalf("CountClaims: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestClaimsByWalletCaseInsensitive(t *testing.T) {
	setupTestDB(t)

	for _, c := range []Claim{
		{ID: "c1", WalletAddress: "0xAbCd", Amount: "200.000000", ClaimedAt: 1000},
		{ID: "c2", WalletAddress: "0xABCD", Amount: "200.000000", ClaimedAt: 2000},
		{ID: "c3", WalletAddress: "0xother", Amount: "200.000000", ClaimedAt: 3000},
	} {
		c := c
		if err := InsertClaim(&c); err != nil {
			t.Fatalf("InsertClaim(%s): %v", c.ID, err)
		}
	}

	claims, err := GetClaimsByWallet("0xabcd")
	if err != nil {
		t.Fatalf("GetClaimsByWallet: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("claims = %d, want 2 case-insensitive matches", len(claims))
	}
	if claims[0].ID != "c2" {
		t.Errorf("first = %s, want newest c2", claims[0].ID)
	}
}

func TestConfigUpsert(t *testing.T) {
	setupTestDB(t)

	if _, err := GetConfig("node_id"); err == nil {
		t.Error("GetConfig on missing key returned nil error")
	}

	if err := SetConfig("node_id", "abc"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := SetConfig("node_id", "def"); err != nil {
		t.Fatalf("SetConfig overwrite: %v", err)
	}

	val, err := GetConfig("node_id")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if val != "def" {
		t.Errorf("value = %s, want def", val)
	}
}
