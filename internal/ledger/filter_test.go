package ledger

import (
	"math/big"
	"testing"
)

const (
	testDistributor = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	testToken       = "0x1111111254EEB25477B68fb85Ed929f73A960582"
)

func testFilter() *ClaimFilter {
	return NewClaimFilter(testDistributor, testToken, 200, 6)
}

func payoutTransfer() TokenTransfer {
	return TokenTransfer{
		Hash:            "0xdeadbeefcafe0123456789",
		From:            testDistributor,
		To:              "0x2222222222222222222222222222222222222222",
		Value:           "200000000",
		TokenSymbol:     "FCT",
		TokenDecimal:    "6",
		TimeStamp:       "1755000000",
		ContractAddress: testToken,
	}
}

func TestFilterMatches(t *testing.T) {
	f := testFilter()

	tests := []struct {
		name   string
		mutate func(*TokenTransfer)
		want   bool
	}{
		{"exact payout", func(*TokenTransfer) {}, true},
		{"lowercased sender", func(tr *TokenTransfer) { tr.From = "0xab5801a7d398351b8be11c439e05c5b3259aec9b" }, true},
		{"uppercased token", func(tr *TokenTransfer) { tr.ContractAddress = "0X1111111254EEB25477B68FB85ED929F73A960582" }, true},
		{"wrong sender", func(tr *TokenTransfer) { tr.From = "0x3333333333333333333333333333333333333333" }, false},
		{"wrong token", func(tr *TokenTransfer) { tr.ContractAddress = "0x4444444444444444444444444444444444444444" }, false},
		{"partial amount", func(tr *TokenTransfer) { tr.Value = "199000000" }, false},
		{"double amount", func(tr *TokenTransfer) { tr.Value = "400000000" }, false},
		{"unparsable value", func(tr *TokenTransfer) { tr.Value = "200.000000" }, false},
		{"empty value", func(tr *TokenTransfer) { tr.Value = "" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := payoutTransfer()
			tc.mutate(&tr)
			if got := f.Matches(tr); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterEntry(t *testing.T) {
	f := testFilter()
	tr := payoutTransfer()

	entry := f.Entry(tr)
	if entry.ID != "0xdeadbeef" {
		t.Errorf("ID = %s, want transaction hash prefix", entry.ID)
	}
	if entry.WalletAddress != tr.To {
		t.Errorf("WalletAddress = %s, want %s", entry.WalletAddress, tr.To)
	}
	if entry.Amount != "200.000000" {
		t.Errorf("Amount = %s, want 200.000000", entry.Amount)
	}
	if entry.TransactionHash == nil || *entry.TransactionHash != tr.Hash {
		t.Errorf("TransactionHash = %v, want %s", entry.TransactionHash, tr.Hash)
	}
	if entry.ClaimedAt != 1755000000000 {
		t.Errorf("ClaimedAt = %d, want feed seconds as millis", entry.ClaimedAt)
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals int
		places   int
		want     string
	}{
		{"0", 6, 2, "0.00"},
		{"200000000", 6, 6, "200.000000"},
		{"200000000", 6, 2, "200.00"},
		{"600000000", 6, 2, "600.00"},
		{"123456789", 6, 6, "123.456789"},
		{"123456789", 6, 3, "123.456"},
		{"50000", 6, 6, "0.050000"},
		{"42", 0, 0, "42"},
		{"1", 6, 8, "0.00000100"},
	}
	for _, tc := range tests {
		v, _ := new(big.Int).SetString(tc.value, 10)
		if got := FormatUnits(v, tc.decimals, tc.places); got != tc.want {
			t.Errorf("FormatUnits(%s, %d, %d) = %s, want %s", tc.value, tc.decimals, tc.places, got, tc.want)
		}
	}
}

func TestIsFixedPointAmount(t *testing.T) {
	valid := []string{"200", "200.000000", "0", "0.5", "1234567890.123"}
	for _, s := range valid {
		if !isFixedPointAmount(s) {
			t.Errorf("isFixedPointAmount(%q) = false, want true", s)
		}
	}

	invalid := []string{"", ".", "200.", ".5", "-200", "+200", "2e5", "200,00", "abc", "20 0"}
	for _, s := range invalid {
		if isFixedPointAmount(s) {
			t.Errorf("isFixedPointAmount(%q) = true, want false", s)
		}
	}
}
