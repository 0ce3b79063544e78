package ledger

import (
	"math/big"
	"strconv"
	"strings"

	"faucetminer/internal/db"
)

// ClaimFilter picks out the transfers that are actual faucet payouts:
// sent by the distributor, in the expected token, for exactly the fixed
// claim amount. Partial transfers, self-transfers, and wrong-token noise in
// the feed never count.
type ClaimFilter struct {
	Distributor string
	Token       string
	Decimals    int
	amount      *big.Int // fixed claim amount in smallest units
}

// NewClaimFilter builds the filter for claimAmount whole tokens.
func NewClaimFilter(distributor, token string, claimAmount int64, decimals int) *ClaimFilter {
	amount := new(big.Int).Mul(
		big.NewInt(claimAmount),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil),
	)
	return &ClaimFilter{
		Distributor: distributor,
		Token:       token,
		Decimals:    decimals,
		amount:      amount,
	}
}

// Matches applies the payout signature. A value that fails integer parsing
// excludes the record; it is not an error.
func (f *ClaimFilter) Matches(t TokenTransfer) bool {
	if !strings.EqualFold(t.From, f.Distributor) {
		return false
	}
	if !strings.EqualFold(t.ContractAddress, f.Token) {
		return false
	}
	v, ok := new(big.Int).SetString(t.Value, 10)
	if !ok {
		return false
	}
	return v.Cmp(f.amount) == 0
}

// Entry maps a matching transfer to a ledger entry. Feed-derived entries
// are never written back to storage; the feed stays the source of truth.
func (f *ClaimFilter) Entry(t TokenTransfer) db.Claim {
	id := t.Hash
	if len(id) > 10 {
		id = id[:10]
	}

	v, _ := new(big.Int).SetString(t.Value, 10)
	amount := FormatUnits(v, f.Decimals, f.Decimals)

	var claimedAt int64
	if secs, err := strconv.ParseInt(t.TimeStamp, 10, 64); err == nil {
		claimedAt = secs * 1000
	}

	hash := t.Hash
	return db.Claim{
		ID:              id,
		WalletAddress:   t.To,
		Amount:          amount,
		TransactionHash: &hash,
		ClaimedAt:       claimedAt,
	}
}
