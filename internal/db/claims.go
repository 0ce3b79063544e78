package db

// Claim is a locally recorded fallback ledger entry. Timestamps are
// Unix milliseconds to match the feed-derived view.
type Claim struct {
	ID              string  `json:"id"`
	WalletAddress   string  `json:"walletAddress"`
	Amount          string  `json:"amount"`
	TransactionHash *string `json:"transactionHash,omitempty"`
	ClaimedAt       int64   `json:"claimedAt"`
}

func InsertClaim(c *Claim) error {
	_, err := db.Exec(`
		INSERT INTO claims (id, wallet_address, amount, transaction_hash, claimed_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.WalletAddress, c.Amount, c.TransactionHash, c.ClaimedAt)
	return err
}

func GetRecentClaims(limit int) ([]Claim, error) {
	rows, err := db.Query(`
		SELECT id, wallet_address, amount, transaction_hash, claimed_at
		FROM claims
		ORDER BY claimed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		var c Claim
		if err := rows.Scan(&c.ID, &c.WalletAddress, &c.Amount, &c.TransactionHash, &c.ClaimedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// GetClaimsByWallet matches the address case-insensitively, newest first.
func GetClaimsByWallet(wallet string) ([]Claim, error) {
	rows, err := db.Query(`
		SELECT id, wallet_address, amount, transaction_hash, claimed_at
		FROM claims
		WHERE wallet_address = ? COLLATE NOCASE
		ORDER BY claimed_at DESC`, wallet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		var c Claim
		if err := rows.Scan(&c.ID, &c.WalletAddress, &c.Amount, &c.TransactionHash, &c.ClaimedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func CountClaims() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&n)
	return n, err
}
