package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"faucetminer/internal/db"

	"github.com/google/uuid"
)

// ErrValidation marks user-correctable input errors on the claim-report
// path. Feed failures never surface through the reconciler's read methods.
var ErrValidation = errors.New("validation failed")

// Reconciler reconstructs the authoritative claim history from the transfer
// feed and keeps a local fallback ledger for when the feed is unreachable.
type Reconciler struct {
	preferred         Source
	fallback          Source
	feed              *FeedClient
	filter            *ClaimFilter
	aggregatePageSize int
	now               func() time.Time
}

// NewReconciler wires the default preferred/fallback pair: feed-derived
// entries first, local store when the feed misbehaves.
func NewReconciler(feed *FeedClient, filter *ClaimFilter, pageSize, aggregatePageSize int) *Reconciler {
	if aggregatePageSize <= 0 {
		aggregatePageSize = 1000
	}
	return &Reconciler{
		preferred:         NewFeedSource(feed, filter, pageSize),
		fallback:          StoreSource{},
		feed:              feed,
		filter:            filter,
		aggregatePageSize: aggregatePageSize,
		now:               time.Now,
	}
}

// SetSources overrides the preference order.
func (r *Reconciler) SetSources(preferred, fallback Source) {
	r.preferred = preferred
	r.fallback = fallback
}

// RecordLocalClaim validates and appends a locally reported claim to the
// fallback store. It never touches the feed.
func (r *Reconciler) RecordLocalClaim(wallet, amount string, txHash *string) (*db.Claim, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: walletAddress is required", ErrValidation)
	}
	if !isFixedPointAmount(strings.TrimSpace(amount)) {
		return nil, fmt.Errorf("%w: amount must be a non-negative decimal", ErrValidation)
	}

	entry := &db.Claim{
		ID:              uuid.NewString(),
		WalletAddress:   wallet,
		Amount:          strings.TrimSpace(amount),
		TransactionHash: txHash,
		ClaimedAt:       r.now().UnixMilli(),
	}
	if err := db.InsertClaim(entry); err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	log.Printf("[ledger] Recorded local claim %s for %s (%s)", entry.ID[:8], wallet, entry.Amount)
	return entry, nil
}

// ListRecent returns the newest claims, preferring the feed-derived view.
// A feed failure degrades to the local store without surfacing an error.
func (r *Reconciler) ListRecent(ctx context.Context, limit int) ([]db.Claim, error) {
	entries, err := r.preferred.RecentClaims(ctx, limit)
	if err != nil {
		log.Printf("[ledger] Feed unavailable, serving local fallback: %v", err)
		entries, err = r.fallback.RecentClaims(ctx, limit)
		if err != nil {
			return nil, err
		}
	}
	if entries == nil {
		entries = []db.Claim{}
	}
	return entries, nil
}

// ListForWallet returns local fallback entries for one wallet, newest
// first. The feed is only consulted for the global recent-claims view.
func (r *Reconciler) ListForWallet(wallet string) ([]db.Claim, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: walletAddress is required", ErrValidation)
	}
	entries, err := db.GetClaimsByWallet(wallet)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []db.Claim{}
	}
	return entries, nil
}

// AggregateTotalClaimed sums every matching payout on a larger feed page.
// Best-effort: an unreachable feed yields a zero total, never an error.
func (r *Reconciler) AggregateTotalClaimed(ctx context.Context) (string, int) {
	transfers, err := r.feed.TokenTransfers(ctx, r.filter.Distributor, r.aggregatePageSize)
	if err != nil {
		log.Printf("[ledger] Aggregate unavailable: %v", err)
		return "0.00", 0
	}

	sum := new(big.Int)
	count := 0
	for _, t := range transfers {
		if !r.filter.Matches(t) {
			continue
		}
		v, _ := new(big.Int).SetString(t.Value, 10)
		sum.Add(sum, v)
		count++
	}
	return FormatUnits(sum, r.filter.Decimals, 2), count
}
