package ledger

import (
	"context"

	"faucetminer/internal/db"
)

// Source yields recent claim entries. The reconciler reads the preferred
// source and silently degrades to the fallback, so the preference order is
// swappable in tests.
type Source interface {
	RecentClaims(ctx context.Context, limit int) ([]db.Claim, error)
}

// FeedSource derives entries from the transfer feed at read time.
type FeedSource struct {
	feed     *FeedClient
	filter   *ClaimFilter
	pageSize int
}

// NewFeedSource creates the feed-backed source. pageSize is the feed page
// requested per read; the claim filter then narrows it down.
func NewFeedSource(feed *FeedClient, filter *ClaimFilter, pageSize int) *FeedSource {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &FeedSource{feed: feed, filter: filter, pageSize: pageSize}
}

func (s *FeedSource) RecentClaims(ctx context.Context, limit int) ([]db.Claim, error) {
	transfers, err := s.feed.TokenTransfers(ctx, s.filter.Distributor, s.pageSize)
	if err != nil {
		return nil, err
	}

	entries := make([]db.Claim, 0, limit)
	for _, t := range transfers {
		if !s.filter.Matches(t) {
			continue
		}
		entries = append(entries, s.filter.Entry(t))
		if len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// StoreSource serves locally recorded fallback entries.
type StoreSource struct{}

func (StoreSource) RecentClaims(_ context.Context, limit int) ([]db.Claim, error) {
	return db.GetRecentClaims(limit)
}
