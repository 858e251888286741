package service

import (
	"context"

	"auction_go/internal/domain"
)

// BidHistoryEntry is one row of an auction's public bid history. Blocked is
// set when the bid belongs to a bidder the seller has since banned, so the
// UI can grey it out without rewriting the immutable log.
type BidHistoryEntry struct {
	domain.Bid
	Blocked bool `json:"blocked"`
}

// BidQueryService serves read-side views over the bid log.
type BidQueryService struct {
	bids   domain.BidStore
	blocks domain.BlockStore
}

// NewBidQueryService creates a BidQueryService.
func NewBidQueryService(bids domain.BidStore, blocks domain.BlockStore) *BidQueryService {
	return &BidQueryService{bids: bids, blocks: blocks}
}

// History returns an auction's bids newest first, flagging entries from
// currently-blocked bidders.
func (s *BidQueryService) History(ctx context.Context, auctionID string, limit, offset int) ([]BidHistoryEntry, error) {
	bids, err := s.bids.BidsByAuctionRecent(ctx, auctionID, limit, offset)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blocks.BlockedBidders(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	blockedSet := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		blockedSet[id] = struct{}{}
	}

	entries := make([]BidHistoryEntry, 0, len(bids))
	for _, b := range bids {
		_, isBlocked := blockedSet[b.BidderID]
		entries = append(entries, BidHistoryEntry{Bid: b, Blocked: isBlocked})
	}
	return entries, nil
}

// Ranking returns an auction's bids by (amount desc, created_at asc).
func (s *BidQueryService) Ranking(ctx context.Context, auctionID string, limit, offset int) ([]domain.Bid, error) {
	return s.bids.BidsByAuctionRanked(ctx, auctionID, limit, offset)
}

// ByBidder returns one bidder's bids across all auctions, newest first.
func (s *BidQueryService) ByBidder(ctx context.Context, bidderID string, limit, offset int) ([]domain.Bid, error) {
	return s.bids.BidsByBidderRecent(ctx, bidderID, limit, offset)
}
