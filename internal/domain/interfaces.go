package domain

import "context"

// AuctionStore is the accessor for the mutable auction record.
// SaveAuction is compare-and-swap on Version: it returns ErrVersionConflict
// when the stored row no longer matches the version the caller read.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a *Auction) error
	GetAuction(ctx context.Context, id string) (*Auction, error)
	SaveAuction(ctx context.Context, a *Auction) error
	ActiveAuctions(ctx context.Context) ([]Auction, error)
}

// BidApplier writes a bid and its auction update in one atomic unit, CAS on
// a.Version. A partial application (log entry without the price move, or the
// reverse) must be impossible.
type BidApplier interface {
	ApplyBid(ctx context.Context, a *Auction, b *Bid) error
}

// BidStore is the append-only bid log. Ranked order is
// (amount desc, created_at asc); limit <= 0 means no paging.
type BidStore interface {
	InsertBid(ctx context.Context, b *Bid) error
	BidsByAuctionRanked(ctx context.Context, auctionID string, limit, offset int) ([]Bid, error)
	BidsByAuctionRecent(ctx context.Context, auctionID string, limit, offset int) ([]Bid, error)
	BidsByBidderRecent(ctx context.Context, bidderID string, limit, offset int) ([]Bid, error)
	ProxyBidsExcluding(ctx context.Context, auctionID, bidderID string) ([]Bid, error)
}

// BlockStore tracks per-auction bidder bans.
type BlockStore interface {
	BlockBidder(ctx context.Context, auctionID, bidderID string) error
	IsBlocked(ctx context.Context, auctionID, bidderID string) (bool, error)
	BlockedBidders(ctx context.Context, auctionID string) ([]string, error)
}

// TransactionStore records settlements for won auctions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
}

// ConfigStore reads admin-tunable settings, falling back to def when a key
// is missing or unparseable.
type ConfigStore interface {
	GetInt(ctx context.Context, key string, def int) int
}

// RatingChecker is the eligibility predicate supplied by the rating system.
type RatingChecker interface {
	CanBid(ctx context.Context, bidderID string) (bool, error)
}

// RatingCheckerFunc adapts a function to the RatingChecker interface.
type RatingCheckerFunc func(ctx context.Context, bidderID string) (bool, error)

func (f RatingCheckerFunc) CanBid(ctx context.Context, bidderID string) (bool, error) {
	return f(ctx, bidderID)
}

// EventSink consumes domain events. Publishing must not block the caller.
type EventSink interface {
	Publish(ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ev Event)

func (f EventSinkFunc) Publish(ev Event) { f(ev) }
