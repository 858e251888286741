package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an immutable, append-only log entry. Bids are never updated after
// creation; the ranked view over them is (amount desc, created_at asc).
type Bid struct {
	ID             string              `gorm:"primaryKey" json:"id"`
	AuctionID      string              `gorm:"index:idx_bids_auction" json:"auction_id"`
	BidderID       string              `gorm:"index" json:"bidder_id"`
	Amount         decimal.Decimal     `gorm:"type:numeric" json:"amount"`
	MaxProxyAmount decimal.NullDecimal `gorm:"type:numeric" json:"max_proxy_amount"`
	IsProxy        bool                `json:"is_proxy"`
	CreatedAt      time.Time           `gorm:"index" json:"created_at"`
}

// ProxyCap returns the proxy ceiling and whether one is set.
func (b *Bid) ProxyCap() (decimal.Decimal, bool) {
	return b.MaxProxyAmount.Decimal, b.MaxProxyAmount.Valid
}

// BlockedBidder marks a bidder the seller has banned from one auction.
type BlockedBidder struct {
	AuctionID string    `gorm:"primaryKey" json:"auction_id"`
	BidderID  string    `gorm:"primaryKey" json:"bidder_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionStatus tracks the post-auction settlement state. Payment
// capture itself happens outside this system.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
)

// Transaction is created once per won auction, linking winner and seller at
// the final price.
type Transaction struct {
	ID        string            `gorm:"primaryKey" json:"id"`
	AuctionID string            `gorm:"uniqueIndex" json:"auction_id"`
	SellerID  string            `json:"seller_id"`
	WinnerID  string            `json:"winner_id"`
	Amount    decimal.Decimal   `gorm:"type:numeric" json:"amount"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// SystemConfig is an admin-tunable key-value setting, read at use time so
// changes apply without a restart.
type SystemConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
