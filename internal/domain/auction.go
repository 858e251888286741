package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "ACTIVE"
	AuctionCompleted AuctionStatus = "COMPLETED"
	AuctionCancelled AuctionStatus = "CANCELLED"
)

// Auction is the single mutable record for a listing. Price, winner, bid
// count and end time are owned by the bid engine; status is owned by the
// closer. Version backs optimistic concurrency on saves.
type Auction struct {
	ID                  string              `gorm:"primaryKey" json:"id"`
	SellerID            string              `gorm:"index" json:"seller_id"`
	Title               string              `json:"title"`
	StartingPrice       decimal.Decimal     `gorm:"type:numeric" json:"starting_price"`
	CurrentPrice        decimal.Decimal     `gorm:"type:numeric" json:"current_price"`
	StepPrice           decimal.Decimal     `gorm:"type:numeric" json:"step_price"`
	BuyNowPrice         decimal.NullDecimal `gorm:"type:numeric" json:"buy_now_price"`
	CurrentWinnerID     string              `gorm:"index" json:"current_winner_id"` // empty = no winner yet
	BidCount            int                 `json:"bid_count"`
	Status              AuctionStatus       `gorm:"index" json:"status"`
	StartTime           time.Time           `json:"start_time"`
	EndTime             time.Time           `gorm:"index" json:"end_time"`
	AutoExtend          bool                `json:"auto_extend"`
	AllowUnratedBidders bool                `json:"allow_unrated_bidders"`
	Version             int64               `json:"-"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// HasBuyNow reports whether the listing carries a buy-now price.
func (a *Auction) HasBuyNow() bool {
	return a.BuyNowPrice.Valid
}

// HasWinner reports whether any bid currently leads the auction.
func (a *Auction) HasWinner() bool {
	return a.CurrentWinnerID != ""
}

// MinBid returns the lowest acceptable bid amount: the starting price while
// the auction has no bids, otherwise current price plus one step.
func (a *Auction) MinBid() decimal.Decimal {
	if a.BidCount == 0 {
		return a.StartingPrice
	}
	return a.CurrentPrice.Add(a.StepPrice)
}

// MeetsBuyNow reports whether amount reaches the buy-now price.
func (a *Auction) MeetsBuyNow(amount decimal.Decimal) bool {
	return a.BuyNowPrice.Valid && amount.GreaterThanOrEqual(a.BuyNowPrice.Decimal)
}
