package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a domain event emitted by the bid engine or closer.
type EventType string

const (
	EventBidPlaced       EventType = "BID_PLACED"
	EventOutbid          EventType = "OUTBID"
	EventAuctionExtended EventType = "AUCTION_EXTENDED"
	EventAuctionWon      EventType = "AUCTION_WON"
	EventAuctionUnsold   EventType = "AUCTION_UNSOLD"
)

// Event is a fire-and-forget domain event. UserID is the addressee when the
// event targets one user (the outbid bidder, the winner); SellerID rides
// along so the gateway can notify the seller of activity on their listing.
type Event struct {
	Type       EventType       `json:"type"`
	AuctionID  string          `json:"auction_id"`
	UserID     string          `json:"user_id,omitempty"`
	SellerID   string          `json:"seller_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	NewEndTime *time.Time      `json:"new_end_time,omitempty"`
	At         time.Time       `json:"at"`
}

// NewBidPlaced reports a bid applied to an auction.
func NewBidPlaced(a *Auction, bidderID string, amount decimal.Decimal, at time.Time) Event {
	return Event{Type: EventBidPlaced, AuctionID: a.ID, UserID: bidderID, SellerID: a.SellerID, Amount: amount, At: at}
}

// NewOutbid notifies a bidder that a higher bid displaced them.
func NewOutbid(a *Auction, bidderID string, newAmount decimal.Decimal, at time.Time) Event {
	return Event{Type: EventOutbid, AuctionID: a.ID, UserID: bidderID, SellerID: a.SellerID, Amount: newAmount, At: at}
}

// NewAuctionExtended reports that anti-sniping pushed the deadline forward.
func NewAuctionExtended(a *Auction, newEnd time.Time, at time.Time) Event {
	end := newEnd
	return Event{Type: EventAuctionExtended, AuctionID: a.ID, SellerID: a.SellerID, NewEndTime: &end, At: at}
}

// NewAuctionWon reports a completed auction with a winner at the final price.
func NewAuctionWon(a *Auction, winnerID string, finalAmount decimal.Decimal, at time.Time) Event {
	return Event{Type: EventAuctionWon, AuctionID: a.ID, UserID: winnerID, SellerID: a.SellerID, Amount: finalAmount, At: at}
}

// NewAuctionUnsold reports a completed auction that received no valid bids.
func NewAuctionUnsold(a *Auction, at time.Time) Event {
	return Event{Type: EventAuctionUnsold, AuctionID: a.ID, SellerID: a.SellerID, At: at}
}
