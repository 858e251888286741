package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrAuctionNotFound is returned when no auction exists for the given id.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrAuctionNotActive is returned when bidding on a completed or
	// cancelled auction.
	ErrAuctionNotActive = errors.New("auction is not active")

	// ErrAuctionEnded is returned when the auction deadline has passed but
	// the closing job has not run yet.
	ErrAuctionEnded = errors.New("auction has ended")

	// ErrSelfBid is returned when a seller bids on their own auction.
	ErrSelfBid = errors.New("seller cannot bid on own auction")

	// ErrBidderBlocked is returned when the seller has blocked this bidder.
	ErrBidderBlocked = errors.New("bidder is blocked from this auction")

	// ErrBidderUnrated is returned when the bidder fails the rating
	// requirement and the auction does not allow unrated bidders.
	ErrBidderUnrated = errors.New("bidder does not meet rating requirement")

	// ErrAlreadyHighestBidder is returned when the current winner re-bids
	// without supplying a new proxy cap.
	ErrAlreadyHighestBidder = errors.New("already the highest bidder")

	// ErrBidTooLow is the sentinel matched by BidTooLowError.
	ErrBidTooLow = errors.New("bid amount too low")

	// ErrAlreadyBlocked is returned when blocking a bidder twice.
	ErrAlreadyBlocked = errors.New("bidder is already blocked")

	// ErrNotSeller is returned when someone other than the seller performs a
	// seller-only operation.
	ErrNotSeller = errors.New("operation is restricted to the seller")

	// ErrVersionConflict is returned by the auction store when a save races
	// a concurrent writer. Callers re-validate and resubmit.
	ErrVersionConflict = errors.New("auction was modified concurrently")
)

// BidTooLowError carries the minimum acceptable amount alongside the
// ErrBidTooLow sentinel.
type BidTooLowError struct {
	MinBid decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return "bid must be at least " + e.MinBid.String()
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}
