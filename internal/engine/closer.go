package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra"

	"github.com/google/uuid"
)

// Closer executes the ACTIVE→COMPLETED transition exactly once per auction.
// It is invoked by the scheduler's timer fire, or directly by the bid engine
// on a buy-now purchase; the status guard makes the racing path a no-op.
type Closer struct {
	auctions domain.AuctionStore
	txs      domain.TransactionStore
	events   domain.EventSink
	locks    *LockTable
	now      func() time.Time
}

// NewCloser creates a Closer sharing the engine's lock table.
func NewCloser(auctions domain.AuctionStore, txs domain.TransactionStore, events domain.EventSink, locks *LockTable) *Closer {
	return &Closer{
		auctions: auctions,
		txs:      txs,
		events:   events,
		locks:    locks,
		now:      time.Now,
	}
}

// Close completes the auction. Idempotent: an auction already completed or
// cancelled is left untouched. forcedWinnerID overrides the recorded winner
// (buy-now); pass "" to keep the current highest bidder.
func (c *Closer) Close(ctx context.Context, auctionID, forcedWinnerID string) error {
	mu := c.locks.Lock(auctionID)
	defer mu.Unlock()

	a, err := c.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			slog.Warn("auction missing at close time", slog.String("auction_id", auctionID))
			return nil
		}
		return err
	}

	return c.closeLocked(ctx, a, forcedWinnerID)
}

// closeLocked performs the transition. The caller must hold the auction's
// lock and pass the record it read under that lock.
func (c *Closer) closeLocked(ctx context.Context, a *domain.Auction, forcedWinnerID string) error {
	if a.Status != domain.AuctionActive {
		// Already closed via a racing path (duplicate fire or buy-now).
		slog.Info("auction already closed", slog.String("auction_id", a.ID), slog.String("status", string(a.Status)))
		return nil
	}

	a.Status = domain.AuctionCompleted
	if forcedWinnerID != "" {
		a.CurrentWinnerID = forcedWinnerID
	}

	// Status and winner land in one write; a failure here is retryable
	// because the status guard above keeps retries from double-completing.
	if err := c.auctions.SaveAuction(ctx, a); err != nil {
		return err
	}

	now := c.now()
	if a.HasWinner() {
		tx := &domain.Transaction{
			ID:        uuid.NewString(),
			AuctionID: a.ID,
			SellerID:  a.SellerID,
			WinnerID:  a.CurrentWinnerID,
			Amount:    a.CurrentPrice,
			Status:    domain.TransactionPending,
			CreatedAt: now,
		}
		if err := c.txs.CreateTransaction(ctx, tx); err != nil {
			// The close already happened; settlement creation is downstream
			// and retried out of band.
			slog.Error("failed to create transaction", slog.String("auction_id", a.ID), slog.Any("error", err))
		}
		c.events.Publish(domain.NewAuctionWon(a, a.CurrentWinnerID, a.CurrentPrice, now))
	} else {
		c.events.Publish(domain.NewAuctionUnsold(a, now))
	}

	infra.GlobalMetrics.RecordAuctionClosed()
	slog.Info("auction closed",
		slog.String("auction_id", a.ID),
		slog.String("winner_id", a.CurrentWinnerID),
		slog.String("final_price", a.CurrentPrice.String()))
	return nil
}
