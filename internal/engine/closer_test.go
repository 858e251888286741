package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCloserFixture(t *testing.T) (*Closer, *storage.Storage, *recorder) {
	t.Helper()
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "closer.db"))
	require.NoError(t, err)
	rec := &recorder{}
	return NewCloser(st, st, rec, NewLockTable()), st, rec
}

func seedAuction(t *testing.T, st *storage.Storage, winnerID string) *domain.Auction {
	t.Helper()
	now := time.Now()
	a := &domain.Auction{
		ID:              "a1",
		SellerID:        "seller",
		Title:           "rare vinyl",
		StartingPrice:   decimal.NewFromInt(100),
		CurrentPrice:    decimal.NewFromInt(150),
		StepPrice:       decimal.NewFromInt(10),
		CurrentWinnerID: winnerID,
		Status:          domain.AuctionActive,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now,
	}
	require.NoError(t, st.CreateAuction(context.Background(), a))
	return a
}

func TestCloseWithWinner(t *testing.T) {
	c, st, rec := newCloserFixture(t)
	ctx := context.Background()
	seedAuction(t, st, "alice")

	require.NoError(t, c.Close(ctx, "a1", ""))

	got, err := st.GetAuction(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionCompleted, got.Status)
	assert.Equal(t, "alice", got.CurrentWinnerID)

	tx, err := st.TransactionByAuction(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "alice", tx.WinnerID)
	assert.Equal(t, "seller", tx.SellerID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, domain.TransactionPending, tx.Status)

	won := rec.byType(domain.EventAuctionWon)
	require.Len(t, won, 1)
	assert.Equal(t, "alice", won[0].UserID)
	assert.Empty(t, rec.byType(domain.EventAuctionUnsold))
}

func TestCloseWithoutBids(t *testing.T) {
	c, st, rec := newCloserFixture(t)
	ctx := context.Background()
	seedAuction(t, st, "")

	require.NoError(t, c.Close(ctx, "a1", ""))

	got, _ := st.GetAuction(ctx, "a1")
	assert.Equal(t, domain.AuctionCompleted, got.Status)

	tx, err := st.TransactionByAuction(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, tx, "unsold auction settles nothing")

	assert.Len(t, rec.byType(domain.EventAuctionUnsold), 1)
	assert.Empty(t, rec.byType(domain.EventAuctionWon))
}

func TestCloseForcedWinner(t *testing.T) {
	c, st, rec := newCloserFixture(t)
	ctx := context.Background()
	seedAuction(t, st, "alice")

	require.NoError(t, c.Close(ctx, "a1", "bob"))

	got, _ := st.GetAuction(ctx, "a1")
	assert.Equal(t, "bob", got.CurrentWinnerID)

	won := rec.byType(domain.EventAuctionWon)
	require.Len(t, won, 1)
	assert.Equal(t, "bob", won[0].UserID)
}

func TestCloseIdempotent(t *testing.T) {
	c, st, rec := newCloserFixture(t)
	ctx := context.Background()
	seedAuction(t, st, "alice")

	require.NoError(t, c.Close(ctx, "a1", ""))
	require.NoError(t, c.Close(ctx, "a1", ""))

	assert.Len(t, rec.byType(domain.EventAuctionWon), 1, "second close must be a no-op")
}

func TestCloseConcurrentExactlyOnce(t *testing.T) {
	c, st, rec := newCloserFixture(t)
	ctx := context.Background()
	seedAuction(t, st, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Close(ctx, "a1", ""))
		}()
	}
	wg.Wait()

	assert.Len(t, rec.byType(domain.EventAuctionWon), 1, "racing closes must complete exactly once")

	got, _ := st.GetAuction(ctx, "a1")
	assert.Equal(t, domain.AuctionCompleted, got.Status)
}

func TestCloseMissingAuction(t *testing.T) {
	c, _, rec := newCloserFixture(t)

	assert.NoError(t, c.Close(context.Background(), "ghost", ""), "a vanished auction is logged, not fatal")
	assert.Empty(t, rec.events)
}
