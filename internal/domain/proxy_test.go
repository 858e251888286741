package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var proxyBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func proxyBid(bidder string, amount, cap int64, at time.Time) Bid {
	return Bid{
		BidderID:       bidder,
		Amount:         decimal.NewFromInt(amount),
		MaxProxyAmount: decimal.NewNullDecimal(decimal.NewFromInt(cap)),
		IsProxy:        true,
		CreatedAt:      at,
	}
}

func manualBid(bidder string, amount int64, at time.Time) Bid {
	return Bid{
		BidderID:  bidder,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: at,
	}
}

func TestLatestProxyPerBidder(t *testing.T) {
	t.Run("keeps only the latest proxy bid per bidder", func(t *testing.T) {
		bids := []Bid{
			proxyBid("alice", 50, 120, proxyBase),
			proxyBid("alice", 70, 200, proxyBase.Add(time.Minute)),
			proxyBid("bob", 60, 150, proxyBase.Add(2*time.Minute)),
		}
		out := LatestProxyPerBidder(bids, "carol")
		if len(out) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(out))
		}
		for _, b := range out {
			if b.BidderID == "alice" {
				c, _ := b.ProxyCap()
				if !c.Equal(decimal.NewFromInt(200)) {
					t.Errorf("expected alice's latest cap 200, got %s", c)
				}
			}
		}
	})

	t.Run("excludes the named bidder", func(t *testing.T) {
		bids := []Bid{
			proxyBid("alice", 50, 120, proxyBase),
			proxyBid("bob", 60, 150, proxyBase.Add(time.Minute)),
		}
		out := LatestProxyPerBidder(bids, "bob")
		if len(out) != 1 || out[0].BidderID != "alice" {
			t.Errorf("expected only alice, got %v", out)
		}
	})

	t.Run("ignores non-proxy bids", func(t *testing.T) {
		bids := []Bid{
			manualBid("alice", 50, proxyBase),
			manualBid("bob", 60, proxyBase.Add(time.Minute)),
		}
		if out := LatestProxyPerBidder(bids, "carol"); len(out) != 0 {
			t.Errorf("expected no candidates, got %v", out)
		}
	})
}

func TestStrongestCompetitor(t *testing.T) {
	t.Run("highest cap wins", func(t *testing.T) {
		best, ok := StrongestCompetitor([]Bid{
			proxyBid("alice", 50, 120, proxyBase),
			proxyBid("bob", 60, 150, proxyBase.Add(time.Minute)),
		})
		if !ok || best.BidderID != "bob" {
			t.Errorf("expected bob, got %v", best.BidderID)
		}
	})

	t.Run("equal caps go to the earliest bid", func(t *testing.T) {
		best, ok := StrongestCompetitor([]Bid{
			proxyBid("bob", 60, 150, proxyBase.Add(time.Minute)),
			proxyBid("alice", 50, 150, proxyBase),
		})
		if !ok || best.BidderID != "alice" {
			t.Errorf("expected alice, got %v", best.BidderID)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		if _, ok := StrongestCompetitor(nil); ok {
			t.Error("expected no competitor")
		}
	})
}

func TestResolveProxy(t *testing.T) {
	step := decimal.NewFromInt(10)

	t.Run("higher competitor cap wins one step above loser cap", func(t *testing.T) {
		incoming := proxyBid("bob", 60, 100, proxyBase.Add(time.Minute))
		competitor := proxyBid("alice", 50, 150, proxyBase)

		out := ResolveProxy(incoming, competitor, step)
		if out.WinnerID != "alice" {
			t.Fatalf("expected alice to win, got %s", out.WinnerID)
		}
		if !out.FinalPrice.Equal(decimal.NewFromInt(110)) {
			t.Errorf("expected final price 110, got %s", out.FinalPrice)
		}
		if !out.LoserRef.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected loser reference 100, got %s", out.LoserRef)
		}
	})

	t.Run("final price never exceeds the winner's cap", func(t *testing.T) {
		incoming := proxyBid("bob", 60, 145, proxyBase.Add(time.Minute))
		competitor := proxyBid("alice", 50, 150, proxyBase)

		out := ResolveProxy(incoming, competitor, step)
		if out.WinnerID != "alice" {
			t.Fatalf("expected alice to win, got %s", out.WinnerID)
		}
		if !out.FinalPrice.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected final price capped at 150, got %s", out.FinalPrice)
		}
	})

	t.Run("equal caps favor the earlier competitor", func(t *testing.T) {
		incoming := proxyBid("bob", 60, 150, proxyBase.Add(time.Minute))
		competitor := proxyBid("alice", 50, 150, proxyBase)

		out := ResolveProxy(incoming, competitor, step)
		if out.WinnerID != "alice" {
			t.Fatalf("expected the earlier bid to win, got %s", out.WinnerID)
		}
		if !out.FinalPrice.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected final price 150, got %s", out.FinalPrice)
		}
	})

	t.Run("uncapped incoming bid loses at its plain amount plus step", func(t *testing.T) {
		incoming := manualBid("bob", 60, proxyBase.Add(time.Minute))
		competitor := proxyBid("alice", 50, 150, proxyBase)

		out := ResolveProxy(incoming, competitor, step)
		if out.WinnerID != "alice" {
			t.Fatalf("expected alice to win, got %s", out.WinnerID)
		}
		if !out.FinalPrice.Equal(decimal.NewFromInt(70)) {
			t.Errorf("expected final price 70, got %s", out.FinalPrice)
		}
	})

	t.Run("higher incoming cap beats the competitor", func(t *testing.T) {
		incoming := proxyBid("bob", 60, 200, proxyBase.Add(time.Minute))
		competitor := proxyBid("alice", 50, 150, proxyBase)

		out := ResolveProxy(incoming, competitor, step)
		if out.WinnerID != "bob" {
			t.Fatalf("expected bob to win, got %s", out.WinnerID)
		}
		if !out.FinalPrice.Equal(decimal.NewFromInt(160)) {
			t.Errorf("expected final price 160, got %s", out.FinalPrice)
		}
	})
}
