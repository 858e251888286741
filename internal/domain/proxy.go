package domain

import "github.com/shopspring/decimal"

// Proxy resolution works on a derived view of the bid log, never on cached
// state: each call reduces the log to one proxy bid per competitor and
// resolves the strongest of them against the incoming bid.

// ProxyOutcome is the result of resolving an incoming bid against the
// strongest competing proxy bid.
type ProxyOutcome struct {
	WinnerID  string
	WinnerCap decimal.Decimal
	LoserID   string
	// LoserRef is the losing side's cap when it has one, else its plain bid
	// amount. The winner pays one step above it, capped at their own limit.
	LoserRef   decimal.Decimal
	FinalPrice decimal.Decimal
}

// LatestProxyPerBidder reduces a bid log to each bidder's most recent
// proxy-enabled bid, dropping bids by excludeBidder. Older proxy bids are
// stale once a bidder raises their cap and must not resurrect.
func LatestProxyPerBidder(bids []Bid, excludeBidder string) []Bid {
	latest := make(map[string]Bid)
	for _, b := range bids {
		if !b.IsProxy || b.BidderID == excludeBidder {
			continue
		}
		cur, ok := latest[b.BidderID]
		if !ok || b.CreatedAt.After(cur.CreatedAt) {
			latest[b.BidderID] = b
		}
	}
	out := make([]Bid, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	return out
}

// StrongestCompetitor picks the candidate with the highest proxy cap.
// Equal caps go to the earliest-recorded bid.
func StrongestCompetitor(candidates []Bid) (Bid, bool) {
	var best Bid
	found := false
	for _, b := range candidates {
		c, ok := b.ProxyCap()
		if !ok {
			continue
		}
		if !found {
			best, found = b, true
			continue
		}
		bestCap, _ := best.ProxyCap()
		if c.GreaterThan(bestCap) || (c.Equal(bestCap) && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	return best, found
}

// ResolveProxy decides the winner between the incoming bid and the strongest
// competitor, and the single price jump to apply. The competitor was
// necessarily recorded earlier, so equal caps favor the competitor.
// The final price is min(winnerCap, loserRef + step).
func ResolveProxy(incoming Bid, competitor Bid, step decimal.Decimal) ProxyOutcome {
	competitorCap, _ := competitor.ProxyCap()
	incomingCap, incomingHasCap := incoming.ProxyCap()

	var out ProxyOutcome
	if !incomingHasCap || competitorCap.GreaterThanOrEqual(incomingCap) {
		out.WinnerID = competitor.BidderID
		out.WinnerCap = competitorCap
		out.LoserID = incoming.BidderID
		if incomingHasCap {
			out.LoserRef = incomingCap
		} else {
			out.LoserRef = incoming.Amount
		}
	} else {
		out.WinnerID = incoming.BidderID
		out.WinnerCap = incomingCap
		out.LoserID = competitor.BidderID
		out.LoserRef = competitorCap
	}

	out.FinalPrice = out.LoserRef.Add(step)
	if out.FinalPrice.GreaterThan(out.WinnerCap) {
		out.FinalPrice = out.WinnerCap
	}
	return out
}
