package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Admin-tunable settings, read from the system config table at use time.
// Values are minutes; config-file values serve as defaults.
const (
	ConfigExtendThreshold = "AUCTION_EXTEND_THRESHOLD"
	ConfigExtendDuration  = "AUCTION_EXTEND_DURATION"
)

// Deps wires the bid engine to its collaborators. Locks must be the same
// table the Closer uses.
type Deps struct {
	Auctions  domain.AuctionStore
	Applier   domain.BidApplier
	Bids      domain.BidStore
	Blocks    domain.BlockStore
	Ratings   domain.RatingChecker
	Configs   domain.ConfigStore // optional; nil falls back to defaults
	Events    domain.EventSink
	Closer    *Closer
	Scheduler *Scheduler
	Locks     *LockTable

	ExtendThreshold time.Duration
	ExtendDuration  time.Duration
}

// Engine validates and applies bids, runs reactive proxy resolution, and
// triggers auto-extension. All mutation of one auction's record happens
// under that auction's lock; different auctions proceed in parallel.
type Engine struct {
	auctions  domain.AuctionStore
	applier   domain.BidApplier
	bids      domain.BidStore
	blocks    domain.BlockStore
	ratings   domain.RatingChecker
	configs   domain.ConfigStore
	events    domain.EventSink
	closer    *Closer
	scheduler *Scheduler
	locks     *LockTable

	extendThreshold time.Duration
	extendDuration  time.Duration

	now func() time.Time

	// created_at must be a total recency order even when several bids land
	// within one wall tick (manual bid plus the system bids a resolution
	// records).
	stampMu   sync.Mutex
	lastStamp time.Time
}

// New creates a bid engine from its dependencies.
func New(deps Deps) *Engine {
	e := &Engine{
		auctions:        deps.Auctions,
		applier:         deps.Applier,
		bids:            deps.Bids,
		blocks:          deps.Blocks,
		ratings:         deps.Ratings,
		configs:         deps.Configs,
		events:          deps.Events,
		closer:          deps.Closer,
		scheduler:       deps.Scheduler,
		locks:           deps.Locks,
		extendThreshold: deps.ExtendThreshold,
		extendDuration:  deps.ExtendDuration,
		now:             time.Now,
	}
	if e.extendThreshold == 0 {
		e.extendThreshold = infra.DefaultExtendThresholdMin * time.Minute
	}
	if e.extendDuration == 0 {
		e.extendDuration = infra.DefaultExtendDurationMin * time.Minute
	}
	return e
}

// CreateAuction lists a new auction and schedules its close timer.
func (e *Engine) CreateAuction(ctx context.Context, a *domain.Auction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := e.now()
	if a.StartTime.IsZero() {
		a.StartTime = now
	}
	if !a.EndTime.After(now) {
		return fmt.Errorf("auction %s: end time must be in the future", a.ID)
	}
	a.Status = domain.AuctionActive
	a.CurrentPrice = a.StartingPrice
	a.CurrentWinnerID = ""
	a.BidCount = 0

	if err := e.auctions.CreateAuction(ctx, a); err != nil {
		return err
	}
	e.scheduler.ScheduleClose(a.ID, a.EndTime)
	slog.Info("auction created",
		slog.String("auction_id", a.ID),
		slog.String("seller_id", a.SellerID),
		slog.Time("end_time", a.EndTime))
	return nil
}

// PlaceBid validates and applies a bid. maxProxy, when non-nil, makes this a
// proxy bid authorizing the engine to bid up to that cap on the bidder's
// behalf. The returned Bid is the manual bid as recorded; proxy resolution
// may immediately raise the price beyond it.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal, maxProxy *decimal.Decimal) (*domain.Bid, error) {
	mu := e.locks.Lock(auctionID)
	defer mu.Unlock()

	a, err := e.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if err := e.validateBid(ctx, a, bidderID, maxProxy); err != nil {
		infra.GlobalMetrics.RecordBidRejected()
		return nil, err
	}

	if a.MeetsBuyNow(amount) {
		return e.processBuyNow(ctx, a, bidderID, amount)
	}

	minBid := a.MinBid()
	if amount.LessThan(minBid) {
		infra.GlobalMetrics.RecordBidRejected()
		return nil, &domain.BidTooLowError{MinBid: minBid}
	}

	prevWinner := a.CurrentWinnerID

	bid, err := e.applyBid(ctx, a, bidderID, amount, maxProxy, maxProxy != nil)
	if err != nil {
		return nil, err
	}

	if prevWinner != "" && prevWinner != bidderID {
		e.events.Publish(domain.NewOutbid(a, prevWinner, amount, e.now()))
	}

	if err := e.checkAutoExtend(ctx, a); err != nil {
		slog.Error("auto-extend failed", slog.String("auction_id", a.ID), slog.Any("error", err))
	}

	if err := e.resolveProxies(ctx, a, bid); err != nil {
		// The manual bid stands; the next bid re-derives the same view and
		// resolves again.
		slog.Error("proxy resolution failed", slog.String("auction_id", a.ID), slog.Any("error", err))
	}

	slog.Info("bid placed",
		slog.String("auction_id", a.ID),
		slog.String("bidder_id", bidderID),
		slog.String("amount", amount.String()))
	return bid, nil
}

// validateBid runs the precondition chain in order, each failure a distinct
// error kind.
func (e *Engine) validateBid(ctx context.Context, a *domain.Auction, bidderID string, maxProxy *decimal.Decimal) error {
	if a.Status != domain.AuctionActive {
		return domain.ErrAuctionNotActive
	}
	if !e.now().Before(a.EndTime) {
		return domain.ErrAuctionEnded
	}
	if a.SellerID == bidderID {
		return domain.ErrSelfBid
	}

	blocked, err := e.blocks.IsBlocked(ctx, a.ID, bidderID)
	if err != nil {
		return fmt.Errorf("blocked-bidder lookup: %w", err)
	}
	if blocked {
		return domain.ErrBidderBlocked
	}

	if !a.AllowUnratedBidders {
		ok, err := e.ratings.CanBid(ctx, bidderID)
		if err != nil {
			return fmt.Errorf("rating check: %w", err)
		}
		if !ok {
			return domain.ErrBidderUnrated
		}
	}

	if a.CurrentWinnerID == bidderID {
		// The highest bidder may only raise their own proxy cap.
		if maxProxy == nil {
			return domain.ErrAlreadyHighestBidder
		}
	}
	return nil
}

// processBuyNow records the final bid and completes the auction in the
// bidder's favor. No proxy resolution runs afterwards.
func (e *Engine) processBuyNow(ctx context.Context, a *domain.Auction, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	a.EndTime = e.now()
	bid, err := e.applyBid(ctx, a, bidderID, amount, nil, false)
	if err != nil {
		return nil, err
	}

	if err := e.closer.closeLocked(ctx, a, bidderID); err != nil {
		return nil, err
	}
	e.scheduler.Unschedule(a.ID)

	slog.Info("auction sold via buy-now",
		slog.String("auction_id", a.ID),
		slog.String("winner_id", bidderID),
		slog.String("amount", amount.String()))
	return bid, nil
}

// applyBid appends the bid and moves price/winner/bidCount in one atomic
// write. A version conflict means another writer got there first; the bid is
// re-judged against the fresh price and rejected as too low.
func (e *Engine) applyBid(ctx context.Context, a *domain.Auction, bidderID string, amount decimal.Decimal, maxProxy *decimal.Decimal, isProxy bool) (*domain.Bid, error) {
	bid := &domain.Bid{
		ID:        uuid.NewString(),
		AuctionID: a.ID,
		BidderID:  bidderID,
		Amount:    amount,
		IsProxy:   isProxy,
		CreatedAt: e.stamp(),
	}
	if maxProxy != nil {
		bid.MaxProxyAmount = decimal.NewNullDecimal(*maxProxy)
	}

	a.CurrentPrice = amount
	a.CurrentWinnerID = bidderID
	a.BidCount++

	if err := e.applier.ApplyBid(ctx, a, bid); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			fresh, ferr := e.auctions.GetAuction(ctx, a.ID)
			if ferr == nil {
				*a = *fresh
				infra.GlobalMetrics.RecordBidRejected()
				return nil, &domain.BidTooLowError{MinBid: a.MinBid()}
			}
		}
		return nil, err
	}

	infra.GlobalMetrics.RecordBidApplied()
	e.events.Publish(domain.NewBidPlaced(a, bidderID, amount, bid.CreatedAt))
	return bid, nil
}

// resolveProxies runs once per applied manual bid. The competitor view is
// derived fresh from the bid log on every call, never cached.
func (e *Engine) resolveProxies(ctx context.Context, a *domain.Auction, incoming *domain.Bid) error {
	if a.Status != domain.AuctionActive {
		return nil
	}

	all, err := e.bids.ProxyBidsExcluding(ctx, a.ID, incoming.BidderID)
	if err != nil {
		return err
	}
	candidates := domain.LatestProxyPerBidder(all, incoming.BidderID)
	competitor, ok := domain.StrongestCompetitor(candidates)
	if !ok {
		return nil
	}

	outcome := domain.ResolveProxy(*incoming, competitor, a.StepPrice)
	if !outcome.FinalPrice.GreaterThan(a.CurrentPrice) {
		return nil
	}

	// Intermediate bid at the loser's reference keeps the history readable:
	// the log shows the losing side pushed to its limit before the winning
	// jump. Skipped when it would tie or pass the final price, so the ranked
	// view always places the winner first.
	if outcome.LoserRef.GreaterThan(a.CurrentPrice) && outcome.LoserRef.LessThan(outcome.FinalPrice) {
		ref := outcome.LoserRef
		if _, err := e.applyBid(ctx, a, outcome.LoserID, ref, &ref, true); err != nil {
			return err
		}
	}

	winnerCap := outcome.WinnerCap
	if _, err := e.applyBid(ctx, a, outcome.WinnerID, outcome.FinalPrice, &winnerCap, true); err != nil {
		return err
	}

	infra.GlobalMetrics.RecordProxyResolution()
	slog.Info("proxy resolution applied",
		slog.String("auction_id", a.ID),
		slog.String("winner_id", outcome.WinnerID),
		slog.String("final_price", outcome.FinalPrice.String()))

	if err := e.checkAutoExtend(ctx, a); err != nil {
		slog.Error("auto-extend failed", slog.String("auction_id", a.ID), slog.Any("error", err))
	}

	e.events.Publish(domain.NewOutbid(a, outcome.LoserID, outcome.FinalPrice, e.now()))
	return nil
}

// checkAutoExtend pushes the deadline when a bid lands inside the trailing
// window, then moves the close timer to match.
func (e *Engine) checkAutoExtend(ctx context.Context, a *domain.Auction) error {
	if !a.AutoExtend || a.Status != domain.AuctionActive {
		return nil
	}

	threshold, duration := e.extendWindow(ctx)
	now := e.now()
	if now.Add(threshold).Before(a.EndTime) {
		return nil
	}

	newEnd := a.EndTime.Add(duration)
	a.EndTime = newEnd
	if err := e.auctions.SaveAuction(ctx, a); err != nil {
		return err
	}
	e.scheduler.Reschedule(a.ID, newEnd)
	e.events.Publish(domain.NewAuctionExtended(a, newEnd, now))
	infra.GlobalMetrics.RecordAuctionExtended()

	slog.Info("auction extended",
		slog.String("auction_id", a.ID),
		slog.Time("new_end_time", newEnd))
	return nil
}

// extendWindow reads the tunable extend settings, falling back to the
// engine's configured defaults.
func (e *Engine) extendWindow(ctx context.Context) (threshold, duration time.Duration) {
	threshold = e.extendThreshold
	duration = e.extendDuration
	if e.configs != nil {
		tMin := e.configs.GetInt(ctx, ConfigExtendThreshold, int(threshold/time.Minute))
		dMin := e.configs.GetInt(ctx, ConfigExtendDuration, int(duration/time.Minute))
		threshold = time.Duration(tMin) * time.Minute
		duration = time.Duration(dMin) * time.Minute
	}
	return threshold, duration
}

// BlockBidder bans a bidder from one auction, seller-only. Blocking the
// current winner reassigns the lead to the highest non-blocked bid, or
// resets the auction to its starting price when none remain.
func (e *Engine) BlockBidder(ctx context.Context, auctionID, sellerID, bidderID string) error {
	mu := e.locks.Lock(auctionID)
	defer mu.Unlock()

	a, err := e.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.SellerID != sellerID {
		return domain.ErrNotSeller
	}

	if err := e.blocks.BlockBidder(ctx, auctionID, bidderID); err != nil {
		return err
	}

	if a.CurrentWinnerID == bidderID {
		if err := e.reassignWinner(ctx, a); err != nil {
			return err
		}
	}

	slog.Info("bidder blocked",
		slog.String("auction_id", auctionID),
		slog.String("bidder_id", bidderID))
	return nil
}

// reassignWinner scans the ranked bid log for the first non-blocked bidder.
func (e *Engine) reassignWinner(ctx context.Context, a *domain.Auction) error {
	blocked, err := e.blocks.BlockedBidders(ctx, a.ID)
	if err != nil {
		return err
	}
	blockedSet := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		blockedSet[id] = struct{}{}
	}

	ranked, err := e.bids.BidsByAuctionRanked(ctx, a.ID, 0, 0)
	if err != nil {
		return err
	}

	a.CurrentWinnerID = ""
	a.CurrentPrice = a.StartingPrice
	for _, b := range ranked {
		if _, bad := blockedSet[b.BidderID]; bad {
			continue
		}
		a.CurrentWinnerID = b.BidderID
		a.CurrentPrice = b.Amount
		break
	}
	return e.auctions.SaveAuction(ctx, a)
}

// stamp returns a strictly increasing timestamp, so created_at alone is a
// total recency order across all bids the engine records.
func (e *Engine) stamp() time.Time {
	e.stampMu.Lock()
	defer e.stampMu.Unlock()
	now := e.now()
	if !now.After(e.lastStamp) {
		now = e.lastStamp.Add(time.Microsecond)
	}
	e.lastStamp = now
	return now
}
