package app

import (
	"context"
	"log/slog"

	"auction_go/internal/domain"
	"auction_go/internal/engine"
	"auction_go/internal/infra"
	"auction_go/internal/infra/storage"
	"auction_go/internal/notify"
	"auction_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	Hub       *notify.Hub
	Engine    *engine.Engine
	Scheduler *engine.Scheduler
	Closer    *engine.Closer
	Queries   *service.BidQueryService
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize wires config, logging, storage and the engine graph.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("bootstrapping auction engine...")

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized")

	b.Hub = notify.NewHub()
	events := notify.Fanout{notify.LogSink{}, b.Hub}

	locks := engine.NewLockTable()
	b.Closer = engine.NewCloser(store, store, events, locks)
	b.Scheduler = engine.NewScheduler(func(auctionID string) {
		if err := b.Closer.Close(context.Background(), auctionID, ""); err != nil {
			slog.Error("scheduled close failed", slog.String("auction_id", auctionID), slog.Any("error", err))
		}
	})

	b.Engine = engine.New(engine.Deps{
		Auctions:        store,
		Applier:         store,
		Bids:            store,
		Blocks:          store,
		Ratings:         allowAllRatings(),
		Configs:         store,
		Events:          events,
		Closer:          b.Closer,
		Scheduler:       b.Scheduler,
		Locks:           locks,
		ExtendThreshold: cfg.ExtendThreshold(),
		ExtendDuration:  cfg.ExtendDuration(),
	})

	b.Queries = service.NewBidQueryService(store, store)

	return nil
}

// RecoverActiveAuctions rebuilds close timers for every auction still ACTIVE
// in storage. Deadlines that passed while the process was down fire as soon
// as the scheduler loop runs.
func (b *Bootstrap) RecoverActiveAuctions(ctx context.Context) error {
	auctions, err := b.Storage.ActiveAuctions(ctx)
	if err != nil {
		return err
	}
	for _, a := range auctions {
		b.Scheduler.ScheduleClose(a.ID, a.EndTime)
	}
	slog.Info("recovered active auctions", slog.Int("count", len(auctions)))
	return nil
}

// allowAllRatings is the default eligibility predicate. Deployments with a
// rating system plug their own RatingChecker in here.
func allowAllRatings() domain.RatingChecker {
	return domain.RatingCheckerFunc(func(ctx context.Context, bidderID string) (bool, error) {
		return true, nil
	})
}
