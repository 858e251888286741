package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"auction_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists auctions, the append-only bid log, blocked bidders,
// transactions and system config on SQLite. It implements the accessor
// interfaces in the domain package.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance. An empty path resolves
// to a per-user default location.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		resolved, err := defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.Auction{},
		&domain.Bid{},
		&domain.BlockedBidder{},
		&domain.Transaction{},
		&domain.SystemConfig{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "AuctionGo", "data", "auction.db"), nil
}

// ======================================================================================
// Auction Operations
// ======================================================================================

// CreateAuction inserts a new auction record.
func (s *Storage) CreateAuction(ctx context.Context, a *domain.Auction) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// GetAuction retrieves an auction by id.
func (s *Storage) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	var a domain.Auction
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAuction writes the mutable auction fields with a compare-and-swap on
// Version. All fields land in one UPDATE, so price/winner/bidCount and
// status/winner changes are applied atomically or not at all.
func (s *Storage) SaveAuction(ctx context.Context, a *domain.Auction) error {
	prev := a.Version
	res := s.db.WithContext(ctx).Model(&domain.Auction{}).
		Where("id = ? AND version = ?", a.ID, prev).
		Updates(map[string]any{
			"current_price":     a.CurrentPrice,
			"current_winner_id": a.CurrentWinnerID,
			"bid_count":         a.BidCount,
			"status":            a.Status,
			"end_time":          a.EndTime,
			"version":           prev + 1,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	a.Version = prev + 1
	return nil
}

// ApplyBid appends a bid and applies its auction update in one transaction,
// compare-and-swap on Version. Either both writes land or neither does.
func (s *Storage) ApplyBid(ctx context.Context, a *domain.Auction, b *domain.Bid) error {
	prev := a.Version
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Auction{}).
			Where("id = ? AND version = ?", a.ID, prev).
			Updates(map[string]any{
				"current_price":     a.CurrentPrice,
				"current_winner_id": a.CurrentWinnerID,
				"bid_count":         a.BidCount,
				"status":            a.Status,
				"end_time":          a.EndTime,
				"version":           prev + 1,
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrVersionConflict
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return err
	}
	a.Version = prev + 1
	return nil
}

// ActiveAuctions returns all auctions still in the ACTIVE state, used to
// rebuild close timers after a restart.
func (s *Storage) ActiveAuctions(ctx context.Context) ([]domain.Auction, error) {
	var auctions []domain.Auction
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.AuctionActive).
		Find(&auctions).Error
	return auctions, err
}

// ======================================================================================
// Bid Log Operations
// ======================================================================================

// InsertBid appends a bid to the log. Bids are never updated.
func (s *Storage) InsertBid(ctx context.Context, b *domain.Bid) error {
	return s.db.WithContext(ctx).Create(b).Error
}

// BidsByAuctionRanked returns bids ordered by (amount desc, created_at asc).
func (s *Storage) BidsByAuctionRanked(ctx context.Context, auctionID string, limit, offset int) ([]domain.Bid, error) {
	var bids []domain.Bid
	q := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount desc, created_at asc")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&bids).Error
	return bids, err
}

// BidsByAuctionRecent returns bids ordered newest first.
func (s *Storage) BidsByAuctionRecent(ctx context.Context, auctionID string, limit, offset int) ([]domain.Bid, error) {
	var bids []domain.Bid
	q := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&bids).Error
	return bids, err
}

// BidsByBidderRecent returns one bidder's bids across auctions, newest first.
func (s *Storage) BidsByBidderRecent(ctx context.Context, bidderID string, limit, offset int) ([]domain.Bid, error) {
	var bids []domain.Bid
	q := s.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&bids).Error
	return bids, err
}

// ProxyBidsExcluding returns every proxy-enabled bid on the auction except
// those placed by bidderID, oldest first.
func (s *Storage) ProxyBidsExcluding(ctx context.Context, auctionID, bidderID string) ([]domain.Bid, error) {
	var bids []domain.Bid
	err := s.db.WithContext(ctx).
		Where("auction_id = ? AND bidder_id <> ? AND is_proxy = ?", auctionID, bidderID, true).
		Order("created_at asc").
		Find(&bids).Error
	return bids, err
}

// ======================================================================================
// Blocked Bidder Operations
// ======================================================================================

// BlockBidder records a per-auction ban. Blocking twice is an error.
func (s *Storage) BlockBidder(ctx context.Context, auctionID, bidderID string) error {
	blocked, err := s.IsBlocked(ctx, auctionID, bidderID)
	if err != nil {
		return err
	}
	if blocked {
		return domain.ErrAlreadyBlocked
	}
	return s.db.WithContext(ctx).Create(&domain.BlockedBidder{
		AuctionID: auctionID,
		BidderID:  bidderID,
		CreatedAt: time.Now(),
	}).Error
}

// IsBlocked reports whether bidderID is banned from the auction.
func (s *Storage) IsBlocked(ctx context.Context, auctionID, bidderID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.BlockedBidder{}).
		Where("auction_id = ? AND bidder_id = ?", auctionID, bidderID).
		Count(&count).Error
	return count > 0, err
}

// BlockedBidders returns all bidder ids banned from the auction.
func (s *Storage) BlockedBidders(ctx context.Context, auctionID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.BlockedBidder{}).
		Where("auction_id = ?", auctionID).
		Pluck("bidder_id", &ids).Error
	return ids, err
}

// ======================================================================================
// Transaction Operations
// ======================================================================================

// CreateTransaction records a settlement for a won auction.
func (s *Storage) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// TransactionByAuction retrieves the settlement for an auction, or nil.
func (s *Storage) TransactionByAuction(ctx context.Context, auctionID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.WithContext(ctx).First(&t, "auction_id = ?", auctionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig stores an admin-tunable setting.
func (s *Storage) SaveConfig(ctx context.Context, key, value string) error {
	cfg := domain.SystemConfig{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Save(&cfg).Error
}

// GetInt reads an integer setting, falling back to def when the key is
// missing or the value does not parse.
func (s *Storage) GetInt(ctx context.Context, key string, def int) int {
	var cfg domain.SystemConfig
	err := s.db.WithContext(ctx).First(&cfg, "key = ?", key).Error
	if err != nil {
		return def
	}
	v, err := strconv.Atoi(cfg.Value)
	if err != nil {
		return def
	}
	return v
}
