package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the ledger tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Edition{},
		&schema.Asset{},
		&schema.Currency{},
		&schema.LedgerJournal{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Transact runs fn against a transaction-scoped store
func (s *pgStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// GetEdition retrieves the single edition row
func (s *pgStore) GetEdition(ctx context.Context) (*schema.Edition, error) {
	var edition schema.Edition
	err := s.db.WithContext(ctx).Where("id = ?", 1).First(&edition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get edition: %w", err)
	}
	return &edition, nil
}

// UpdateEdition persists edition-level changes
func (s *pgStore) UpdateEdition(ctx context.Context, edition *schema.Edition) error {
	edition.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(edition).Error; err != nil {
		return fmt.Errorf("failed to update edition: %w", err)
	}
	return nil
}

// GetAsset retrieves an asset by id
func (s *pgStore) GetAsset(ctx context.Context, id uint64) (*schema.Asset, error) {
	return s.getAsset(ctx, id, false)
}

// GetAssetForUpdate retrieves an asset with a row lock
func (s *pgStore) GetAssetForUpdate(ctx context.Context, id uint64) (*schema.Asset, error) {
	return s.getAsset(ctx, id, true)
}

func (s *pgStore) getAsset(ctx context.Context, id uint64, forUpdate bool) (*schema.Asset, error) {
	q := s.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var asset schema.Asset
	err := q.Where("id = ?", id).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// UpdateAsset persists asset ownership and stage changes
func (s *pgStore) UpdateAsset(ctx context.Context, asset *schema.Asset) error {
	asset.UpdatedAt = time.Now()
	// Save would skip zero-valued columns on update for some drivers; use an
	// explicit full-row update since every asset column is meaningful
	err := s.db.WithContext(ctx).Model(&schema.Asset{}).
		Where("id = ?", asset.ID).
		Select("owner", "stage", "pending_requester", "pending_currency", "pending_final", "final_details", "updated_at").
		Updates(asset).Error
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return nil
}

// CountAssetsByOwner returns the number of assets held by an address
func (s *pgStore) CountAssetsByOwner(ctx context.Context, owner string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Asset{}).
		Where("owner = ?", owner).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return count, nil
}

// ListAssets retrieves assets ordered by id, optionally filtered by owner
func (s *pgStore) ListAssets(ctx context.Context, owner *string, limit, offset int) ([]schema.Asset, error) {
	q := s.db.WithContext(ctx).Model(&schema.Asset{}).Order("id ASC")
	if owner != nil {
		q = q.Where("owner = ?", *owner)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var assets []schema.Asset
	if err := q.Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// ListCurrencies retrieves the stablecoin registry ordered by slot index
func (s *pgStore) ListCurrencies(ctx context.Context) ([]schema.Currency, error) {
	var currencies []schema.Currency
	err := s.db.WithContext(ctx).Order("idx ASC").Find(&currencies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	return currencies, nil
}

// ReplaceCurrencies atomically replaces the registry address list
func (s *pgStore) ReplaceCurrencies(ctx context.Context, addresses []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for i, addr := range addresses {
			row := schema.Currency{Idx: i, Address: addr, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "idx"}},
				DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("failed to replace currency %d: %w", i, err)
			}
		}
		return nil
	})
}

// AppendJournal appends an audit row
func (s *pgStore) AppendJournal(ctx context.Context, entry *schema.LedgerJournal) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return nil
}

// ListJournal retrieves journal rows ordered by id, optionally filtered by asset
func (s *pgStore) ListJournal(ctx context.Context, assetID *uint64, limit, offset int) ([]schema.LedgerJournal, error) {
	q := s.db.WithContext(ctx).Model(&schema.LedgerJournal{}).Order("id ASC")
	if assetID != nil {
		q = q.Where("asset_id = ?", *assetID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var entries []schema.LedgerJournal
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return entries, nil
}
