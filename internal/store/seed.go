package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mirrah-art/custody-ledger/internal/store/schema"
)

// Seed creates the edition row, the full asset inventory under the custody
// address, and the initial currency registry. Seeding is idempotent: an
// already-seeded database is left untouched, so restarting the service never
// resets ownership or stages.
func Seed(ctx context.Context, db *gorm.DB, edition schema.Edition, currencies []string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing schema.Edition
		err := tx.Where("id = ?", 1).First(&existing).Error
		if err == nil {
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to check edition: %w", err)
		}

		now := time.Now()
		edition.ID = 1
		edition.CreatedAt = now
		edition.UpdatedAt = now
		if err := tx.Create(&edition).Error; err != nil {
			return fmt.Errorf("failed to create edition: %w", err)
		}

		assets := make([]schema.Asset, 0, edition.TotalSupply)
		for id := uint64(0); id < edition.TotalSupply; id++ {
			assets = append(assets, schema.Asset{
				ID:        id,
				Owner:     edition.CustodyAddress,
				Stage:     0,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err := tx.CreateInBatches(assets, 500).Error; err != nil {
			return fmt.Errorf("failed to seed assets: %w", err)
		}

		for i, addr := range currencies {
			row := schema.Currency{Idx: i, Address: addr, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "idx"}},
				DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("failed to seed currency %d: %w", i, err)
			}
		}

		return nil
	})
}
