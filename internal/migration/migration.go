package migration

import (
	"fmt"

	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	shopdomain "github.com/checkoutplus/cashback/internal/shop/domain"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the schema on startup so the
// service is usable out of the box across all supported dialects.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migration database handle is required")
	}

	if err := db.AutoMigrate(
		&shopdomain.Shop{},
		&rewarddomain.PendingReward{},
	); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
