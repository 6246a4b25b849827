package repository

import (
	"context"

	"github.com/checkoutplus/cashback/internal/shop/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, shop *domain.Shop) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "active", "updated_at"}),
		}).
		Create(shop).Error
}

func (r *repo) FindByDomain(ctx context.Context, db *gorm.DB, shopDomain string) (*domain.Shop, error) {
	var shop domain.Shop
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM shops WHERE domain = ? AND active = ?`,
		shopDomain,
		true,
	).Scan(&shop).Error
	if err != nil {
		return nil, err
	}
	if shop.ID == 0 {
		return nil, nil
	}
	return &shop, nil
}
