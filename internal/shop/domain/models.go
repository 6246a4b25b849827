package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Shop holds one tenant's platform credentials, written by the install
// flow and read by the issuer when calling the admin API.
type Shop struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Domain      string       `gorm:"not null;uniqueIndex:ux_shops_domain" json:"domain"`
	AccessToken string       `gorm:"not null" json:"-"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Shop) TableName() string {
	return "shops"
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, shop *Shop) error
	FindByDomain(ctx context.Context, db *gorm.DB, domain string) (*Shop, error)
}

var ErrShopNotFound = errors.New("shop_not_found")
