package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PendingReward is the durable record of one scheduled cashback reward.
// OrderID is the idempotency key: at most one row per platform order,
// ever. Outcome fields (Sent, SentAt, IssuedCode, RetryCount, LastError)
// are written only by MarkSent/MarkFailed.
type PendingReward struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrderID       string            `gorm:"not null;uniqueIndex:ux_pending_rewards_order_id" json:"order_id"`
	OrderName     string            `gorm:"not null" json:"order_name"`
	CustomerEmail string            `gorm:"not null" json:"customer_email"`
	CustomerName  string            `gorm:"not null" json:"customer_name"`
	CustomerID    *string           `json:"customer_id,omitempty"`
	RewardAmount  decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"reward_amount"`
	ShopDomain    string            `gorm:"not null;index" json:"shop_domain"`
	Attributes    datatypes.JSONMap `gorm:"type:jsonb" json:"attributes,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	DispatchAt    time.Time         `gorm:"not null;index:ix_pending_rewards_due,priority:2" json:"dispatch_at"`
	Sent          bool              `gorm:"not null;default:false;index:ix_pending_rewards_due,priority:1" json:"sent"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	IssuedCode    *string           `gorm:"uniqueIndex:ux_pending_rewards_issued_code" json:"issued_code,omitempty"`
	RetryCount    int               `gorm:"not null;default:0" json:"retry_count"`
	LastError     *string           `json:"last_error,omitempty"`
	ClaimedUntil  *time.Time        `json:"-"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (PendingReward) TableName() string {
	return "pending_rewards"
}

// Due reports whether the record is eligible for a dispatch attempt at now.
func (r PendingReward) Due(now time.Time) bool {
	return !r.Sent && !r.DispatchAt.After(now)
}
