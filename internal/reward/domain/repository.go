package domain

import (
	"context"
	"time"

	"github.com/checkoutplus/cashback/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRewardFilter struct {
	ShopDomain string
	Sent       *bool
}

type Repository interface {
	// InsertIfAbsent inserts the record unless a row with the same
	// order id already exists. Duplicates report created=false with a
	// nil error; they are an expected outcome, not a failure.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, reward *PendingReward) (created bool, err error)

	// ClaimDue atomically claims up to limit due, unsent records by
	// stamping a lease, ascending by dispatch time. A record whose lease
	// has not expired, or whose retry count reached maxAttempts
	// (when maxAttempts > 0), is not returned. Claims taken by a
	// concurrent sweep are skipped, never double-returned.
	ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, lease time.Duration, maxAttempts, limit int) ([]PendingReward, error)

	// MarkSent records the single successful issuance: flips sent,
	// stores the platform-confirmed code, clears the error and lease.
	// A record already sent is left untouched.
	MarkSent(ctx context.Context, db *gorm.DB, orderID, code string, sentAt time.Time) error

	// MarkFailed increments the retry count, overwrites the last error
	// and releases the claim so the next sweep can retry.
	MarkFailed(ctx context.Context, db *gorm.DB, orderID, errMsg string, now time.Time) error

	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*PendingReward, error)
	List(ctx context.Context, db *gorm.DB, filter ListRewardFilter, page pagination.Pagination) ([]*PendingReward, error)
}
