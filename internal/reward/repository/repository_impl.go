package repository

import (
	"context"
	"time"

	"github.com/checkoutplus/cashback/internal/reward/domain"
	pkgdb "github.com/checkoutplus/cashback/pkg/db"
	"github.com/checkoutplus/cashback/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, reward *domain.PendingReward) (bool, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO pending_rewards (
			id, order_id, order_name, customer_email, customer_name, customer_id,
			reward_amount, shop_domain, attributes, created_at, dispatch_at,
			sent, retry_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reward.ID,
		reward.OrderID,
		reward.OrderName,
		reward.CustomerEmail,
		reward.CustomerName,
		reward.CustomerID,
		reward.RewardAmount,
		reward.ShopDomain,
		reward.Attributes,
		reward.CreatedAt,
		reward.DispatchAt,
		false,
		0,
		reward.UpdatedAt,
	).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, lease time.Duration, maxAttempts, limit int) ([]domain.PendingReward, error) {
	var claimed []domain.PendingReward
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT * FROM pending_rewards
			 WHERE sent = ?
			   AND dispatch_at <= ?
			   AND (claimed_until IS NULL OR claimed_until <= ?)`
		args := []any{false, now, now}
		if maxAttempts > 0 {
			query += ` AND retry_count < ?`
			args = append(args, maxAttempts)
		}
		query += ` ORDER BY dispatch_at ASC, id ASC LIMIT ?`
		args = append(args, limit)

		var candidates []domain.PendingReward
		if err := tx.Raw(query, args...).Scan(&candidates).Error; err != nil {
			return err
		}

		leaseUntil := now.Add(lease)
		for _, candidate := range candidates {
			// Conditional update per row: a concurrent sweep that won
			// the race leaves claimed_until in the future and the
			// update affects zero rows, so the record is skipped here.
			result := tx.Exec(
				`UPDATE pending_rewards
				 SET claimed_until = ?, updated_at = ?
				 WHERE id = ?
				   AND sent = ?
				   AND (claimed_until IS NULL OR claimed_until <= ?)`,
				leaseUntil,
				now,
				candidate.ID,
				false,
				now,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}
			candidate.ClaimedUntil = &leaseUntil
			claimed = append(claimed, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, orderID, code string, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE pending_rewards
		 SET sent = ?, sent_at = ?, issued_code = ?,
		     last_error = NULL, claimed_until = NULL, updated_at = ?
		 WHERE order_id = ? AND sent = ?`,
		true,
		sentAt,
		code,
		sentAt,
		orderID,
		false,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, orderID, errMsg string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE pending_rewards
		 SET retry_count = retry_count + 1, last_error = ?,
		     claimed_until = NULL, updated_at = ?
		 WHERE order_id = ? AND sent = ?`,
		errMsg,
		now,
		orderID,
		false,
	).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.PendingReward, error) {
	var reward domain.PendingReward
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM pending_rewards WHERE order_id = ?`,
		orderID,
	).Scan(&reward).Error
	if err != nil {
		return nil, err
	}
	if reward.ID == 0 {
		return nil, nil
	}
	return &reward, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRewardFilter, page pagination.Pagination) ([]*domain.PendingReward, error) {
	var rewards []*domain.PendingReward
	stmt := db.WithContext(ctx).Model(&domain.PendingReward{})
	if filter.ShopDomain != "" {
		stmt = stmt.Where("shop_domain = ?", filter.ShopDomain)
	}
	if filter.Sent != nil {
		stmt = stmt.Where("sent = ?", *filter.Sent)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.DispatchAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(dispatch_at > ?) OR (dispatch_at = ? AND id > ?)", after, after, cursor.ID)
	}
	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	err := stmt.
		Order("dispatch_at asc, id asc").
		Limit(pageSize + 1).
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}
