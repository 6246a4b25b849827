package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/checkoutplus/cashback/internal/reward/domain"
	"github.com/checkoutplus/cashback/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PendingReward{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newReward(node *snowflake.Node, orderID string, dispatchAt time.Time) *domain.PendingReward {
	return &domain.PendingReward{
		ID:            node.Generate(),
		OrderID:       orderID,
		OrderName:     "#" + orderID,
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Ana",
		RewardAmount:  decimal.RequireFromString("5.00"),
		ShopDomain:    "demo.myshopify.com",
		CreatedAt:     dispatchAt.Add(-720 * time.Hour),
		DispatchAt:    dispatchAt,
		UpdatedAt:     dispatchAt.Add(-720 * time.Hour),
	}
}

func TestInsertIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	created, err := repo.InsertIfAbsent(ctx, db, newReward(node, "9001", at))
	require.NoError(t, err)
	assert.True(t, created)

	// Same order id, different snowflake id: must report duplicate.
	created, err = repo.InsertIfAbsent(ctx, db, newReward(node, "9001", at))
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&domain.PendingReward{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestClaimDue_SelectsDueInOrder(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	later := newReward(node, "due-later", now.Add(-1*time.Hour))
	earlier := newReward(node, "due-earlier", now.Add(-48*time.Hour))
	future := newReward(node, "not-due", now.Add(time.Hour))
	for _, r := range []*domain.PendingReward{later, earlier, future} {
		_, err := repo.InsertIfAbsent(ctx, db, r)
		require.NoError(t, err)
	}

	claimed, err := repo.ClaimDue(ctx, db, now, 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "due-earlier", claimed[0].OrderID)
	assert.Equal(t, "due-later", claimed[1].OrderID)
	assert.True(t, claimed[0].Due(now))
	assert.False(t, future.Due(now))
}

func TestClaimDue_LeaseBlocksSecondSweep(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertIfAbsent(ctx, db, newReward(node, "9100", now.Add(-time.Hour)))
	require.NoError(t, err)

	first, err := repo.ClaimDue(ctx, db, now, 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Within the lease the record is invisible to a concurrent sweep.
	second, err := repo.ClaimDue(ctx, db, now.Add(time.Minute), 5*time.Minute, 30, 10)
	require.NoError(t, err)
	assert.Empty(t, second)

	// After the lease expires a crashed worker's claim is recoverable.
	third, err := repo.ClaimDue(ctx, db, now.Add(6*time.Minute), 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "9100", third[0].OrderID)
}

func TestClaimDue_SkipsExhaustedAndSent(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	exhausted := newReward(node, "9200", now.Add(-time.Hour))
	exhausted.RetryCount = 30
	require.NoError(t, db.Create(exhausted).Error)

	sent := newReward(node, "9201", now.Add(-time.Hour))
	sent.Sent = true
	require.NoError(t, db.Create(sent).Error)

	claimable := newReward(node, "9202", now.Add(-time.Hour))
	require.NoError(t, db.Create(claimable).Error)

	claimed, err := repo.ClaimDue(ctx, db, now, 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "9202", claimed[0].OrderID)

	// maxAttempts 0 means keep retrying forever.
	require.NoError(t, repo.MarkFailed(ctx, db, "9202", "boom", now))
	claimed, err = repo.ClaimDue(ctx, db, now.Add(10*time.Minute), 5*time.Minute, 0, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
}

func TestMarkSent_IsTerminal(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertIfAbsent(ctx, db, newReward(node, "9300", now.Add(-time.Hour)))
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(ctx, db, "9300", "CASHBACKAAAA1111", now))

	got, err := repo.FindByOrderID(ctx, db, "9300")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Sent)
	require.NotNil(t, got.IssuedCode)
	assert.Equal(t, "CASHBACKAAAA1111", *got.IssuedCode)
	require.NotNil(t, got.SentAt)
	assert.Nil(t, got.ClaimedUntil)

	// A second MarkSent must not overwrite the recorded code.
	require.NoError(t, repo.MarkSent(ctx, db, "9300", "CASHBACKBBBB2222", now.Add(time.Hour)))
	got, err = repo.FindByOrderID(ctx, db, "9300")
	require.NoError(t, err)
	assert.Equal(t, "CASHBACKAAAA1111", *got.IssuedCode)

	// And the record never comes back from a sweep.
	claimed, err := repo.ClaimDue(ctx, db, now.Add(24*time.Hour), 5*time.Minute, 30, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestMarkFailed_AccumulatesAndReleases(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertIfAbsent(ctx, db, newReward(node, "9400", now.Add(-time.Hour)))
	require.NoError(t, err)

	claimed, err := repo.ClaimDue(ctx, db, now, 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, repo.MarkFailed(ctx, db, "9400", "admin api status 500", now))
	require.NoError(t, repo.MarkFailed(ctx, db, "9400", "admin api status 502", now.Add(time.Minute)))

	got, err := repo.FindByOrderID(ctx, db, "9400")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "admin api status 502", *got.LastError)
	assert.False(t, got.Sent)

	// Releasing the claim makes the record due again immediately.
	claimed, err = repo.ClaimDue(ctx, db, now.Add(2*time.Minute), 5*time.Minute, 30, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		r := newReward(node, string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		if i == 0 {
			r.Sent = true
		}
		require.NoError(t, db.Create(r).Error)
	}
	other := newReward(node, "other-shop", base)
	other.ShopDomain = "other.myshopify.com"
	require.NoError(t, db.Create(other).Error)

	t.Run("shop filter", func(t *testing.T) {
		rewards, err := repo.List(ctx, db, domain.ListRewardFilter{ShopDomain: "other.myshopify.com"}, pagination.Pagination{PageSize: 10})
		require.NoError(t, err)
		require.Len(t, rewards, 1)
		assert.Equal(t, "other-shop", rewards[0].OrderID)
	})

	t.Run("sent filter", func(t *testing.T) {
		sent := true
		rewards, err := repo.List(ctx, db, domain.ListRewardFilter{ShopDomain: "demo.myshopify.com", Sent: &sent}, pagination.Pagination{PageSize: 10})
		require.NoError(t, err)
		require.Len(t, rewards, 1)
		assert.Equal(t, "a", rewards[0].OrderID)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		page1, err := repo.List(ctx, db, domain.ListRewardFilter{ShopDomain: "demo.myshopify.com"}, pagination.Pagination{PageSize: 2})
		require.NoError(t, err)
		// limit+1 rows signal another page
		require.Len(t, page1, 3)

		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:         page1[1].ID.String(),
			DispatchAt: page1[1].DispatchAt.Format(time.RFC3339Nano),
		})
		require.NoError(t, err)

		page2, err := repo.List(ctx, db, domain.ListRewardFilter{ShopDomain: "demo.myshopify.com"}, pagination.Pagination{PageToken: token, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, page2, 3)
		assert.Equal(t, "c", page2[0].OrderID)
	})
}
