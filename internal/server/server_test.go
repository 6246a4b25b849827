package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/dispatcher"
	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	rewardrepo "github.com/checkoutplus/cashback/internal/reward/repository"
	rewardservice "github.com/checkoutplus/cashback/internal/reward/service"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubIssuer struct{}

func (stubIssuer) Issue(ctx context.Context, reward rewarddomain.PendingReward) (string, error) {
	return "CASHBACK" + reward.OrderID, nil
}

type serverFixture struct {
	server *Server
	db     *gorm.DB
	clock  *clock.FakeClock
	node   *snowflake.Node
}

func newServerFixture(t *testing.T, cfg config.Config) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&rewarddomain.PendingReward{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	if cfg.CashbackPercent == 0 {
		cfg.CashbackPercent = 5
	}
	if cfg.RewardDelay == 0 {
		cfg.RewardDelay = 720 * time.Hour
	}

	repo := rewardrepo.Provide()
	svc := rewardservice.New(rewardservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repo,
		Cfg:   cfg,
	})

	d, err := dispatcher.New(dispatcher.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fakeClock,
		Rewards: repo,
		Issuer:  stubIssuer{},
	})
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:        NewEngine(cfg),
		Cfg:        cfg,
		DB:         db,
		Log:        zap.NewNop(),
		RewardSvc:  svc,
		RewardRepo: repo,
		Dispatcher: d,
	})
	return &serverFixture{server: srv, db: db, clock: fakeClock, node: node}
}

func (f *serverFixture) request(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

const orderPayload = `{
	"id": 5001,
	"name": "#5001",
	"email": "buyer@example.com",
	"total_price": "100.00",
	"created_at": "2025-08-01T00:00:00Z",
	"customer": {"id": 777, "first_name": "Ana"},
	"note_attributes": [{"name": "_protection_enabled", "value": "true"}],
	"line_items": [{"title": "Plain T-Shirt"}]
}`

func TestHandleOrderCreated(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	headers := map[string]string{"X-Shopify-Shop-Domain": "demo.myshopify.com"}

	rec := f.request(http.MethodPost, "/webhooks/orders/create", orderPayload, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "created", resp.Status)
	assert.Equal(t, "5001", resp.OrderID)

	var reward rewarddomain.PendingReward
	require.NoError(t, f.db.Raw(`SELECT * FROM pending_rewards WHERE order_id = ?`, "5001").Scan(&reward).Error)
	assert.Equal(t, "5.00", reward.RewardAmount.StringFixed(2))
	require.NotNil(t, reward.CustomerID)
	assert.Equal(t, "777", *reward.CustomerID)

	t.Run("redelivery reports duplicate", func(t *testing.T) {
		rec := f.request(http.MethodPost, "/webhooks/orders/create", orderPayload, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "duplicate", resp.Status)
	})
}

func TestHandleOrderCreated_SkipsWithoutProtection(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	payload := strings.Replace(orderPayload, `"value": "true"`, `"value": "false"`, 1)
	payload = strings.Replace(payload, `"id": 5001`, `"id": 5002`, 1)

	rec := f.request(http.MethodPost, "/webhooks/orders/create", payload,
		map[string]string{"X-Shopify-Shop-Domain": "demo.myshopify.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "skipped", resp.Status)
}

func TestHandleOrderCreated_ValidationAnswers200(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.request(http.MethodPost, "/webhooks/orders/create", "{not json", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp webhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "skipped", resp.Status)
	})

	t.Run("missing email", func(t *testing.T) {
		payload := strings.Replace(orderPayload, `"email": "buyer@example.com",`, "", 1)
		payload = strings.Replace(payload, `"customer": {"id": 777, "first_name": "Ana"},`, "", 1)
		rec := f.request(http.MethodPost, "/webhooks/orders/create", payload,
			map[string]string{"X-Shopify-Shop-Domain": "demo.myshopify.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp webhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "skipped", resp.Status)
		assert.Equal(t, "missing_email", resp.Message)
	})

	t.Run("missing shop domain", func(t *testing.T) {
		rec := f.request(http.MethodPost, "/webhooks/orders/create", orderPayload, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp webhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "skipped", resp.Status)
		assert.Equal(t, "missing_shop_domain", resp.Message)
	})
}

func TestHandleProcessCashback(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	require.NoError(t, f.db.Create(&rewarddomain.PendingReward{
		ID:            f.node.Generate(),
		OrderID:       "6001",
		OrderName:     "#6001",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Ana",
		RewardAmount:  decimal.RequireFromString("5.00"),
		ShopDomain:    "demo.myshopify.com",
		CreatedAt:     f.clock.Now().Add(-720 * time.Hour),
		DispatchAt:    f.clock.Now().Add(-time.Hour),
		UpdatedAt:     f.clock.Now(),
	}).Error)

	rec := f.request(http.MethodPost, "/api/process-cashback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dispatcher.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Zero(t, summary.Failed)

	var reward rewarddomain.PendingReward
	require.NoError(t, f.db.Raw(`SELECT * FROM pending_rewards WHERE order_id = ?`, "6001").Scan(&reward).Error)
	assert.True(t, reward.Sent)
}

func TestHandleProcessCashback_CronSecret(t *testing.T) {
	f := newServerFixture(t, config.Config{CronSecret: "sweep-secret"})

	t.Run("missing token", func(t *testing.T) {
		rec := f.request(http.MethodPost, "/api/process-cashback", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := f.request(http.MethodPost, "/api/process-cashback", "",
			map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct token", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/process-cashback", "",
			map[string]string{"Authorization": "Bearer sweep-secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleListRewards(t *testing.T) {
	f := newServerFixture(t, config.Config{})

	for i, orderID := range []string{"7001", "7002", "7003"} {
		reward := &rewarddomain.PendingReward{
			ID:            f.node.Generate(),
			OrderID:       orderID,
			OrderName:     "#" + orderID,
			CustomerEmail: "buyer@example.com",
			CustomerName:  "Ana",
			RewardAmount:  decimal.RequireFromString("5.00"),
			ShopDomain:    "demo.myshopify.com",
			CreatedAt:     f.clock.Now(),
			DispatchAt:    f.clock.Now().Add(time.Duration(i) * time.Hour),
			UpdatedAt:     f.clock.Now(),
		}
		if i == 0 {
			reward.Sent = true
		}
		require.NoError(t, f.db.Create(reward).Error)
	}

	t.Run("all", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/rewards", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp listRewardsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Rewards, 3)
		assert.False(t, resp.PageInfo.HasMore)
	})

	t.Run("sent filter", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/rewards?sent=true", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp listRewardsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Rewards, 1)
		assert.Equal(t, "7001", resp.Rewards[0].OrderID)
	})

	t.Run("invalid sent value", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/rewards?sent=maybe", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pagination", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/rewards?page_size=2", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp listRewardsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Rewards, 2)
		require.True(t, resp.PageInfo.HasMore)

		rec = f.request(http.MethodGet, "/api/rewards?page_size=2&page_token="+url.QueryEscape(resp.PageInfo.NextPageToken), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Rewards, 1)
		assert.Equal(t, "7003", resp.Rewards[0].OrderID)
	})
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t, config.Config{})
	rec := f.request(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
