package issuer

import (
	"context"
	"fmt"

	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/providers/email"
	"github.com/checkoutplus/cashback/internal/providers/shopify"
	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	shopdomain "github.com/checkoutplus/cashback/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service converts one scheduled reward into a redeemable discount
// code on the platform, or an error for the next sweep to retry.
type Service interface {
	Issue(ctx context.Context, reward rewarddomain.PendingReward) (issuedCode string, err error)
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Shops    shopdomain.Repository
	Admin    shopify.AdminAPI
	Notifier email.Provider
	Cfg      config.Config
}

type Issuer struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	shops    shopdomain.Repository
	admin    shopify.AdminAPI
	notifier email.Provider
	cfg      config.Config
}

func New(p Params) Service {
	return &Issuer{
		db:       p.DB,
		log:      p.Log.Named("issuer"),
		clock:    p.Clock,
		shops:    p.Shops,
		admin:    p.Admin,
		notifier: p.Notifier,
		cfg:      p.Cfg,
	}
}

// Issue creates the discount code, tags the customer and notifies them.
// The code creation is the point of no return: once the platform
// confirms a code, tagging and notification failures are logged but do
// not fail the issuance. Every error before that point is retryable by
// the next sweep; nothing is persisted here.
func (i *Issuer) Issue(ctx context.Context, reward rewarddomain.PendingReward) (string, error) {
	log := i.log.With(
		zap.String("order_id", reward.OrderID),
		zap.String("order_name", reward.OrderName),
		zap.String("shop", reward.ShopDomain),
	)

	shop, err := i.shops.FindByDomain(ctx, i.db, reward.ShopDomain)
	if err != nil {
		return "", fmt.Errorf("lookup shop credentials: %w", err)
	}
	if shop == nil {
		return "", fmt.Errorf("%w: %s", shopdomain.ErrShopNotFound, reward.ShopDomain)
	}

	code, err := generateCode(i.cfg.CodePrefix)
	if err != nil {
		return "", err
	}

	now := i.clock.Now()
	amount := reward.RewardAmount
	input := shopify.DiscountInput{
		Title:    fmt.Sprintf("Cashback %s - Order %s", amount.StringFixed(2), reward.OrderName),
		Code:     code,
		StartsAt: now,
		EndsAt:   now.AddDate(0, 0, i.cfg.CodeExpiryDays),
		Amount:   amount,
	}

	customerScoped := false
	if reward.CustomerID != nil && *reward.CustomerID != "" {
		input.CustomerID = *reward.CustomerID
		customerScoped = true
	}

	created, err := i.admin.CreateDiscountCode(ctx, shop.Domain, shop.AccessToken, input)
	if err != nil {
		if !customerScoped || !shopify.IsInvalidCustomer(err) {
			return "", fmt.Errorf("create discount code: %w", err)
		}

		// The platform rejected the customer reference specifically.
		// One inline retry with the public all-customers scope; any
		// other failure goes back to the sweep.
		log.Warn("customer reference invalid, retrying with public code", zap.Error(err))
		input.CustomerID = ""
		customerScoped = false
		created, err = i.admin.CreateDiscountCode(ctx, shop.Domain, shop.AccessToken, input)
		if err != nil {
			return "", fmt.Errorf("create discount code (public fallback): %w", err)
		}
	}

	log.Info("discount code created",
		zap.String("code", created.Code),
		zap.String("discount_id", created.ID),
	)

	if customerScoped {
		if err := i.admin.TagCustomer(ctx, shop.Domain, shop.AccessToken, *reward.CustomerID, i.cfg.VIPTag); err != nil {
			log.Warn("failed to tag customer", zap.Error(err))
		}
	}

	i.notify(ctx, log, reward, created.Code)

	return created.Code, nil
}

// notify is best-effort: the reward already exists on the platform, so
// a lost notification must never roll the issuance back.
func (i *Issuer) notify(ctx context.Context, log *zap.Logger, reward rewarddomain.PendingReward, code string) {
	subject, body, err := email.RenderCashback(email.CashbackEmail{
		CustomerName: reward.CustomerName,
		DiscountCode: code,
		Amount:       "$" + reward.RewardAmount.StringFixed(2),
		OrderNumber:  reward.OrderName,
		ShopDomain:   reward.ShopDomain,
		ExpiryDate:   i.clock.Now().AddDate(0, 0, i.cfg.CodeExpiryDays),
		ExpiryDays:   i.cfg.CodeExpiryDays,
	})
	if err != nil {
		log.Error("failed to render notification", zap.Error(err))
		return
	}
	if err := i.notifier.Send(ctx, []string{reward.CustomerEmail}, subject, body); err != nil {
		log.Warn("failed to send notification",
			zap.String("email", reward.CustomerEmail),
			zap.Error(err),
		)
		return
	}
	log.Info("notification sent", zap.String("email", reward.CustomerEmail))
}
