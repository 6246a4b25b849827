package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/reward/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	attrProtectionEnabled = "_protection_enabled"
	attrCashbackAmount    = "_cashback_amount"

	anonymousCustomerName = "Valued Customer"
)

// Line-item titles that signal the protection add-on when the explicit
// attribute is absent.
var protectionKeywords = []string{"order protection", "protection", "checkout+"}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Cfg   config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cfg   config.Config
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reward.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cfg:   p.Cfg,
	}
}

// Intake validates a purchase-completion event and schedules a reward
// for it. Orders without the protection opt-in are skipped; duplicate
// deliveries of the same order are an idempotent no-op.
func (s *Service) Intake(ctx context.Context, event domain.OrderEvent) (domain.IntakeResult, error) {
	if strings.TrimSpace(event.OrderID) == "" {
		return domain.IntakeResult{}, domain.ErrMissingOrderID
	}
	if strings.TrimSpace(event.Email) == "" {
		return domain.IntakeResult{}, domain.ErrMissingEmail
	}
	if strings.TrimSpace(event.ShopDomain) == "" {
		return domain.IntakeResult{}, domain.ErrMissingShopDomain
	}

	if !hasProtection(event) {
		s.log.Debug("protection not enabled, skipping",
			zap.String("order_id", event.OrderID),
			zap.String("shop", event.ShopDomain),
		)
		return domain.IntakeResult{Outcome: domain.IntakeSkipped}, nil
	}

	amount, err := s.rewardAmount(event)
	if err != nil {
		return domain.IntakeResult{}, err
	}

	now := s.clock.Now()
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	customerName := strings.TrimSpace(event.CustomerFirstName)
	if customerName == "" {
		customerName = anonymousCustomerName
	}

	var customerID *string
	if id := strings.TrimSpace(event.CustomerID); id != "" {
		customerID = &id
	}

	attributes := datatypes.JSONMap{}
	for _, attr := range event.NoteAttributes {
		attributes[attr.Name] = attr.Value
	}

	reward := &domain.PendingReward{
		ID:            s.genID.Generate(),
		OrderID:       event.OrderID,
		OrderName:     event.OrderName,
		CustomerEmail: event.Email,
		CustomerName:  customerName,
		CustomerID:    customerID,
		RewardAmount:  amount,
		ShopDomain:    event.ShopDomain,
		Attributes:    attributes,
		CreatedAt:     createdAt,
		DispatchAt:    createdAt.Add(s.cfg.RewardDelay),
		UpdatedAt:     now,
	}

	created, err := s.repo.InsertIfAbsent(ctx, s.db, reward)
	if err != nil {
		return domain.IntakeResult{}, err
	}
	if !created {
		s.log.Info("duplicate order event ignored",
			zap.String("order_id", event.OrderID),
			zap.String("shop", event.ShopDomain),
		)
		return domain.IntakeResult{Outcome: domain.IntakeDuplicate}, nil
	}

	s.log.Info("reward scheduled",
		zap.String("order_id", event.OrderID),
		zap.String("order_name", event.OrderName),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("dispatch_at", reward.DispatchAt),
	)
	return domain.IntakeResult{Outcome: domain.IntakeCreated, Reward: reward}, nil
}

func hasProtection(event domain.OrderEvent) bool {
	if event.Attribute(attrProtectionEnabled) == "true" {
		return true
	}
	for _, item := range event.LineItems {
		title := strings.ToLower(item.Title)
		if title == "" {
			title = strings.ToLower(item.Name)
		}
		for _, keyword := range protectionKeywords {
			if strings.Contains(title, keyword) {
				return true
			}
		}
	}
	return false
}

// rewardAmount prefers the precomputed checkout attribute and falls
// back to a percentage of the order total, rounded to 2 decimals.
func (s *Service) rewardAmount(event domain.OrderEvent) (decimal.Decimal, error) {
	if raw := strings.TrimSpace(event.Attribute(attrCashbackAmount)); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err == nil && amount.IsPositive() {
			return amount.Round(2), nil
		}
	}

	total, err := decimal.NewFromString(strings.TrimSpace(event.TotalPrice))
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	percent := decimal.NewFromFloat(s.cfg.CashbackPercent)
	amount := total.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}
