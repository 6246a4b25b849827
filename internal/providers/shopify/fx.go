package shopify

import (
	"github.com/checkoutplus/cashback/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.shopify",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) AdminAPI {
	return NewClient(Config{
		APIVersion: cfg.ShopifyAPIVersion,
		Timeout:    cfg.ExternalTimeout,
	}, log)
}
