package email

import (
	"github.com/checkoutplus/cashback/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.ResendAPIKey == "" {
		log.Named("providers.email").Warn("no email API key configured, notifications disabled")
		return &NoOpProvider{}
	}
	return NewResend(Config{
		APIKey:  cfg.ResendAPIKey,
		From:    cfg.EmailFrom,
		Timeout: cfg.ExternalTimeout,
	})
}
