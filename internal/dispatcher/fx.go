package dispatcher

import (
	"github.com/checkoutplus/cashback/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatcher",
	fx.Provide(provideConfig),
	fx.Provide(New),
)

func provideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.DispatchInterval,
		BatchSize:   cfg.DispatchBatchSize,
		ClaimLease:  cfg.ClaimLease,
		MaxAttempts: cfg.MaxAttempts,
	}
}
