package observability

import (
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Invoke(ensureDispatchMetrics),
)

func ensureDispatchMetrics(cfg config.Config) {
	metrics.DispatchWithConfig(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}
