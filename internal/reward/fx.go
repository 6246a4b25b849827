package reward

import (
	"github.com/checkoutplus/cashback/internal/reward/repository"
	"github.com/checkoutplus/cashback/internal/reward/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
