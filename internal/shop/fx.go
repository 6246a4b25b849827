package shop

import (
	"github.com/checkoutplus/cashback/internal/shop/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("shop",
	fx.Provide(repository.Provide),
)
