package providers

import (
	"github.com/checkoutplus/cashback/internal/providers/email"
	"github.com/checkoutplus/cashback/internal/providers/shopify"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	shopify.Module,
)
