package issuer

import "go.uber.org/fx"

var Module = fx.Module("issuer",
	fx.Provide(New),
)
