package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/dispatcher"
	"github.com/checkoutplus/cashback/internal/issuer"
	"github.com/checkoutplus/cashback/internal/migration"
	"github.com/checkoutplus/cashback/internal/observability"
	"github.com/checkoutplus/cashback/internal/providers"
	"github.com/checkoutplus/cashback/internal/reward"
	"github.com/checkoutplus/cashback/internal/shop"
	"github.com/checkoutplus/cashback/pkg/db"
	"github.com/checkoutplus/cashback/pkg/log"
	"go.uber.org/fx"
)

// Standalone sweep worker for deployments without an external
// scheduler hitting the trigger endpoint. No server module.
func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		shop.Module,
		reward.Module,
		providers.Module,
		issuer.Module,
		dispatcher.Module,

		fx.Invoke(StartDispatcher),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func StartDispatcher(lc fx.Lifecycle, d *dispatcher.Dispatcher) {
	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go d.RunForever(loopCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
