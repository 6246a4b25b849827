package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/checkoutplus/cashback/internal/clock"
	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/dispatcher"
	"github.com/checkoutplus/cashback/internal/issuer"
	"github.com/checkoutplus/cashback/internal/migration"
	"github.com/checkoutplus/cashback/internal/observability"
	"github.com/checkoutplus/cashback/internal/providers"
	"github.com/checkoutplus/cashback/internal/reward"
	"github.com/checkoutplus/cashback/internal/server"
	"github.com/checkoutplus/cashback/internal/shop"
	"github.com/checkoutplus/cashback/pkg/db"
	"github.com/checkoutplus/cashback/pkg/log"
	"go.uber.org/fx"
)

// The web entrypoint serves webhook intake, the rewards API and the
// external sweep trigger. It does not run a sweep loop of its own;
// pair it with apps/dispatcher or an external scheduler.
func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		shop.Module,
		reward.Module,
		providers.Module,
		issuer.Module,
		dispatcher.Module,

		server.Module,
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
