package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/account"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/billing"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/charge"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/invoice"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/migration"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/observability"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/rate"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/runlock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/scheduler"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/usage"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		runlock.Module,

		account.Module,
		rate.Module,
		usage.Module,
		charge.Module,
		invoice.Module,
		billing.Module,

		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
