package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/currency"
	"github.com/sgericke98/beacon-l2c-sub000/internal/flow"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest"
	"github.com/sgericke98/beacon-l2c-sub000/internal/kpi"
	"github.com/sgericke98/beacon-l2c-sub000/internal/migration"
	"github.com/sgericke98/beacon-l2c-sub000/internal/mview"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability"
	"github.com/sgericke98/beacon-l2c-sub000/internal/seed"
	"github.com/sgericke98/beacon-l2c-sub000/internal/server"
	"github.com/sgericke98/beacon-l2c-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			if err := migration.Run(conn, log); err != nil {
				return err
			}
			if cfg.IsProduction() {
				return nil
			}
			return seed.EnsureExchangeRates(conn)
		}),

		currency.Module,
		mview.Module,
		flow.Module,
		kpi.Module,
		ingest.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
