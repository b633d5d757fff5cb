package ingest

import (
	"context"

	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/netsuite"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/salesforce"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/scheduler"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest",
	fx.Provide(salesforce.New),
	fx.Provide(netsuite.New),
	fx.Provide(service.NewService),
	fx.Provide(scheduler.NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *scheduler.Worker) {
	if !worker.Enabled() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
