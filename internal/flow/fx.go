package flow

import (
	"github.com/sgericke98/beacon-l2c-sub000/internal/flow/fetcher"
	"github.com/sgericke98/beacon-l2c-sub000/internal/flow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("flow.service",
	fx.Provide(fetcher.New),
	fx.Provide(service.NewService),
)
