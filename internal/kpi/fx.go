package kpi

import (
	"github.com/sgericke98/beacon-l2c-sub000/internal/kpi/service"
	"go.uber.org/fx"
)

var Module = fx.Module("kpi.service",
	fx.Provide(service.NewService),
)
