package mview

import "go.uber.org/fx"

var Module = fx.Module("mview.refresher",
	fx.Provide(NewRefresher),
)
