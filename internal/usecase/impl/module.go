package impl

import "go.uber.org/fx"

// Module provides the use case implementations.
var Module = fx.Module("usecase",
	fx.Provide(
		NewAuthService,
		NewTwoFactorService,
		NewStatsService,
		NewMatchService,
	),
)
