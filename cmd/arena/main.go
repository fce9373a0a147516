package main

import (
	"context"
	"log/slog"
	"os"

	"arena/config"
	"arena/internal/delivery"
	"arena/internal/delivery/api"
	"arena/internal/infra/auth"
	logs "arena/internal/infra/log"
	"arena/internal/infra/metrics"
	"arena/internal/infra/persistence"
	"arena/internal/infra/pubsub"
	"arena/internal/infra/qrcode"
	"arena/internal/infra/sanitize"
	"arena/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		persistence.Module,
		injectService(),
		pubsub.Module,
		impl.Module,
		api.Module,
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		metrics.NewRegistry,
		metrics.NewAuthMetrics,
		metrics.NewAuthRecorder,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			auth.NewTOTPService,
			auth.NewBackupCodeManager,
			qrcode.NewQRCodeServiceFromConfig,
			sanitize.NewHTMLSanitizer,
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, d := range params.Deliveries {
		go func() {
			if err := d.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
