package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"orb_bot/internal/modules/config"
	"orb_bot/internal/modules/engine"
	"orb_bot/internal/modules/gateway"
	"orb_bot/internal/modules/health"
	"orb_bot/internal/modules/journal"
	"orb_bot/internal/modules/metrics"
	"orb_bot/internal/modules/postgres"
	"orb_bot/internal/modules/telegram"
	"orb_bot/internal/modules/watchlist"
	"orb_bot/pkg/logger"
	"orb_bot/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		journal.Module(),
		health.Module(),
		metrics.Module(),
		telegram.Module(),
		watchlist.Module(),
		gateway.Module(),
		engine.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Enabled: cfg.Tracing.Enabled,
				Host:    cfg.Tracing.Host,
				Port:    cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)

	app.Run()
}
