package telegram

import (
	"context"
	"log"

	"go.uber.org/fx"

	"orb_bot/internal/modules/config"
	enginesvc "orb_bot/internal/modules/engine/service"
	healthsvc "orb_bot/internal/modules/health/service"
	"orb_bot/internal/modules/telegram/service"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(cfg *config.Config) (enginesvc.Notifier, error) {
				if cfg.Telegram.Token == "" {
					log.Printf("[TG] токен не задан — уведомления в stdout")
					return service.NewStdout(), nil
				}
				return service.NewTelegram(cfg)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, n enginesvc.Notifier, state *healthsvc.State) {
			tg, ok := n.(*service.Telegram)
			if !ok {
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go tg.Listen(ctx, state)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
