package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/config"
	"orb_bot/internal/modules/engine/service"
	gwsvc "orb_bot/internal/modules/gateway/service"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			// общий буфер наблюдений между шлюзом и движком
			func(cfg *config.Config) chan models.Observation {
				return make(chan models.Observation, cfg.Session.QueueSize)
			},
			func(
				cfg *config.Config,
				instruments []models.InstrumentConfig,
				gw *gwsvc.Client,
				n service.Notifier,
				j service.Journal,
				m service.Metrics,
			) (*service.Engine, error) {
				start, end, err := cfg.SessionWindow(time.Now())
				if err != nil {
					return nil, err
				}
				sc := service.SessionConfig{
					RunID:       uuid.NewString(),
					WindowStart: start,
					WindowEnd:   end,
					Bracket: service.BracketConfig{
						TargetPct: cfg.Session.TargetPct,
						StopPct:   cfg.Session.StopPct,
					},
				}
				log.Printf("[ENGINE] session %s | window %s..%s | %d instruments",
					sc.RunID, start.Format("15:04"), end.Format("15:04"), len(instruments))
				return service.NewEngine(sc, instruments, gw, n, j, m), nil
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			eng *service.Engine,
			gw *gwsvc.Client,
			instruments []models.InstrumentConfig,
			obs chan models.Observation,
		) {
			runCtx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					// handshake до первого наблюдения: seed — внешний факт
					seed, err := gw.NextOrderID(startCtx)
					if err != nil {
						return err
					}
					eng.Seed(seed)
					log.Printf("[ENGINE] next valid order id: %d", seed)

					if err := gw.Subscribe(startCtx, instruments); err != nil {
						return err
					}

					// единственный consumer: каждый тик обрабатывается
					// строго по одному, локи состояниям не нужны
					go func() {
						defer close(stopped)
						eng.Run(runCtx, obs)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					// CloseOut делает сам цикл на выходе — дожидаемся его,
					// чтобы не трогать состояния из двух горутин
					cancel()
					select {
					case <-stopped:
						return nil
					case <-stopCtx.Done():
						return stopCtx.Err()
					}
				},
			})
		}),
	)
}
