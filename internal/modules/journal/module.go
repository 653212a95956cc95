package journal

import (
	"context"
	"log"

	"go.uber.org/fx"

	enginesvc "orb_bot/internal/modules/engine/service"
	"orb_bot/internal/modules/journal/service"
	"orb_bot/pkg/db"
)

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			func(m *db.PgTxManager) enginesvc.Journal {
				if m == nil {
					log.Printf("[JOURNAL] DSN не задан — журнал выключен")
					return service.Noop{}
				}
				return service.New(m)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, j enginesvc.Journal) {
			real, ok := j.(*service.Journal)
			if !ok {
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return real.EnsureSchema(ctx)
				},
			})
		}),
	)
}
