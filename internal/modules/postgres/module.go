package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"orb_bot/internal/modules/config"
	"orb_bot/pkg/db"
)

// Module отдаёт *db.PgTxManager; без DSN — nil, журнал тогда Noop.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					return nil, nil
				}

				pool, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}

				err = pool.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(pool), nil
			},
		),
	)
}
