package gateway

import (
	"context"
	"log"

	"go.uber.org/fx"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/gateway/service"
)

// Module поднимает стример тиков из моста в общий канал наблюдений.
func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			service.NewClient, // *service.Client
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, out chan models.Observation) {
			streamCtx, cancel := context.WithCancel(context.Background())
			stopped := make(chan struct{})

			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						defer close(stopped)
						for obs := range c.Stream(streamCtx) {
							select {
							case out <- obs:
							default:
								// буфер забит — тик дропаем, движок и так
								// переживает пропуски
								log.Printf("[GATEWAY] observation queue full, %s tick dropped", obs.Symbol)
							}
						}
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					// по cancel стример закрывает соединение и свой канал,
					// насос дорабатывает остаток и выходит
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
