package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"orb_bot/internal/models"
	appcfg "orb_bot/internal/modules/config"
	enginesvc "orb_bot/internal/modules/engine/service"
)

// Module отдаёт /metrics в прометеевском текстовом формате.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			New, // *Metrics
			func(m *Metrics) enginesvc.Metrics { return m },
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *appcfg.Config, m *Metrics, instruments []models.InstrumentConfig) {
			m.SetInstruments(len(instruments))

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					ln, err := net.Listen("tcp", srv.Addr)
					if err != nil {
						return err
					}
					go func() { _ = srv.Serve(ln) }()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}
