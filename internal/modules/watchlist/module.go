package watchlist

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/watchlist/service"
)

func Module() fx.Option {
	return fx.Module("watchlist",
		fx.Provide(
			service.NewWatchlist, // *service.Watchlist
			func(w *service.Watchlist) ([]models.InstrumentConfig, error) {
				list, err := w.Load()
				if errors.Is(err, os.ErrNotExist) {
					// CSV ещё не нагенерён — работаем по конфигу
					log.Printf("[WATCHLIST] premarket csv отсутствует, только инструменты из конфига")
					return w.LoadConfigOnly(), nil
				}
				if err != nil {
					return nil, err
				}
				if len(list) == 0 {
					return nil, errors.New("watchlist: пустой список инструментов")
				}
				log.Printf("[WATCHLIST] %d инструментов в сессии", len(list))
				return list, nil
			},
		),
	)
}
