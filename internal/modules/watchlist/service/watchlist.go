package service

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"orb_bot/internal/models"
	"orb_bot/internal/modules/config"
)

// Watchlist собирает инструменты сессии: premarket-гейнеры из CSV
// скрейпера поверх явного списка из конфига. Сам скрейпер — внешний.
type Watchlist struct {
	cfg *config.Config
}

func NewWatchlist(cfg *config.Config) *Watchlist {
	return &Watchlist{cfg: cfg}
}

// Load — сначала явные инструменты конфига со своими аллокациями, затем
// строки CSV с premarket_change выше порога и дефолтной аллокацией.
func (w *Watchlist) Load() ([]models.InstrumentConfig, error) {
	out := make([]models.InstrumentConfig, 0, 8)
	seen := map[string]bool{}

	for _, ic := range w.cfg.Session.Instruments {
		if ic.Symbol == "" || seen[ic.Symbol] {
			continue
		}
		seen[ic.Symbol] = true
		out = append(out, ic)
	}

	if w.cfg.Watchlist.CSV == "" {
		return out, nil
	}

	rows, err := ReadGainers(w.cfg.Watchlist.CSV)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Change <= w.cfg.Watchlist.MinChange {
			continue
		}
		if seen[r.Ticker] {
			continue
		}
		seen[r.Ticker] = true
		out = append(out, models.InstrumentConfig{
			Symbol:       r.Ticker,
			PositionSize: w.cfg.Watchlist.DefaultPosition,
		})
	}
	return out, nil
}

// LoadConfigOnly — фолбэк без CSV: только явные инструменты конфига.
func (w *Watchlist) LoadConfigOnly() []models.InstrumentConfig {
	out := make([]models.InstrumentConfig, 0, len(w.cfg.Session.Instruments))
	seen := map[string]bool{}
	for _, ic := range w.cfg.Session.Instruments {
		if ic.Symbol == "" || seen[ic.Symbol] {
			continue
		}
		seen[ic.Symbol] = true
		out = append(out, ic)
	}
	return out
}

// Gainer — строка CSV премаркет-гейнеров.
type Gainer struct {
	Date   string
	Ticker string
	Change float64
}

// ReadGainers ждёт выхлоп скрейпера: date,ticker,name,premarket_change,volume.
// Колонки ищем по заголовку — их порядок у скрейпера плавал.
func ReadGainers(path string) ([]Gainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "watchlist: open csv")
	}
	defer f.Close()

	rec, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "watchlist: read csv")
	}
	if len(rec) == 0 {
		return nil, nil
	}

	tickerIdx, changeIdx, dateIdx := -1, -1, -1
	for i, h := range rec[0] {
		switch h {
		case "ticker":
			tickerIdx = i
		case "premarket_change":
			changeIdx = i
		case "date":
			dateIdx = i
		}
	}
	if tickerIdx < 0 || changeIdx < 0 {
		return nil, errors.New("watchlist: csv header without ticker/premarket_change")
	}

	rows := make([]Gainer, 0, len(rec)-1)
	for _, r := range rec[1:] {
		if len(r) <= tickerIdx || len(r) <= changeIdx {
			continue
		}
		change, err := strconv.ParseFloat(r[changeIdx], 64)
		if err != nil {
			continue
		}
		g := Gainer{Ticker: r[tickerIdx], Change: change}
		if dateIdx >= 0 && len(r) > dateIdx {
			g.Date = r[dateIdx]
		}
		rows = append(rows, g)
	}
	return rows, nil
}
