package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"orb_bot/internal/backtest"
	"orb_bot/internal/models"
	wlsvc "orb_bot/internal/modules/watchlist/service"
)

// Оффлайн-прогон ORB по минуткам. Вход: CSV премаркет-гейнеров от
// скрейпера и каталог с барами {TICKER}_{DATE}.csv.

func main() {
	v := viper.New()
	v.SetDefault("gainers_csv", "premarket_gainers.csv")
	v.SetDefault("bars_dir", "bars")
	v.SetDefault("windows", []int{1, 3, 5, 15})
	v.SetDefault("target_pct", 0.05)
	v.SetDefault("stop_pct", 0.05)
	v.SetDefault("start_balance", 10000.0)
	v.SetDefault("min_change", 0.25)

	v.SetConfigName("backtest")
	v.AddConfigPath("configs")
	v.SetEnvPrefix("BACKTEST")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[BACKTEST] конфиг не найден, работаю на дефолтах: %v", err)
	}

	gainers, err := wlsvc.ReadGainers(v.GetString("gainers_csv"))
	if err != nil {
		log.Fatalf("load gainers: %v", err)
	}

	minChange := v.GetFloat64("min_change")
	days := make([]backtest.Day, 0, len(gainers))
	for _, g := range gainers {
		if g.Change <= minChange {
			continue
		}
		day, err := loadDay(v.GetString("bars_dir"), g.Ticker, g.Date)
		if err != nil {
			// как и в живом сборе данных: нет баров — тикер пропускаем
			log.Printf("[BACKTEST] skip %s %s: %v", g.Ticker, g.Date, err)
			continue
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		log.Fatal("нет ни одного дня с барами")
	}

	cfg := backtest.Config{
		Windows:      v.GetIntSlice("windows"),
		TargetPct:    v.GetFloat64("target_pct"),
		StopPct:      v.GetFloat64("stop_pct"),
		StartBalance: v.GetFloat64("start_balance"),
	}
	results := backtest.Run(days, cfg)

	fmt.Println("\n=== Backtest Results ===")
	for _, w := range cfg.Windows {
		r := results[w]
		fmt.Printf("ORB %2dm | trades=%d wins=%d losses=%d no_trade=%d | win_rate=%.1f%% | balance=%.2f\n",
			w, r.Trades(), r.Wins, r.Losses, r.NoTrade, r.WinRate(), r.Balance)
	}
}

// loadDay читает бары {TICKER}_{DATE}.csv: ts,open,high,low,close,volume,
// ts — RFC3339. Открытие рынка — 13:30 UTC той же даты.
func loadDay(dir, ticker, date string) (backtest.Day, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", ticker, date))
	f, err := os.Open(path)
	if err != nil {
		return backtest.Day{}, errors.Wrap(err, "open bars")
	}
	defer f.Close()

	rec, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return backtest.Day{}, errors.Wrap(err, "read bars")
	}
	if len(rec) < 2 {
		return backtest.Day{}, errors.New("empty bars file")
	}

	bars := make([]models.Bar, 0, len(rec)-1)
	for _, r := range rec[1:] {
		if len(r) < 5 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, r[0])
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(r[1], 64)
		h, _ := strconv.ParseFloat(r[2], 64)
		l, _ := strconv.ParseFloat(r[3], 64)
		c, _ := strconv.ParseFloat(r[4], 64)
		b := models.Bar{TS: ts.UTC(), Open: o, High: h, Low: l, Close: c}
		if len(r) > 5 {
			b.Volume, _ = strconv.ParseFloat(r[5], 64)
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return backtest.Day{}, errors.New("no parsable bars")
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return backtest.Day{}, errors.Wrap(err, "bad date")
	}
	open := time.Date(day.Year(), day.Month(), day.Day(), 13, 30, 0, 0, time.UTC)

	return backtest.Day{Ticker: ticker, MarketOpen: open, Bars: bars}, nil
}
