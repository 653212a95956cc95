package backtest

import (
	"math"
	"time"

	"orb_bot/internal/models"
)

// Оффлайн-прогон тех же правил ORB по статичным минуткам: никакого
// конкаренси, один проход по барам. Живой движок — в modules/engine.

type Config struct {
	Windows      []int // размеры окна в минутах: 1, 3, 5, 15
	TargetPct    float64
	StopPct      float64
	StartBalance float64
}

// Day — минутки одного тикера за один день.
type Day struct {
	Ticker     string
	MarketOpen time.Time
	Bars       []models.Bar
}

// Result — агрегат по одному размеру окна.
type Result struct {
	Window  int
	Wins    int
	Losses  int
	NoTrade int
	Balance float64
}

func (r Result) Trades() int { return r.Wins + r.Losses }

func (r Result) WinRate() float64 {
	if r.Trades() == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades()) * 100
}

// ReplayDay — один день, одно окно. Вход по уровню диапазона (high окна),
// как и в живом движке; win — таргет задет раньше стопа, loss — наоборот.
// Вошли и до конца дня не задели ни того ни другого — считаем loss.
func ReplayDay(bars []models.Bar, marketOpen time.Time, windowMinutes int, targetPct, stopPct float64) models.Outcome {
	orbEnd := marketOpen.Add(time.Duration(windowMinutes) * time.Minute)

	high := math.Inf(-1)
	seen := false
	for _, b := range bars {
		if b.TS.Before(marketOpen) || !b.TS.Before(orbEnd) {
			continue
		}
		seen = true
		if b.High > high {
			high = b.High
		}
	}
	if !seen {
		// пустое окно — no trade
		return models.OutcomeNoTrade
	}

	entered := false
	var entry float64
	for _, b := range bars {
		if b.TS.Before(orbEnd) {
			continue
		}
		if !entered && b.High > high {
			entry = high
			entered = true
		}
		if !entered {
			continue
		}
		if b.High >= entry*(1+targetPct) {
			return models.OutcomeWin
		}
		if b.Low <= entry*(1-stopPct) {
			return models.OutcomeLoss
		}
	}

	if entered {
		return models.OutcomeLoss
	}
	return models.OutcomeNoTrade
}

// Run гоняет все дни по всем окнам, компаундя баланс: win => *(1+target),
// loss => *(1-stop).
func Run(days []Day, cfg Config) map[int]*Result {
	results := make(map[int]*Result, len(cfg.Windows))
	for _, w := range cfg.Windows {
		results[w] = &Result{Window: w, Balance: cfg.StartBalance}
	}

	for _, d := range days {
		for _, w := range cfg.Windows {
			r := results[w]
			switch ReplayDay(d.Bars, d.MarketOpen, w, cfg.TargetPct, cfg.StopPct) {
			case models.OutcomeWin:
				r.Wins++
				r.Balance *= 1 + cfg.TargetPct
			case models.OutcomeLoss:
				r.Losses++
				r.Balance *= 1 - cfg.StopPct
			default:
				r.NoTrade++
			}
		}
	}
	return results
}
