package models

import "time"

// Bar — минутная свеча для оффлайн-прогона.
type Bar struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Outcome — итог инструмента: win/loss, либо no trade (пробоя не было
// или окно пустое). No trade — не убыток.
type Outcome int

const (
	OutcomeNoTrade Outcome = iota
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "no_trade"
	}
}
