package models

import "time"

// TickKind — классификация тика из шлюза. Движку интересен только last trade,
// bid/ask прокидываются для полноты и отбрасываются на входе.
type TickKind string

const (
	TickBid  TickKind = "bid"
	TickAsk  TickKind = "ask"
	TickLast TickKind = "last"
)

// Observation — одно событие цены из пуш-стрима шлюза.
type Observation struct {
	Symbol string
	Kind   TickKind
	Price  float64
	TS     time.Time
}

// Valid — только last trade с положительной ценой мутирует состояние.
func (o Observation) Valid() bool {
	return o.Kind == TickLast && o.Price > 0
}
