package models

// Side — "BUY"/"SELL", как в раннере.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderKind string

const (
	OrderMarket OrderKind = "MKT"
	OrderLimit  OrderKind = "LMT"
	OrderStop   OrderKind = "STP"
)

// BreakoutEvent — зафиксированный пробой. EntryPrice — граница диапазона
// (high окна), а не цена тика, который пробой вызвал: входим по уровню.
type BreakoutEvent struct {
	Symbol     string
	EntryPrice float64
}

// OrderRequest — то, что уходит в шлюз; кодирование в проводной формат
// и подтверждения — забота шлюза.
type OrderRequest struct {
	OrderID  int64
	ParentID int64 // 0 — родителя нет
	Symbol   string
	Action   Side
	Kind     OrderKind
	Quantity int64
	// LimitPrice — для LMT, TriggerPrice — для STP. У MKT обе нулевые.
	LimitPrice   float64
	TriggerPrice float64
	Transmit     bool
}

// Bracket — связка parent + TP + SL. transmit=true только у стоп-лосса,
// по нему шлюз отпускает всю группу разом.
type Bracket struct {
	Parent     OrderRequest
	TakeProfit OrderRequest
	StopLoss   OrderRequest
}

// Orders — в порядке отправки: parent, TP, SL.
func (b Bracket) Orders() []OrderRequest {
	return []OrderRequest{b.Parent, b.TakeProfit, b.StopLoss}
}
