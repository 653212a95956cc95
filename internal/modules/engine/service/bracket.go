package service

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"orb_bot/internal/models"
)

// ErrInsufficientAllocation — аллокация меньше одной акции по цене входа.
// Нулевой ордер не отправляем, но и молча не глотаем.
var ErrInsufficientAllocation = errors.New("insufficient allocation")

type BracketConfig struct {
	TargetPct float64 // 0.05 => TP на +5% от входа
	StopPct   float64 // 0.05 => SL на -5% от входа
}

// ComposeBracket строит связку parent/TP/SL по событию пробоя.
// Кроме выдачи id вся математика детерминированная.
func ComposeBracket(
	ev models.BreakoutEvent,
	positionSize float64,
	cfg BracketConfig,
	alloc *OrderIDAllocator,
) (models.Bracket, error) {
	qty := int64(math.Floor(positionSize / ev.EntryPrice))
	if qty <= 0 {
		return models.Bracket{}, errors.Wrapf(ErrInsufficientAllocation,
			"%s: size=%.2f entry=%.2f", ev.Symbol, positionSize, ev.EntryPrice)
	}

	entry := decimal.NewFromFloat(ev.EntryPrice)
	tpPx := entry.Mul(decimal.NewFromFloat(1 + cfg.TargetPct)).Round(2)
	slPx := entry.Mul(decimal.NewFromFloat(1 - cfg.StopPct)).Round(2)

	// Три подряд идущих id: parent, TP, SL — всегда в этом порядке.
	base := alloc.Block(3)

	parent := models.OrderRequest{
		OrderID:  base,
		Symbol:   ev.Symbol,
		Action:   models.SideBuy,
		Kind:     models.OrderMarket,
		Quantity: qty,
		Transmit: false,
	}
	takeProfit := models.OrderRequest{
		OrderID:    base + 1,
		ParentID:   base,
		Symbol:     ev.Symbol,
		Action:     models.SideSell,
		Kind:       models.OrderLimit,
		Quantity:   qty,
		LimitPrice: tpPx.InexactFloat64(),
		Transmit:   false,
	}
	stopLoss := models.OrderRequest{
		OrderID:      base + 2,
		ParentID:     base,
		Symbol:       ev.Symbol,
		Action:       models.SideSell,
		Kind:         models.OrderStop,
		Quantity:     qty,
		TriggerPrice: slPx.InexactFloat64(),
		// transmit только на последнем: по нему шлюз отпускает группу целиком.
		Transmit: true,
	}

	return models.Bracket{Parent: parent, TakeProfit: takeProfit, StopLoss: stopLoss}, nil
}
