package service

import (
	"time"

	"orb_bot/internal/models"
)

// RangeAccumulator складывает тики опенинг-окна в OHLC инструмента.
// Границы окна — чистая конфигурация, никакого wall clock внутри:
// решения принимаются по таймстемпам наблюдений.
type RangeAccumulator struct {
	windowStart time.Time
	windowEnd   time.Time
}

func NewRangeAccumulator(start, end time.Time) *RangeAccumulator {
	return &RangeAccumulator{windowStart: start, windowEnd: end}
}

// InWindow — тик попадает в [start, end).
func (r *RangeAccumulator) InWindow(ts time.Time) bool {
	return !ts.Before(r.windowStart) && ts.Before(r.windowEnd)
}

// Elapsed — окно уже закончилось к моменту ts.
func (r *RangeAccumulator) Elapsed(ts time.Time) bool {
	return !ts.Before(r.windowEnd)
}

// Observe — вызывается только в AwaitingWindow/BuildingRange для тиков
// внутри окна. Первый тик открывает диапазон.
func (r *RangeAccumulator) Observe(st *models.InstrumentState, price float64) {
	if st.Phase == models.PhaseAwaitingWindow {
		st.Phase = models.PhaseBuildingRange
		st.Open = price
	}
	if price > st.High {
		st.High = price
	}
	if price < st.Low {
		st.Low = price
	}
	st.Close = price
}

// Finalize закрывает окно: был хоть один тик — переходим к мониторингу
// пробоя; пустое окно — терминальный Closed. Это "no trade", не ошибка.
func (r *RangeAccumulator) Finalize(st *models.InstrumentState) {
	switch st.Phase {
	case models.PhaseBuildingRange:
		st.Phase = models.PhaseMonitoringBreakout
	case models.PhaseAwaitingWindow:
		st.Phase = models.PhaseClosed
	}
}
