package service

import "orb_bot/internal/models"

// BreakoutDetector сравнивает тики после окна с верхней границей диапазона.
type BreakoutDetector struct{}

// Check — вызывается только в MonitoringBreakout. Событие возвращается
// ровно один раз за сессию: после срабатывания BreakoutTriggered
// дальнейшие вызовы — no-op.
func (d BreakoutDetector) Check(st *models.InstrumentState, price float64) (models.BreakoutEvent, bool) {
	if st.Phase != models.PhaseMonitoringBreakout || st.BreakoutTriggered {
		return models.BreakoutEvent{}, false
	}
	if price <= st.High {
		return models.BreakoutEvent{}, false
	}

	st.BreakoutTriggered = true
	st.Phase = models.PhaseBreakoutFired

	// Вход по уровню диапазона, не по цене тика-триггера.
	return models.BreakoutEvent{Symbol: st.Symbol, EntryPrice: st.High}, true
}
