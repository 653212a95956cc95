package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_bot/internal/models"
)

func monitoringState(high float64) *models.InstrumentState {
	st := newTestState("RRGB", 700)
	st.Phase = models.PhaseMonitoringBreakout
	st.Open, st.High, st.Low, st.Close = 10, high, 9, 11
	return st
}

func TestBreakoutFiresAtRangeHigh(t *testing.T) {
	det := BreakoutDetector{}
	st := monitoringState(12)

	ev, fired := det.Check(st, 12.01)
	require.True(t, fired)

	// вход по границе диапазона, а не по цене тика
	assert.Equal(t, 12.0, ev.EntryPrice)
	assert.Equal(t, "RRGB", ev.Symbol)
	assert.Equal(t, models.PhaseBreakoutFired, st.Phase)
	assert.True(t, st.BreakoutTriggered)
}

func TestBreakoutRequiresStrictlyAbove(t *testing.T) {
	det := BreakoutDetector{}
	st := monitoringState(12)

	_, fired := det.Check(st, 12)
	assert.False(t, fired)
	assert.Equal(t, models.PhaseMonitoringBreakout, st.Phase)
}

func TestBreakoutFiresAtMostOnce(t *testing.T) {
	det := BreakoutDetector{}
	st := monitoringState(12)

	_, fired := det.Check(st, 12.5)
	require.True(t, fired)

	for _, px := range []float64{13, 14, 100} {
		_, again := det.Check(st, px)
		assert.False(t, again)
	}
	assert.True(t, st.BreakoutTriggered)
}

func TestBreakoutIgnoresWrongPhase(t *testing.T) {
	det := BreakoutDetector{}

	for _, phase := range []models.Phase{
		models.PhaseAwaitingWindow,
		models.PhaseBuildingRange,
		models.PhaseBreakoutFired,
		models.PhaseClosed,
	} {
		st := monitoringState(12)
		st.Phase = phase
		_, fired := det.Check(st, 100)
		assert.False(t, fired, "phase %s", phase)
	}
}
