package models

import "math"

// Phase — явный конечный автомат инструмента внутри сессии.
// Вместо россыпи булевых флагов: невалидный переход виден сразу.
type Phase int

const (
	PhaseAwaitingWindow Phase = iota
	PhaseBuildingRange
	PhaseMonitoringBreakout
	PhaseBreakoutFired
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingWindow:
		return "awaiting_window"
	case PhaseBuildingRange:
		return "building_range"
	case PhaseMonitoringBreakout:
		return "monitoring_breakout"
	case PhaseBreakoutFired:
		return "breakout_fired"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal — дальше инструмент в этой сессии не торгуется.
func (p Phase) Terminal() bool {
	return p == PhaseBreakoutFired || p == PhaseClosed
}

// InstrumentConfig — symbol -> аллокация капитала (в валюте счёта).
type InstrumentConfig struct {
	Symbol       string  `yaml:"symbol"`
	PositionSize float64 `yaml:"position_size"`
}

// InstrumentState живёт одну сессию, владеет им только SessionEngine.
// High/Low валидны после первого тика окна (до этого -Inf/+Inf).
type InstrumentState struct {
	Symbol       string
	PositionSize float64
	Phase        Phase

	Open  float64
	High  float64
	Low   float64
	Close float64

	// Один раз true — назад не сбрасывается до конца сессии.
	BreakoutTriggered bool
}

func NewInstrumentState(cfg InstrumentConfig) *InstrumentState {
	return &InstrumentState{
		Symbol:       cfg.Symbol,
		PositionSize: cfg.PositionSize,
		Phase:        PhaseAwaitingWindow,
		High:         math.Inf(-1),
		Low:          math.Inf(1),
	}
}
