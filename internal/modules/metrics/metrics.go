package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	healthsvc "orb_bot/internal/modules/health/service"
)

// Metrics — счётчики движка в прометеевском формате.
type Metrics struct {
	state *healthsvc.State

	observations *prometheus.CounterVec
	breakouts    *prometheus.CounterVec
	orders       *prometheus.CounterVec
	instruments  prometheus.Gauge
}

func New(state *healthsvc.State) *Metrics {
	m := &Metrics{
		state: state,
		observations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_observations_total",
				Help: "Наблюдения цены по результату обработки",
			},
			[]string{"result"}, // accepted | invalid | unknown_symbol | terminal | pre_window
		),
		breakouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_breakouts_total",
				Help: "Сработавшие пробои по символам",
			},
			[]string{"symbol"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_orders_total",
				Help: "Отправленные в шлюз ордера по типу",
			},
			[]string{"kind"}, // MKT | LMT | STP
		),
		instruments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "orb_instruments",
				Help: "Инструментов в сессии",
			},
		),
	}

	prometheus.MustRegister(m.observations, m.breakouts, m.orders, m.instruments)
	return m
}

func (m *Metrics) ObservationAccepted() {
	m.observations.WithLabelValues("accepted").Inc()
}

func (m *Metrics) ObservationDropped(reason string) {
	m.observations.WithLabelValues(reason).Inc()
}

func (m *Metrics) BreakoutFired(symbol string) {
	m.breakouts.WithLabelValues(symbol).Inc()
	m.state.AddBreakout()
}

func (m *Metrics) OrderSubmitted(kind string) {
	m.orders.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetInstruments(n int) {
	m.instruments.Set(float64(n))
}
