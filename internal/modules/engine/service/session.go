package service

import (
	"context"
	"log"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

// Gateway — ордерная сторона брокерского моста. Кодирование в проводной
// формат, подтверждения и ретраи живут за этим интерфейсом.
type Gateway interface {
	SubmitOrder(ctx context.Context, req models.OrderRequest) error
}

// Notifier — сервисные сообщения оператору (telegram либо stdout).
type Notifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

// Journal пишет факты сессии в постгрес; без БД подставляется Noop.
type Journal interface {
	RecordBreakout(ctx context.Context, runID string, ev models.BreakoutEvent) error
	RecordOrder(ctx context.Context, runID string, req models.OrderRequest) error
	RecordOutcome(ctx context.Context, runID string, symbol string, outcome models.Outcome) error
}

// Metrics — счётчики движка (реализация в modules/metrics).
type Metrics interface {
	ObservationAccepted()
	ObservationDropped(reason string)
	BreakoutFired(symbol string)
	OrderSubmitted(kind string)
}

type SessionConfig struct {
	RunID       string
	WindowStart time.Time
	WindowEnd   time.Time
	Bracket     BracketConfig
}

// Engine владеет состояниями инструментов одной сессии и маршрутизирует
// наблюдения по текущей фазе. Все переходы выполняет единственный
// consumer-цикл (см. module.go), поэтому состояниям не нужны локи;
// конкурентен один лишь аллокатор ордер-айди.
type Engine struct {
	cfg SessionConfig

	states map[string]*models.InstrumentState
	acc    *RangeAccumulator
	det    BreakoutDetector
	alloc  *OrderIDAllocator

	gw Gateway
	n  Notifier
	j  Journal
	m  Metrics

	remaining int
	completed bool
	done      chan struct{}
}

func NewEngine(
	cfg SessionConfig,
	instruments []models.InstrumentConfig,
	gw Gateway,
	n Notifier,
	j Journal,
	m Metrics,
) *Engine {
	states := make(map[string]*models.InstrumentState, len(instruments))
	for _, ic := range instruments {
		states[ic.Symbol] = models.NewInstrumentState(ic)
	}
	return &Engine{
		cfg:       cfg,
		states:    states,
		acc:       NewRangeAccumulator(cfg.WindowStart, cfg.WindowEnd),
		gw:        gw,
		n:         n,
		j:         j,
		m:         m,
		remaining: len(states),
		done:      make(chan struct{}),
	}
}

// Seed инициализирует аллокатор значением из handshake шлюза.
// Обязателен до первого наблюдения.
func (e *Engine) Seed(seed int64) {
	e.alloc = NewOrderIDAllocator(seed)
}

// Done закрывается, когда все инструменты терминальны.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run — единственный consumer наблюдений: всё состояние инструментов
// мутируется только отсюда, поэтому CloseOut тоже выполняется здесь,
// на выходе из цикла, а не из чужой горутины.
func (e *Engine) Run(ctx context.Context, obs <-chan models.Observation) {
	for {
		select {
		case <-ctx.Done():
			// журналим финальные no trade уже на свежем контексте:
			// отменённый ctx завалил бы записи
			e.CloseOut(context.Background())
			return
		case <-e.done:
			return
		case o, ok := <-obs:
			if !ok {
				e.CloseOut(context.Background())
				return
			}
			e.OnObservation(ctx, o)
		}
	}
}

// OnObservation — один тик из пуш-стрима. Невалидные тики (не last trade,
// цена <= 0, незнакомый символ) отбрасываются без мутации состояния.
func (e *Engine) OnObservation(ctx context.Context, obs models.Observation) {
	if !obs.Valid() {
		e.m.ObservationDropped("invalid")
		return
	}

	st, ok := e.states[obs.Symbol]
	if !ok {
		log.Printf("[ENGINE] drop tick for unknown symbol %s", obs.Symbol)
		e.m.ObservationDropped("unknown_symbol")
		return
	}
	if st.Phase.Terminal() {
		e.m.ObservationDropped("terminal")
		return
	}
	if obs.TS.Before(e.cfg.WindowStart) {
		e.m.ObservationDropped("pre_window")
		return
	}

	e.m.ObservationAccepted()

	if e.acc.InWindow(obs.TS) {
		e.acc.Observe(st, obs.Price)
		return
	}

	// Окно закончилось: финализируем и этим же тиком проверяем пробой.
	if st.Phase == models.PhaseAwaitingWindow || st.Phase == models.PhaseBuildingRange {
		e.acc.Finalize(st)
		if st.Phase == models.PhaseClosed {
			log.Printf("[ENGINE] %s: empty opening window, no trade", st.Symbol)
			e.n.SendService(ctx, "[%s] пустое окно — без сделки", st.Symbol)
			e.recordOutcome(ctx, st.Symbol, models.OutcomeNoTrade)
			e.markTerminal(ctx)
			return
		}
		log.Printf("[ENGINE] %s: range o=%.2f h=%.2f l=%.2f, monitoring breakout",
			st.Symbol, st.Open, st.High, st.Low)
	}

	if ev, fired := e.det.Check(st, obs.Price); fired {
		e.handleBreakout(ctx, st, ev)
		e.markTerminal(ctx)
	}
}

func (e *Engine) handleBreakout(ctx context.Context, st *models.InstrumentState, ev models.BreakoutEvent) {
	span := opentracing.GlobalTracer().StartSpan("breakout")
	span.SetTag("symbol", ev.Symbol)
	defer span.Finish()

	log.Printf("[ENGINE] 🚀 %s breakout above opening range, entry=%.2f", ev.Symbol, ev.EntryPrice)
	e.m.BreakoutFired(ev.Symbol)
	if err := e.j.RecordBreakout(ctx, e.cfg.RunID, ev); err != nil {
		logger.Error("journal breakout %s: %v", ev.Symbol, err)
	}

	if e.alloc == nil {
		logger.Error("%s: allocator not seeded, bracket skipped", ev.Symbol)
		return
	}

	bracket, err := ComposeBracket(ev, st.PositionSize, e.cfg.Bracket, e.alloc)
	if err != nil {
		if errors.Is(err, ErrInsufficientAllocation) {
			// Пробой засчитан, ордеров нет — обязательно наружу.
			logger.Warn("%v", err)
			e.n.SendService(ctx,
				"⚠️ [%s] аллокации %.2f не хватает на одну акцию по %.2f — ордера не выставлены",
				ev.Symbol, st.PositionSize, ev.EntryPrice)
			e.recordOutcome(ctx, ev.Symbol, models.OutcomeNoTrade)
			return
		}
		logger.Error("compose bracket %s: %v", ev.Symbol, err)
		return
	}

	// parent -> TP -> SL, строго в этом порядке и не перемешивая
	// с отправкой другого брекета.
	for _, req := range bracket.Orders() {
		if err := e.gw.SubmitOrder(ctx, req); err != nil {
			// fire-and-forget: доставка — забота шлюза
			logger.Error("submit order %d %s: %v", req.OrderID, req.Symbol, err)
			e.n.SendService(ctx, "❗️ [%s] ордер %d не отправлен: %v", req.Symbol, req.OrderID, err)
			continue
		}
		e.m.OrderSubmitted(string(req.Kind))
		if err := e.j.RecordOrder(ctx, e.cfg.RunID, req); err != nil {
			logger.Error("journal order %d: %v", req.OrderID, err)
		}
	}

	e.n.SendService(ctx,
		"✅ [%s] BREAKOUT | entry=%.2f qty=%d | TP=%.2f SL=%.2f | ids=%d..%d",
		ev.Symbol, ev.EntryPrice, bracket.Parent.Quantity,
		bracket.TakeProfit.LimitPrice, bracket.StopLoss.TriggerPrice,
		bracket.Parent.OrderID, bracket.StopLoss.OrderID)
}

// CloseOut — внешний сигнал конца сессии: всё, что не стало терминальным,
// закрываем как no trade.
func (e *Engine) CloseOut(ctx context.Context) {
	for _, st := range e.states {
		if st.Phase.Terminal() {
			continue
		}
		st.Phase = models.PhaseClosed
		e.recordOutcome(ctx, st.Symbol, models.OutcomeNoTrade)
	}
	e.remaining = 0
}

func (e *Engine) recordOutcome(ctx context.Context, symbol string, outcome models.Outcome) {
	if err := e.j.RecordOutcome(ctx, e.cfg.RunID, symbol, outcome); err != nil {
		logger.Error("journal outcome %s: %v", symbol, err)
	}
}

func (e *Engine) markTerminal(ctx context.Context) {
	e.remaining--
	if e.remaining == 0 && !e.completed {
		e.completed = true
		log.Printf("[ENGINE] session complete: all instruments terminal")
		e.n.SendService(ctx, "🏁 Сессия %s завершена: все инструменты в терминальной фазе", e.cfg.RunID)
		close(e.done)
	}
}
