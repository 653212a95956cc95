package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_bot/internal/models"
	"orb_bot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

type fakeGateway struct {
	submitted []models.OrderRequest
	failIDs   map[int64]error
}

func (g *fakeGateway) SubmitOrder(_ context.Context, req models.OrderRequest) error {
	if err, ok := g.failIDs[req.OrderID]; ok {
		return err
	}
	g.submitted = append(g.submitted, req)
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) SendService(_ context.Context, format string, args ...any) {
	n.messages = append(n.messages, fmt.Sprintf(format, args...))
}

type fakeJournal struct {
	breakouts []models.BreakoutEvent
	orders    []models.OrderRequest
	outcomes  map[string]models.Outcome
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{outcomes: make(map[string]models.Outcome)}
}

func (j *fakeJournal) RecordBreakout(_ context.Context, _ string, ev models.BreakoutEvent) error {
	j.breakouts = append(j.breakouts, ev)
	return nil
}

func (j *fakeJournal) RecordOrder(_ context.Context, _ string, req models.OrderRequest) error {
	j.orders = append(j.orders, req)
	return nil
}

func (j *fakeJournal) RecordOutcome(_ context.Context, _ string, symbol string, outcome models.Outcome) error {
	j.outcomes[symbol] = outcome
	return nil
}

type fakeMetrics struct {
	accepted  int
	dropped   map[string]int
	breakouts int
	orders    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{dropped: make(map[string]int)}
}

func (m *fakeMetrics) ObservationAccepted()            { m.accepted++ }
func (m *fakeMetrics) ObservationDropped(reason string) { m.dropped[reason]++ }
func (m *fakeMetrics) BreakoutFired(string)            { m.breakouts++ }
func (m *fakeMetrics) OrderSubmitted(string)           { m.orders++ }

type engineFixture struct {
	eng *Engine
	gw  *fakeGateway
	n   *fakeNotifier
	j   *fakeJournal
	m   *fakeMetrics
}

func newEngineFixture(instruments ...models.InstrumentConfig) *engineFixture {
	f := &engineFixture{
		gw: &fakeGateway{},
		n:  &fakeNotifier{},
		j:  newFakeJournal(),
		m:  newFakeMetrics(),
	}
	cfg := SessionConfig{
		RunID:       "test-run",
		WindowStart: testWindowStart,
		WindowEnd:   testWindowStart.Add(5 * time.Minute),
		Bracket:     BracketConfig{TargetPct: 0.05, StopPct: 0.05},
	}
	f.eng = NewEngine(cfg, instruments, f.gw, f.n, f.j, f.m)
	f.eng.Seed(1)
	return f
}

func lastTick(symbol string, price float64, ts time.Time) models.Observation {
	return models.Observation{Symbol: symbol, Kind: models.TickLast, Price: price, TS: ts}
}

func (f *engineFixture) feedWindow(symbol string, prices ...float64) {
	ctx := context.Background()
	for i, px := range prices {
		f.eng.OnObservation(ctx, lastTick(symbol, px, testWindowStart.Add(time.Duration(i)*time.Second)))
	}
}

func TestEngineBreakoutSubmitsBracket(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12, 9, 11)
	f.eng.OnObservation(ctx, lastTick("RRGB", 12.01, testWindowStart.Add(6*time.Minute)))

	require.Len(t, f.gw.submitted, 3)

	parent, tp, sl := f.gw.submitted[0], f.gw.submitted[1], f.gw.submitted[2]
	assert.Equal(t, int64(1), parent.OrderID)
	assert.Equal(t, models.OrderMarket, parent.Kind)
	assert.Equal(t, int64(58), parent.Quantity) // floor(700 / 12)
	assert.Equal(t, 12.60, tp.LimitPrice)
	assert.Equal(t, 11.40, sl.TriggerPrice)
	assert.True(t, sl.Transmit)
	assert.False(t, parent.Transmit)

	require.Len(t, f.j.breakouts, 1)
	assert.Equal(t, 12.0, f.j.breakouts[0].EntryPrice) // entry по границе диапазона
	assert.Len(t, f.j.orders, 3)
	assert.Equal(t, 1, f.m.breakouts)
	assert.Equal(t, 3, f.m.orders)
}

func TestEngineBreakoutFiresOnce(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)
	f.eng.OnObservation(ctx, lastTick("RRGB", 13, testWindowStart.Add(6*time.Minute)))
	f.eng.OnObservation(ctx, lastTick("RRGB", 14, testWindowStart.Add(7*time.Minute)))
	f.eng.OnObservation(ctx, lastTick("RRGB", 15, testWindowStart.Add(8*time.Minute)))

	assert.Len(t, f.gw.submitted, 3)
	assert.Equal(t, 1, f.m.breakouts)
	// после пробоя инструмент терминален, поздние тики отбрасываются
	assert.Equal(t, 2, f.m.dropped["terminal"])
}

func TestEngineSecondBracketContinuesIDs(t *testing.T) {
	f := newEngineFixture(
		models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700},
		models.InstrumentConfig{Symbol: "TSM", PositionSize: 300},
	)
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)
	for i, px := range []float64{100, 101} {
		f.eng.OnObservation(ctx, lastTick("TSM", px, testWindowStart.Add(time.Duration(i)*time.Second)))
	}
	f.eng.OnObservation(ctx, lastTick("RRGB", 12.5, testWindowStart.Add(6*time.Minute)))
	f.eng.OnObservation(ctx, lastTick("TSM", 102, testWindowStart.Add(6*time.Minute)))

	require.Len(t, f.gw.submitted, 6)
	assert.Equal(t, int64(1), f.gw.submitted[0].OrderID)
	assert.Equal(t, int64(3), f.gw.submitted[2].OrderID)
	assert.Equal(t, int64(4), f.gw.submitted[3].OrderID)
	assert.Equal(t, int64(6), f.gw.submitted[5].OrderID)
}

func TestEngineIgnoresInvalidObservations(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12, 9, 11)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		kind := models.TickBid
		if rng.Intn(2) == 0 {
			kind = models.TickAsk
		}
		f.eng.OnObservation(ctx, models.Observation{
			Symbol: "RRGB",
			Kind:   kind,
			Price:  100 + rng.Float64()*100, // выше диапазона, но не last trade
			TS:     testWindowStart.Add(6 * time.Minute),
		})
		f.eng.OnObservation(ctx, lastTick("RRGB", -rng.Float64(), testWindowStart.Add(6*time.Minute)))
	}

	assert.Empty(t, f.gw.submitted)
	assert.Equal(t, 100, f.m.dropped["invalid"])

	st := f.eng.states["RRGB"]
	assert.Equal(t, 12.0, st.High)
	assert.False(t, st.BreakoutTriggered)
}

func TestEngineDropsUnknownSymbol(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	ctx := context.Background()

	f.eng.OnObservation(ctx, lastTick("AAPL", 200, testWindowStart.Add(time.Minute)))

	assert.Equal(t, 1, f.m.dropped["unknown_symbol"])
	assert.Zero(t, f.m.accepted)
}

func TestEngineDropsPreWindowTicks(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	ctx := context.Background()

	f.eng.OnObservation(ctx, lastTick("RRGB", 10, testWindowStart.Add(-time.Minute)))

	assert.Equal(t, 1, f.m.dropped["pre_window"])
	st := f.eng.states["RRGB"]
	assert.Equal(t, models.PhaseAwaitingWindow, st.Phase)
}

func TestEngineEmptyWindowCloses(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "TIRX", PositionSize: 900})
	ctx := context.Background()

	// ни одного тика в окне, первый приходит уже после
	f.eng.OnObservation(ctx, lastTick("TIRX", 5, testWindowStart.Add(10*time.Minute)))

	st := f.eng.states["TIRX"]
	assert.Equal(t, models.PhaseClosed, st.Phase)
	assert.Empty(t, f.gw.submitted)
	assert.Equal(t, models.OutcomeNoTrade, f.j.outcomes["TIRX"])

	// закрытый инструмент больше не торгуется
	f.eng.OnObservation(ctx, lastTick("TIRX", 500, testWindowStart.Add(11*time.Minute)))
	assert.Empty(t, f.gw.submitted)
}

func TestEngineInsufficientAllocation(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 10})
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)
	f.eng.OnObservation(ctx, lastTick("RRGB", 12.5, testWindowStart.Add(6*time.Minute)))

	assert.Empty(t, f.gw.submitted)
	assert.Equal(t, models.OutcomeNoTrade, f.j.outcomes["RRGB"])
	// пробой засчитан, оператору сообщили
	assert.Equal(t, 1, f.m.breakouts)
	require.NotEmpty(t, f.n.messages)
}

func TestEngineSubmitErrorIsNotFatal(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	f.gw.failIDs = map[int64]error{2: fmt.Errorf("bridge rejected")}
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)
	f.eng.OnObservation(ctx, lastTick("RRGB", 12.5, testWindowStart.Add(6*time.Minute)))

	// TP не прошёл, parent и SL отправлены
	require.Len(t, f.gw.submitted, 2)
	assert.Equal(t, models.OrderMarket, f.gw.submitted[0].Kind)
	assert.Equal(t, models.OrderStop, f.gw.submitted[1].Kind)
	assert.Len(t, f.j.orders, 2)
}

func TestEngineDoneWhenAllTerminal(t *testing.T) {
	f := newEngineFixture(
		models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700},
		models.InstrumentConfig{Symbol: "TSM", PositionSize: 300},
	)
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)
	f.eng.OnObservation(ctx, lastTick("RRGB", 12.5, testWindowStart.Add(6*time.Minute)))

	select {
	case <-f.eng.Done():
		t.Fatal("done closed with an instrument still live")
	default:
	}

	// пустое окно TSM закрывает второй инструмент
	f.eng.OnObservation(ctx, lastTick("TSM", 100, testWindowStart.Add(10*time.Minute)))

	select {
	case <-f.eng.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after all instruments terminal")
	}
}

func TestEngineRunClosesOutOnCancel(t *testing.T) {
	f := newEngineFixture(
		models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700},
		models.InstrumentConfig{Symbol: "TSM", PositionSize: 300},
	)
	ctx, cancel := context.WithCancel(context.Background())
	// небуферизованный канал: send возвращается только после приёма,
	// значит к моменту cancel все тики уже прошли через цикл
	obs := make(chan models.Observation)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		f.eng.Run(ctx, obs)
	}()

	// RRGB добегает до пробоя, TSM остаётся в окне
	for i, px := range []float64{10, 12, 9, 11} {
		obs <- lastTick("RRGB", px, testWindowStart.Add(time.Duration(i)*time.Second))
	}
	obs <- lastTick("TSM", 100, testWindowStart)
	obs <- lastTick("RRGB", 12.01, testWindowStart.Add(6*time.Minute))

	// остановка как в OnStop: cancel и ожидание выхода цикла;
	// CloseOut выполняет сам цикл, снаружи состояния никто не трогает
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop after cancel")
	}

	require.Len(t, f.gw.submitted, 3)
	assert.Equal(t, models.PhaseBreakoutFired, f.eng.states["RRGB"].Phase)
	assert.Equal(t, models.PhaseClosed, f.eng.states["TSM"].Phase)
	assert.Equal(t, models.OutcomeNoTrade, f.j.outcomes["TSM"])
	// сработавший пробой не переписывается закрытием сессии
	_, rrgbClosedOut := f.j.outcomes["RRGB"]
	assert.False(t, rrgbClosedOut)
}

func TestEngineRunReturnsWhenAllTerminal(t *testing.T) {
	f := newEngineFixture(models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700})
	obs := make(chan models.Observation)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		f.eng.Run(context.Background(), obs)
	}()

	obs <- lastTick("RRGB", 10, testWindowStart)
	obs <- lastTick("RRGB", 12, testWindowStart.Add(time.Second))
	obs <- lastTick("RRGB", 12.5, testWindowStart.Add(6*time.Minute))

	// без cancel: все инструменты терминальны — цикл выходит сам
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop after session completed")
	}
	assert.Len(t, f.gw.submitted, 3)
}

func TestEngineCloseOut(t *testing.T) {
	f := newEngineFixture(
		models.InstrumentConfig{Symbol: "RRGB", PositionSize: 700},
		models.InstrumentConfig{Symbol: "TSM", PositionSize: 300},
	)
	ctx := context.Background()

	f.feedWindow("RRGB", 10, 12)

	f.eng.CloseOut(ctx)

	for _, sym := range []string{"RRGB", "TSM"} {
		assert.Equal(t, models.PhaseClosed, f.eng.states[sym].Phase, sym)
		assert.Equal(t, models.OutcomeNoTrade, f.j.outcomes[sym], sym)
	}
}
