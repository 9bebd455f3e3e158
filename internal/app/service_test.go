package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendSignalBot/config"
	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/filter"
)

// Mock implementations

type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockMarket struct{}

func (m *mockMarket) SetServerTime(ctx context.Context) error { return nil }
func (m *mockMarket) Ping(ctx context.Context) error          { return nil }
func (m *mockMarket) GetServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}
func (m *mockMarket) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 100, nil
}
func (m *mockMarket) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Bar, error) {
	return nil, nil
}
func (m *mockMarket) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error) {
	return nil, nil
}
func (m *mockMarket) StreamKlines(ctx context.Context, symbol, interval string, handler func(bar *domain.Bar), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}), nil
}

type mockJournal struct {
	appended []*domain.Signal
	last     *domain.Signal
}

func (m *mockJournal) Append(ctx context.Context, sig *domain.Signal) (int64, error) {
	m.appended = append(m.appended, sig)
	return int64(len(m.appended)), nil
}

func (m *mockJournal) LastBySymbol(ctx context.Context, symbol string) (*domain.Signal, error) {
	if m.last == nil {
		return nil, ports.ErrNotFound
	}
	return m.last, nil
}

func (m *mockJournal) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error) {
	return m.appended, nil
}

func (m *mockJournal) CountTodayBySymbol(ctx context.Context, symbol string) (int, error) {
	return len(m.appended), nil
}

type mockDetector struct {
	outcome  domain.Outcome
	requests []ports.DetectionRequest
}

func (m *mockDetector) MinimumBars() int { return 20 }

func (m *mockDetector) Evaluate(ctx context.Context, req ports.DetectionRequest) domain.Outcome {
	m.requests = append(m.requests, req)
	return m.outcome
}

type mockGates struct {
	withinSession bool
	mayTrade      bool
	active        int
	microOK       bool
}

func (m *mockGates) WithinTradingHours(symbol string, t time.Time) bool { return m.withinSession }
func (m *mockGates) MayTrade(ctx context.Context, symbol string) bool   { return m.mayTrade }
func (m *mockGates) ActivePositions(ctx context.Context, symbol string) (int, error) {
	return m.active, nil
}
func (m *mockGates) AcceptableQuality(ctx context.Context, symbol string, bars []*domain.Bar) bool {
	return m.microOK
}

type mockHandler struct {
	handled []*domain.Signal
}

func (m *mockHandler) HandleSignal(ctx context.Context, sig *domain.Signal) error {
	m.handled = append(m.handled, sig)
	return nil
}

// Test helpers

func testAppConfig() *config.Config {
	return &config.Config{
		Symbols:               []string{"ETHUSDT"},
		Interval:              "1h",
		ATRPeriod:             14,
		BarCacheSize:          500,
		MinBarsBetweenSignals: 12,
		BaseCooldown:          30 * time.Minute,
		OppositeCooldown:      15 * time.Minute,
		ReducedCooldown:       10 * time.Minute,
		SignificantMoveATR:    2,
		SignificantMovePct:    0.01,
	}
}

type fixture struct {
	service  *SignalService
	journal  *mockJournal
	detector *mockDetector
	gates    *mockGates
	handler  *mockHandler
	state    *instrumentState
}

func newFixture(t *testing.T, outcome domain.Outcome) *fixture {
	t.Helper()
	journal := &mockJournal{}
	detector := &mockDetector{outcome: outcome}
	gates := &mockGates{withinSession: true, mayTrade: true, microOK: true}
	handler := &mockHandler{}

	service, err := NewSignalService(testAppConfig(), &mockLogger{}, Deps{
		Market:   &mockMarket{},
		Journal:  journal,
		Detector: detector,
		Calendar: gates,
		Risk:     gates,
		Position: gates,
		Micro:    gates,
		Handler:  handler,
	}, 1)
	require.NoError(t, err)

	cooldown, err := filter.NewCooldownTracker(service.cooldownConfig())
	require.NoError(t, err)

	return &fixture{
		service:  service,
		journal:  journal,
		detector: detector,
		gates:    gates,
		handler:  handler,
		state: &instrumentState{
			symbol:   "ETHUSDT",
			bars:     serviceBars(30),
			barIndex: 29,
			cooldown: cooldown,
			events:   make(chan *domain.Bar, 16),
		},
	}
}

func serviceBars(n int) []*domain.Bar {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = &domain.Bar{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      100,
			High:      100.5,
			Low:       99.5,
			Close:     100,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return bars
}

func nextBar(st *instrumentState) *domain.Bar {
	last := st.bars[len(st.bars)-1]
	return &domain.Bar{
		OpenTime:  last.CloseTime,
		CloseTime: last.CloseTime.Add(time.Hour),
		Open:      100,
		High:      100.5,
		Low:       99.5,
		Close:     100,
		Volume:    100,
		IsFinal:   true,
	}
}

func acceptedOutcome(ts time.Time) domain.Outcome {
	return domain.Outcome{Signal: &domain.Signal{
		Symbol:     "ETHUSDT",
		Direction:  domain.Buy,
		Entry:      100,
		StopLoss:   99,
		TakeProfit: 103,
		Quality:    80,
		Confidence: 90,
		RiskReward: 3,
		BarIndex:   30,
		Timestamp:  ts,
	}}
}

func rejectedOutcome() domain.Outcome {
	return domain.Outcome{Rejection: &domain.Rejection{Reason: domain.RejectStrictRegime}}
}

// Tests

func TestNewSignalService_Validation(t *testing.T) {
	_, err := NewSignalService(nil, &mockLogger{}, Deps{}, 1)
	assert.Error(t, err)

	_, err = NewSignalService(testAppConfig(), &mockLogger{}, Deps{}, 1)
	assert.Error(t, err, "missing market/journal/detector/handler")

	cfg := testAppConfig()
	cfg.BarCacheSize = 5 // below detector minimum
	gates := &mockGates{}
	_, err = NewSignalService(cfg, &mockLogger{}, Deps{
		Market: &mockMarket{}, Journal: &mockJournal{}, Detector: &mockDetector{},
		Calendar: gates, Risk: gates, Position: gates, Micro: gates, Handler: &mockHandler{},
	}, 1)
	assert.Error(t, err)
}

func TestOnBarClosed_AcceptedSignalFlows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.Outcome{})
	bar := nextBar(f.state)
	f.detector.outcome = acceptedOutcome(bar.CloseTime)

	f.service.onBarClosed(ctx, f.state, bar)

	require.Len(t, f.detector.requests, 1)
	req := f.detector.requests[0]
	assert.Equal(t, "ETHUSDT", req.Symbol)
	assert.Equal(t, 30, req.BarIndex)
	assert.True(t, req.MicrostructureOK)
	assert.Equal(t, 31, len(req.Bars), "new bar appended to the window")

	require.Len(t, f.journal.appended, 1)
	require.Len(t, f.handler.handled, 1)
	assert.Equal(t, f.journal.appended[0], f.handler.handled[0])

	// Cooldown recorded atomically with emission.
	state := f.state.cooldown.State()
	assert.Equal(t, 30, state.LastSignalBarIndex)
	assert.Equal(t, domain.Buy, state.LastDirection)
}

func TestOnBarClosed_RejectionLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rejectedOutcome())
	bar := nextBar(f.state)

	f.service.onBarClosed(ctx, f.state, bar)

	assert.Len(t, f.detector.requests, 1)
	assert.Empty(t, f.journal.appended)
	assert.Empty(t, f.handler.handled)
	assert.False(t, f.state.cooldown.State().HasSignal())
}

func TestOnBarClosed_UpstreamGatesShortCircuit(t *testing.T) {
	ctx := context.Background()

	t.Run("outside session", func(t *testing.T) {
		f := newFixture(t, rejectedOutcome())
		f.gates.withinSession = false
		f.service.onBarClosed(ctx, f.state, nextBar(f.state))
		assert.Empty(t, f.detector.requests, "detector must not run outside the session")
	})

	t.Run("trading disabled", func(t *testing.T) {
		f := newFixture(t, rejectedOutcome())
		f.gates.mayTrade = false
		f.service.onBarClosed(ctx, f.state, nextBar(f.state))
		assert.Empty(t, f.detector.requests)
	})

	t.Run("position cap reached", func(t *testing.T) {
		f := newFixture(t, rejectedOutcome())
		f.gates.active = 1
		f.service.onBarClosed(ctx, f.state, nextBar(f.state))
		assert.Empty(t, f.detector.requests)
	})

	t.Run("microstructure verdict is passed through", func(t *testing.T) {
		f := newFixture(t, rejectedOutcome())
		f.gates.microOK = false
		f.service.onBarClosed(ctx, f.state, nextBar(f.state))
		require.Len(t, f.detector.requests, 1)
		assert.False(t, f.detector.requests[0].MicrostructureOK)
	})
}

func TestOnBarClosed_WallClockCooldownSuppresses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.Outcome{})
	bar := nextBar(f.state)
	f.detector.outcome = acceptedOutcome(bar.CloseTime)

	// A same-direction signal 5 minutes ago is still cooling down.
	f.state.cooldown.Restore(domain.CooldownState{
		LastSignalBarIndex: -1,
		LastSignalTime:     bar.CloseTime.Add(-5 * time.Minute),
		LastDirection:      domain.Buy,
		LastPrice:          100,
	})

	f.service.onBarClosed(ctx, f.state, bar)

	assert.Len(t, f.detector.requests, 1)
	assert.Empty(t, f.journal.appended)
	assert.Empty(t, f.handler.handled)
}

func TestOnBarClosed_WindowCapIsEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rejectedOutcome())
	f.state.bars = serviceBars(500)
	f.state.barIndex = 499

	f.service.onBarClosed(ctx, f.state, nextBar(f.state))

	require.Len(t, f.detector.requests, 1)
	assert.Equal(t, 500, len(f.detector.requests[0].Bars), "window trimmed to the cache size")
	assert.Equal(t, 500, f.detector.requests[0].BarIndex)
}
