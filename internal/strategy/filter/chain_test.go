package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendSignalBot/internal/domain"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// flatBars builds n bars closing at price with a fixed high/low range, so the
// ATR over the window is exactly the range.
func flatBars(n int, price, halfRange float64) []*domain.Bar {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = &domain.Bar{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      price,
			High:      price + halfRange,
			Low:       price - halfRange,
			Close:     price,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return bars
}

func trendingRegime() *domain.RegimeState {
	return &domain.RegimeState{
		Regime:         domain.TrendUp,
		Confidence:     100,
		TrendDirection: domain.DirectionUp,
		ADX:            30,
		EMA34:          99.8,
		EMA34Trend:     domain.EMAUp,
		UsedTimeframe:  domain.TimeframePrimary,
		TrendChange:    domain.NoReversal,
	}
}

func goodSwing() *domain.SwingState {
	return &domain.SwingState{
		Trend:    domain.SwingUp,
		Quality:  80,
		Count:    5,
		LastHigh: 102,
		LastLow:  99,
	}
}

func somePivots() *domain.PivotLevels {
	return &domain.PivotLevels{Pivot: 100, R1: 101, R2: 102, S1: 99, S2: 98}
}

func baseInput() Input {
	return Input{
		Symbol:           "ETHUSDT",
		Bars:             flatBars(30, 100, 0.5),
		BarIndex:         200,
		Regime:           trendingRegime(),
		Pivots:           somePivots(),
		Swing:            goodSwing(),
		MicrostructureOK: true,
		Cooldown:         domain.EmptyCooldownState(),
	}
}

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	chain, err := NewChain(DefaultConfig(), noopLogger{})
	require.NoError(t, err)
	return chain
}

func TestNewChain_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min bars too small", func(c *Config) { c.MinBars = 10 }},
		{"negative bar cooldown", func(c *Config) { c.MinBarsBetweenSignals = -1 }},
		{"swing quality out of range", func(c *Config) { c.MinSwingQuality = 150 }},
		{"zero pullback tolerance", func(c *Config) { c.PullbackTolerancePct = 0 }},
		{"zero ATR period", func(c *Config) { c.ATRPeriod = 0 }},
		{"zero risk reward", func(c *Config) { c.MinRiskReward = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewChain(cfg, noopLogger{})
			assert.Error(t, err)
		})
	}

	_, err := NewChain(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestChain_MissingAnalyticsRejectedFirst(t *testing.T) {
	chain := newTestChain(t)

	// Even a window that would fail the min-bars gate reports the missing
	// analytics first: the two defects must stay distinguishable.
	in := baseInput()
	in.Bars = flatBars(5, 100, 0.5)
	in.Pivots = nil

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectMissingAnalytics, out.Rejection.Reason)
	assert.Equal(t, false, out.Rejection.Fields["havePivots"])
	assert.Equal(t, true, out.Rejection.Fields["haveRegime"])
}

func TestChain_MinBars(t *testing.T) {
	chain := newTestChain(t)

	in := baseInput()
	in.Bars = flatBars(19, 100, 0.5)

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectMinBars, out.Rejection.Reason)
}

func TestChain_BarCooldown(t *testing.T) {
	chain := newTestChain(t)

	in := baseInput()
	in.Cooldown = domain.CooldownState{
		LastSignalBarIndex: 120,
		LastSignalTime:     time.Now(),
		LastDirection:      domain.Buy,
		LastPrice:          100,
	}

	in.BarIndex = 125 // 5 bars since the last signal
	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectBarCooldown, out.Rejection.Reason)

	in.BarIndex = 133 // 13 bars, the gate opens again
	out = chain.Evaluate(context.Background(), in)
	if out.Rejection != nil {
		assert.NotEqual(t, domain.RejectBarCooldown, out.Rejection.Reason)
	}
}

func TestChain_StrictRegime(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RegimeState)
		detail string
	}{
		{"range regime", func(r *domain.RegimeState) { r.Regime = domain.Range }, "regime not trending"},
		{"ema unclear", func(r *domain.RegimeState) { r.EMA34Trend = domain.EMAUnclear }, "ema34 trend unclear"},
		{"direction mismatch", func(r *domain.RegimeState) { r.EMA34Trend = domain.EMADown }, "direction mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newTestChain(t)
			in := baseInput()
			tt.mutate(in.Regime)

			out := chain.Evaluate(context.Background(), in)
			require.False(t, out.Accepted())
			require.Equal(t, domain.RejectStrictRegime, out.Rejection.Reason)
			assert.Equal(t, tt.detail, out.Rejection.Detail)
			// The payload must carry both readings for diagnosis.
			assert.Contains(t, out.Rejection.Fields, "regime")
			assert.Contains(t, out.Rejection.Fields, "ema34Trend")
		})
	}
}

func TestChain_SwingQuality(t *testing.T) {
	chain := newTestChain(t)

	in := baseInput()
	in.Swing.Quality = 50
	in.Regime.ADX = 20 // no bypass

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectSwingQuality, out.Rejection.Reason)

	// A strong trend legitimizes the weak swing reading.
	in.Regime.ADX = 30
	out = chain.Evaluate(context.Background(), in)
	if out.Rejection != nil {
		assert.NotEqual(t, domain.RejectSwingQuality, out.Rejection.Reason)
	}
}

func TestChain_Microstructure(t *testing.T) {
	chain := newTestChain(t)

	in := baseInput()
	in.MicrostructureOK = false

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectMicrostructure, out.Rejection.Reason)
}

func TestChain_NoStructuralOpportunity(t *testing.T) {
	chain := newTestChain(t)

	// Price sits far above the EMA and below the last swing high: no pullback
	// zone, no breakout.
	in := baseInput()
	in.Regime.EMA34 = 90
	in.Swing.LastHigh = 110
	in.Swing.LastLow = 95

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectNoOpportunity, out.Rejection.Reason)
}

func TestChain_PullbackAccepted(t *testing.T) {
	chain := newTestChain(t)

	// Close 100, EMA34 99.8: a 0.2 retracement inside the 0.3 tolerance band.
	// ATR over the flat window is exactly 1.0, so the stop lands at 99.3 and
	// the 3.0 swing leg projects the target to 103.
	in := baseInput()
	out := chain.Evaluate(context.Background(), in)

	require.True(t, out.Accepted(), "expected acceptance, got %+v", out.Rejection)
	sig := out.Signal
	assert.Equal(t, "ETHUSDT", sig.Symbol)
	assert.Equal(t, domain.Buy, sig.Direction)
	assert.InDelta(t, 100.0, sig.Entry, 1e-9)
	assert.InDelta(t, 99.3, sig.StopLoss, 1e-9)
	assert.InDelta(t, 103.0, sig.TakeProfit, 1e-9)
	assert.InDelta(t, 3.0/0.7, sig.RiskReward, 1e-9)
	assert.Equal(t, 200, sig.BarIndex)
	assert.Equal(t, in.Bars[len(in.Bars)-1].CloseTime, sig.Timestamp)
	assert.GreaterOrEqual(t, sig.Quality, 75.0)
	assert.GreaterOrEqual(t, sig.Confidence, 80.0)
}

func TestChain_SellPullback(t *testing.T) {
	chain := newTestChain(t)

	in := baseInput()
	in.Regime.Regime = domain.TrendDown
	in.Regime.TrendDirection = domain.DirectionDown
	in.Regime.EMA34Trend = domain.EMADown
	in.Regime.EMA34 = 100.2 // price retraced up to just below the average
	in.Swing = &domain.SwingState{Trend: domain.SwingDown, Quality: 80, Count: 5, LastHigh: 101, LastLow: 98}

	out := chain.Evaluate(context.Background(), in)
	require.True(t, out.Accepted(), "expected acceptance, got %+v", out.Rejection)
	sig := out.Signal
	assert.Equal(t, domain.Sell, sig.Direction)
	assert.InDelta(t, 100.7, sig.StopLoss, 1e-9) // ref + 0.5*ATR
	assert.InDelta(t, 97.0, sig.TakeProfit, 1e-9)
	assert.Less(t, sig.TakeProfit, sig.Entry)
}

func TestChain_SignalQuality(t *testing.T) {
	chain := newTestChain(t)

	// Swing quality 62 passes gate 4 but drags the composite below 75.
	in := baseInput()
	in.Swing.Quality = 62

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectSignalQuality, out.Rejection.Reason)
}

func TestChain_RiskReward(t *testing.T) {
	chain := newTestChain(t)

	// No usable swing leg, so the pivot span (R1-P = 0.5) projects a target
	// too close to the entry for the 0.7 risk.
	in := baseInput()
	in.Swing.LastHigh = 0
	in.Swing.LastLow = 0
	in.Pivots = &domain.PivotLevels{Pivot: 100, R1: 100.5, R2: 101, S1: 99.5, S2: 99}

	out := chain.Evaluate(context.Background(), in)
	require.False(t, out.Accepted())
	assert.Equal(t, domain.RejectRiskReward, out.Rejection.Reason)
}

func TestChain_Breakout(t *testing.T) {
	chain := newTestChain(t)

	// Prior close below the last swing high, current close through it, no
	// pullback zone available: the breakout fallback fires.
	in := baseInput()
	in.Bars = flatBars(30, 100, 0.5)
	in.Bars[len(in.Bars)-1].Close = 102.2
	in.Bars[len(in.Bars)-1].High = 102.7
	in.Bars[len(in.Bars)-1].Low = 101.7
	in.Regime.EMA34 = 95 // far below price, no pullback match
	in.Swing.LastHigh = 102
	in.Swing.LastLow = 99

	out := chain.Evaluate(context.Background(), in)
	require.True(t, out.Accepted(), "expected acceptance, got %+v", out.Rejection)
	sig := out.Signal
	assert.Equal(t, domain.Buy, sig.Direction)
	assert.InDelta(t, 102.2, sig.Entry, 1e-9)
	assert.Less(t, sig.StopLoss, 102.0)
	assert.Greater(t, sig.TakeProfit, sig.Entry)
}
