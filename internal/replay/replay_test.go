package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy"
	"trendSignalBot/internal/strategy/filter"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func replayBars(n int) []*domain.Bar {
	base := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i%5)
		bars[i] = &domain.Bar{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return bars
}

func testConfig() Config {
	return Config{
		Symbol:    "ETHUSDT",
		Cooldown:  filter.DefaultCooldownConfig(),
		ATRPeriod: 14,
		WindowCap: 500,
	}
}

func newTestDetector(t *testing.T) ports.SignalDetector {
	t.Helper()
	d, err := strategy.NewDetector(strategy.DefaultConfig(), noopLogger{})
	require.NoError(t, err)
	return d
}

func TestNew_Validation(t *testing.T) {
	detector := newTestDetector(t)

	_, err := New(testConfig(), nil, noopLogger{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Symbol = ""
	_, err = New(cfg, detector, noopLogger{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.WindowCap = 5 // below the detector's minimum window
	_, err = New(cfg, detector, noopLogger{})
	assert.Error(t, err)
}

func TestRun_TooFewBars(t *testing.T) {
	engine, err := New(testConfig(), newTestDetector(t), noopLogger{})
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), replayBars(10))
	assert.Error(t, err)
}

func TestRun_EvaluatesEveryBarOnce(t *testing.T) {
	detector := newTestDetector(t)
	engine, err := New(testConfig(), detector, noopLogger{})
	require.NoError(t, err)

	bars := replayBars(120)
	result, err := engine.Run(context.Background(), bars)
	require.NoError(t, err)

	wantEvaluations := len(bars) - detector.MinimumBars() + 1
	assert.Equal(t, wantEvaluations, result.Stats.Evaluated)
	assert.Equal(t, result.Stats.Accepted, len(result.Signals))
	assert.NotEmpty(t, result.Report)
}

func TestRun_ContextCancellation(t *testing.T) {
	engine, err := New(testConfig(), newTestDetector(t), noopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Run(ctx, replayBars(120))
	assert.ErrorIs(t, err, context.Canceled)
}
