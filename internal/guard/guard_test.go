package guard

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

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.SessionStartHourUTC = 25
	_, err = New(cfg, noopLogger{})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxActivePositions = 0
	_, err = New(cfg, noopLogger{})
	assert.Error(t, err)
}

func TestWithinTradingHours(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2024, 3, 10, hour, 30, 0, 0, time.UTC)
	}

	t.Run("daytime window", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SessionStartHourUTC = 8
		cfg.SessionEndHourUTC = 20
		g, err := New(cfg, noopLogger{})
		require.NoError(t, err)

		assert.False(t, g.WithinTradingHours("ETHUSDT", at(7)))
		assert.True(t, g.WithinTradingHours("ETHUSDT", at(8)))
		assert.True(t, g.WithinTradingHours("ETHUSDT", at(19)))
		assert.False(t, g.WithinTradingHours("ETHUSDT", at(20)))
	})

	t.Run("window wrapping midnight", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SessionStartHourUTC = 22
		cfg.SessionEndHourUTC = 4
		g, err := New(cfg, noopLogger{})
		require.NoError(t, err)

		assert.True(t, g.WithinTradingHours("ETHUSDT", at(23)))
		assert.True(t, g.WithinTradingHours("ETHUSDT", at(2)))
		assert.False(t, g.WithinTradingHours("ETHUSDT", at(10)))
	})

	t.Run("always open", func(t *testing.T) {
		g, err := New(DefaultConfig(), noopLogger{})
		require.NoError(t, err)
		for hour := 0; hour < 24; hour++ {
			assert.True(t, g.WithinTradingHours("ETHUSDT", at(hour)))
		}
	})
}

func TestMayTrade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TradingEnabled = false
	g, err := New(cfg, noopLogger{})
	require.NoError(t, err)
	assert.False(t, g.MayTrade(context.Background(), "ETHUSDT"))

	cfg.TradingEnabled = true
	g, err = New(cfg, noopLogger{})
	require.NoError(t, err)
	assert.True(t, g.MayTrade(context.Background(), "ETHUSDT"))
}

func TestPositionCounting(t *testing.T) {
	g, err := New(DefaultConfig(), noopLogger{})
	require.NoError(t, err)
	ctx := context.Background()

	n, err := g.ActivePositions(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	g.PositionOpened("ETHUSDT")
	g.PositionOpened("ETHUSDT")
	g.PositionOpened("BTCUSDT")

	n, _ = g.ActivePositions(ctx, "ETHUSDT")
	assert.Equal(t, 2, n)
	n, _ = g.ActivePositions(ctx, "BTCUSDT")
	assert.Equal(t, 1, n)

	g.PositionClosed("ETHUSDT")
	n, _ = g.ActivePositions(ctx, "ETHUSDT")
	assert.Equal(t, 1, n)

	// Closing past zero must not go negative.
	g.PositionClosed("BTCUSDT")
	g.PositionClosed("BTCUSDT")
	n, _ = g.ActivePositions(ctx, "BTCUSDT")
	assert.Equal(t, 0, n)
}

func TestMicrostructureCheck(t *testing.T) {
	check := &MicrostructureCheck{MaxSpreadPct: 0.001, MinVolume: 10}
	ctx := context.Background()

	bar := func(volume, spread float64) []*domain.Bar {
		return []*domain.Bar{{Close: 100, Volume: volume, Spread: spread}}
	}

	assert.False(t, check.AcceptableQuality(ctx, "ETHUSDT", nil), "no bars")
	assert.False(t, check.AcceptableQuality(ctx, "ETHUSDT", bar(5, 0.05)), "volume too low")
	assert.False(t, check.AcceptableQuality(ctx, "ETHUSDT", bar(100, 0.5)), "spread too wide")
	assert.True(t, check.AcceptableQuality(ctx, "ETHUSDT", bar(100, 0.05)))
	assert.True(t, check.AcceptableQuality(ctx, "ETHUSDT", bar(100, 0)), "feed without spread data")
}
