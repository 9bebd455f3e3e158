package pivots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendSignalBot/internal/domain"
)

func TestCompute(t *testing.T) {
	levels, err := Compute(24345.46, 24199.99, 24300.01)
	require.NoError(t, err)

	assert.InDelta(t, 24281.82, levels.Pivot, 0.01)
	assert.InDelta(t, 24363.65, levels.R1, 0.01)
	assert.InDelta(t, 24218.18, levels.S1, 0.01)
	assert.InDelta(t, 24427.29, levels.R2, 0.01)
	assert.InDelta(t, 24136.35, levels.S2, 0.01)
}

func TestCompute_Properties(t *testing.T) {
	high, low, close := 105.0, 95.0, 101.0
	levels, err := Compute(high, low, close)
	require.NoError(t, err)

	// R1 and S1 are reflections of low and high through the pivot.
	assert.InDelta(t, 2*levels.Pivot, levels.R1+levels.S1, 1e-9)
	// The R2/S2 band spans twice the session range.
	assert.InDelta(t, 2*(high-low), levels.R2-levels.S2, 1e-9)
	// Ordering holds whenever the inputs are consistent.
	assert.Less(t, levels.S2, levels.S1)
	assert.Less(t, levels.S1, levels.Pivot)
	assert.Less(t, levels.Pivot, levels.R1)
	assert.Less(t, levels.R1, levels.R2)
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(0, 95, 101)
	assert.Error(t, err)

	_, err = Compute(100, -5, 101)
	assert.Error(t, err)

	_, err = Compute(95, 105, 101) // low above high
	assert.Error(t, err)
}

func sessionBar(t time.Time, high, low, close float64) *domain.Bar {
	return &domain.Bar{
		OpenTime:  t.Add(-time.Hour),
		CloseTime: t,
		Open:      close,
		High:      high,
		Low:       low,
		Close:     close,
		IsFinal:   true,
	}
}

func TestFromPreviousSession(t *testing.T) {
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	prevDay := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	bars := []*domain.Bar{
		// Two days back: must be ignored.
		sessionBar(prevDay.Add(-12*time.Hour), 500, 400, 450),
		// Previous session: aggregated into H=110, L=90, C=104.
		sessionBar(prevDay.Add(6*time.Hour), 105, 90, 100),
		sessionBar(prevDay.Add(12*time.Hour), 110, 98, 108),
		sessionBar(prevDay.Add(18*time.Hour), 109, 101, 104),
		// Current session: must be ignored.
		sessionBar(now.Add(-time.Hour), 120, 115, 118),
	}

	levels, err := FromPreviousSession(bars, now)
	require.NoError(t, err)

	expected, err := Compute(110, 90, 104)
	require.NoError(t, err)
	assert.Equal(t, expected, levels)
}

func TestFromPreviousSession_MidnightBoundary(t *testing.T) {
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	prevDay := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	bars := []*domain.Bar{
		// Closes exactly at the previous session's start: the final bar of
		// the session before that, must be ignored.
		sessionBar(prevDay, 500, 400, 450),
		sessionBar(prevDay.Add(12*time.Hour), 105, 95, 100),
		// Closes exactly at the current session's start: the previous
		// session's final bar, carries its high and close.
		sessionBar(prevDay.Add(24*time.Hour), 112, 99, 108),
	}

	levels, err := FromPreviousSession(bars, now)
	require.NoError(t, err)

	expected, err := Compute(112, 95, 108)
	require.NoError(t, err)
	assert.Equal(t, expected, levels)
}

func TestFromPreviousSession_NoPriorBars(t *testing.T) {
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	bars := []*domain.Bar{
		sessionBar(now.Add(-time.Hour), 120, 115, 118), // current session only
	}
	_, err := FromPreviousSession(bars, now)
	assert.Error(t, err)
}
