package filter

import (
	"fmt"
	"math"
	"time"

	"trendSignalBot/internal/domain"
)

// CooldownConfig holds the signal-spacing parameters.
type CooldownConfig struct {
	MinBarsBetweenSignals int           // bar-count cooldown consumed by the chain's gate 2, e.g. 12
	BaseCooldown          time.Duration // wall-clock cooldown for same-direction signals, e.g. 30m
	OppositeCooldown      time.Duration // wall-clock cooldown for opposite-direction signals, e.g. 15m
	ReducedCooldown       time.Duration // cooldown after a significant market move, e.g. 10m
	SignificantMoveATR    float64       // ATR multiple that counts as a significant move, e.g. 2
	SignificantMovePct    float64       // price change fraction that counts as a significant move, e.g. 0.01
}

// DefaultCooldownConfig returns the cooldown defaults.
func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{
		MinBarsBetweenSignals: 12,
		BaseCooldown:          30 * time.Minute,
		OppositeCooldown:      15 * time.Minute,
		ReducedCooldown:       10 * time.Minute,
		SignificantMoveATR:    2,
		SignificantMovePct:    0.01,
	}
}

// CooldownTracker maintains one instrument's last-signal bookkeeping. The
// state is mutated only through Record, immediately after a signal is
// accepted; rejections leave it untouched. The full state can be restored
// from the journal at startup.
type CooldownTracker struct {
	cfg   CooldownConfig
	state domain.CooldownState
}

// NewCooldownTracker creates a tracker with empty state.
func NewCooldownTracker(cfg CooldownConfig) (*CooldownTracker, error) {
	if cfg.MinBarsBetweenSignals < 0 {
		return nil, fmt.Errorf("MinBarsBetweenSignals cannot be negative")
	}
	if cfg.BaseCooldown < 0 || cfg.OppositeCooldown < 0 || cfg.ReducedCooldown < 0 {
		return nil, fmt.Errorf("cooldown durations cannot be negative")
	}
	if cfg.ReducedCooldown > cfg.BaseCooldown {
		return nil, fmt.Errorf("ReducedCooldown cannot exceed BaseCooldown")
	}
	if cfg.SignificantMoveATR < 0 || cfg.SignificantMovePct < 0 {
		return nil, fmt.Errorf("significant-move thresholds cannot be negative")
	}
	return &CooldownTracker{cfg: cfg, state: domain.EmptyCooldownState()}, nil
}

// State returns a snapshot of the tracker state.
func (t *CooldownTracker) State() domain.CooldownState {
	return t.state
}

// Restore replaces the tracker state, e.g. from the journal at startup.
func (t *CooldownTracker) Restore(state domain.CooldownState) {
	t.state = state
}

// Record updates the bookkeeping from an accepted signal.
func (t *CooldownTracker) Record(sig *domain.Signal) {
	t.state = domain.CooldownState{
		LastSignalBarIndex: sig.BarIndex,
		LastSignalTime:     sig.Timestamp,
		LastDirection:      sig.Direction,
		LastPrice:          sig.Entry,
	}
}

// AllowsBar reports whether the bar-count spacing permits a signal at the
// given bar index.
func (t *CooldownTracker) AllowsBar(barIndex int) bool {
	if t.state.LastSignalBarIndex < 0 {
		return true
	}
	return barIndex-t.state.LastSignalBarIndex >= t.cfg.MinBarsBetweenSignals
}

// AllowsTime applies the direction-aware wall-clock cooldown: same-direction
// signals wait the base cooldown, opposite-direction signals the shorter
// one, and either is cut to the reduced cooldown once the market has moved
// significantly (>= SignificantMoveATR x ATR or >= SignificantMovePct of
// price) since the last signal, so a reacting signal may be taken even during
// an otherwise active cooldown.
func (t *CooldownTracker) AllowsTime(now time.Time, direction domain.Side, price, atr float64) bool {
	if t.state.LastSignalTime.IsZero() {
		return true
	}

	required := t.cfg.BaseCooldown
	if direction != t.state.LastDirection {
		required = t.cfg.OppositeCooldown
	}
	if t.significantMove(price, atr) && t.cfg.ReducedCooldown < required {
		required = t.cfg.ReducedCooldown
	}
	return now.Sub(t.state.LastSignalTime) >= required
}

func (t *CooldownTracker) significantMove(price, atr float64) bool {
	move := math.Abs(price - t.state.LastPrice)
	if atr > 0 && t.cfg.SignificantMoveATR > 0 && move >= t.cfg.SignificantMoveATR*atr {
		return true
	}
	return t.state.LastPrice > 0 && t.cfg.SignificantMovePct > 0 &&
		move/t.state.LastPrice >= t.cfg.SignificantMovePct
}
