package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
)

// Config holds the pre-trade gating parameters.
type Config struct {
	// Trading session window in UTC hours. Start == 0 and End == 24 means
	// always open (continuous venues).
	SessionStartHourUTC int
	SessionEndHourUTC   int

	TradingEnabled     bool // the global "may trade" switch
	MaxActivePositions int  // pipeline is skipped at or above this count
}

// DefaultConfig returns an always-open, single-position configuration.
func DefaultConfig() Config {
	return Config{SessionStartHourUTC: 0, SessionEndHourUTC: 24, TradingEnabled: true, MaxActivePositions: 1}
}

// PreTradeGuard implements the upstream collaborator contracts the signal
// service consults before running the pipeline: session calendar, risk
// authorization and active-position counting. Position counts are reported
// back by the execution collaborator via PositionOpened/PositionClosed.
type PreTradeGuard struct {
	cfg    Config
	logger ports.Logger

	mu        sync.Mutex
	positions map[string]int
}

// New creates a new PreTradeGuard.
func New(cfg Config, logger ports.Logger) (*PreTradeGuard, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for pre-trade guard")
	}
	if cfg.SessionStartHourUTC < 0 || cfg.SessionStartHourUTC > 23 {
		return nil, fmt.Errorf("SessionStartHourUTC must be in [0,23]")
	}
	if cfg.SessionEndHourUTC < 1 || cfg.SessionEndHourUTC > 24 {
		return nil, fmt.Errorf("SessionEndHourUTC must be in [1,24]")
	}
	if cfg.MaxActivePositions < 1 {
		return nil, fmt.Errorf("MaxActivePositions must be positive")
	}
	return &PreTradeGuard{cfg: cfg, logger: logger, positions: make(map[string]int)}, nil
}

// WithinTradingHours implements ports.SessionCalendar over a daily UTC
// window, including windows that wrap midnight.
func (g *PreTradeGuard) WithinTradingHours(symbol string, t time.Time) bool {
	hour := t.UTC().Hour()
	start, end := g.cfg.SessionStartHourUTC, g.cfg.SessionEndHourUTC
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// MayTrade implements ports.RiskAuthorizer.
func (g *PreTradeGuard) MayTrade(ctx context.Context, symbol string) bool {
	return g.cfg.TradingEnabled
}

// ActivePositions implements ports.PositionCounter.
func (g *PreTradeGuard) ActivePositions(ctx context.Context, symbol string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions[symbol], nil
}

// MaxPositions returns the configured per-instrument position cap.
func (g *PreTradeGuard) MaxPositions() int {
	return g.cfg.MaxActivePositions
}

// PositionOpened records that the execution collaborator opened a position.
func (g *PreTradeGuard) PositionOpened(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[symbol]++
}

// PositionClosed records that the execution collaborator closed a position.
func (g *PreTradeGuard) PositionClosed(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.positions[symbol] > 0 {
		g.positions[symbol]--
	}
}

// MicrostructureCheck is a minimal ports.MicrostructureAnalyzer: the last
// bar must have traded volume and a spread within the configured fraction of
// price. Feeds that do not report spread (spread 0) pass the spread check.
type MicrostructureCheck struct {
	MaxSpreadPct float64 // e.g. 0.001
	MinVolume    float64 // e.g. 0
}

// AcceptableQuality implements ports.MicrostructureAnalyzer.
func (m *MicrostructureCheck) AcceptableQuality(ctx context.Context, symbol string, bars []*domain.Bar) bool {
	if len(bars) == 0 {
		return false
	}
	last := bars[len(bars)-1]
	if last.Volume < m.MinVolume {
		return false
	}
	if m.MaxSpreadPct > 0 && last.Close > 0 && last.Spread/last.Close > m.MaxSpreadPct {
		return false
	}
	return true
}
