package ports

import (
	"context"
	"time"

	"trendSignalBot/internal/domain"
)

// SessionCalendar answers whether an instrument is within trading hours at a
// given time. Consulted upstream of the detection pipeline.
type SessionCalendar interface {
	WithinTradingHours(symbol string, t time.Time) bool
}

// RiskAuthorizer supplies the per-invocation "may trade" flag. Account risk
// limits themselves live outside this system.
type RiskAuthorizer interface {
	MayTrade(ctx context.Context, symbol string) bool
}

// PositionCounter reports how many positions are currently open for an
// instrument; the pipeline is skipped while one is open.
type PositionCounter interface {
	ActivePositions(ctx context.Context, symbol string) (int, error)
}

// MicrostructureAnalyzer yields the already-resolved liquidity/volume verdict
// consumed by the filter chain. The chain never fetches this itself.
type MicrostructureAnalyzer interface {
	AcceptableQuality(ctx context.Context, symbol string, bars []*domain.Bar) bool
}

// SignalHandler receives accepted signals, e.g. an order-execution
// collaborator or a notifier.
type SignalHandler interface {
	HandleSignal(ctx context.Context, sig *domain.Signal) error
}
