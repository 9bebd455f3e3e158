package ports

import (
	"context"

	"trendSignalBot/internal/domain"
)

// SignalJournal defines the interface for persisting accepted signals and
// serving them back for cooldown reconstruction and inspection. The journal
// stores emitted outputs only; core pipeline state stays in memory.
type SignalJournal interface {
	// Append saves an accepted signal and returns its assigned ID.
	Append(ctx context.Context, sig *domain.Signal) (int64, error)
	// LastBySymbol retrieves the most recently journaled signal for a symbol.
	// Returns nil, nil if none exists.
	LastBySymbol(ctx context.Context, symbol string) (*domain.Signal, error)
	// FindBySymbol retrieves the most recent signals for a symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error)
	// CountTodayBySymbol counts the signals journaled today for a symbol.
	CountTodayBySymbol(ctx context.Context, symbol string) (int, error)
}
