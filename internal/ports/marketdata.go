package ports

import (
	"context"
	"time"

	"trendSignalBot/internal/domain"
)

// MarketDataClient defines the interface for consuming bar data from an
// exchange. This abstraction decouples the signal engine from specific feed
// implementations. Order placement is deliberately absent: execution belongs
// to an external collaborator.
type MarketDataClient interface {
	// SetServerTime synchronizes the client's time with the server's time.
	SetServerTime(ctx context.Context) error

	// Ping checks the connectivity to the feed API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the feed.
	GetServerTime(ctx context.Context) (time.Time, error)

	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetKlines retrieves the most recent closed bars for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Bar, error)

	// GetKlinesRange fetches all bars for a symbol/interval between start and end time.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error)

	// StreamKlines starts a WebSocket stream of bar events.
	// It takes handlers for processing domain.Bar events and errors.
	// Returns channels to control the stream (doneCh, stopCh) or an error if connection fails.
	StreamKlines(ctx context.Context, symbol, interval string, handler func(bar *domain.Bar), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}
