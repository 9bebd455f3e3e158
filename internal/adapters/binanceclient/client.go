package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.MarketDataClient interface using the
// go-binance library. Read-only: the signal engine consumes bars and prices;
// order placement belongs to the execution collaborator.
type Client struct {
	futuresClient        *futures.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey               string
	SecretKey            string
	UseTestnet           bool
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Reconnect delay (e.g., 1 * time.Second)
	MaxReconnectAttempts int           // Max attempts before giving up
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
		// Kline endpoints are public, so this is fine for pure signal detection.
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	// Default reconnect settings if not provided
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	return &Client{
		futuresClient:        client,
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	var finalErr error
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2014: // API-key format invalid
			mappedErr = ports.ErrInvalidAPIKeys
		case -2015: // Invalid API-key, IP, or permissions for action
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			// General classification for unmapped API errors
			mappedErr = ports.ErrUnknown
		}
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// SetServerTime synchronizes the client's time with the server's time.
func (c *Client) SetServerTime(ctx context.Context) error {
	op := "SetServerTime"
	_, err := c.futuresClient.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		// Ping failure likely indicates connection or availability issues
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetServerTime retrieves the current server time from the exchange.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	op := "GetServerTime"
	serverTimeMs, err := c.futuresClient.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, op)
	}
	// Convert milliseconds to time.Time
	return time.UnixMilli(serverTimeMs), nil
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no ticker data returned for symbol %s", symbol)
		return 0, c.handleError(ctx, err, op)
	}

	price, err := strconv.ParseFloat(tickers[0].LastPrice, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// StreamKlines starts a WebSocket stream for bar data with reconnection.
func (c *Client) StreamKlines(ctx context.Context, symbol, interval string, handler func(bar *domain.Bar), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "StreamKlines"
	wsCtx, cancelWs := context.WithCancel(ctx) // Create a cancellable context for the WS lifecycle

	// Wrapper for the domain handler to perform translation
	binanceHandler := func(event *futures.WsKlineEvent) {
		bar, err := translateWsKline(event)
		if err != nil {
			c.logger.Error(wsCtx, err, op+": Failed to translate WebSocket kline event")
			// A translation error should not trigger reconnection logic
			return
		}
		handler(bar)
	}

	// Wrapper for the error handler to perform translation and logging
	binanceErrHandler := func(err error) {
		translatedErr := c.handleError(wsCtx, err, op+" WebSocket")
		c.logger.Warn(wsCtx, op+": WebSocket error reported", map[string]interface{}{"error": translatedErr})
		errHandler(translatedErr) // Pass the translated error up
	}

	// Reconnection loop
	go func() {
		defer cancelWs() // Ensure context is cancelled when this goroutine exits

		attempt := 0
		for {
			select {
			case <-wsCtx.Done():
				c.logger.Info(wsCtx, op+": Context cancelled, stopping connection attempts.", map[string]interface{}{"symbol": symbol, "interval": interval})
				return // Exit loop if context is cancelled
			default:
				// Attempt connection
				c.logger.Info(wsCtx, op+": Attempting WebSocket connection...", map[string]interface{}{"symbol": symbol, "interval": interval, "attempt": attempt + 1})
				innerDoneCh, innerStopCh, connectErr := futures.WsKlineServe(symbol, interval, binanceHandler, binanceErrHandler)

				if connectErr != nil {
					c.handleError(wsCtx, connectErr, op+" connection attempt") // Log the connection error
					attempt++
					if attempt >= c.maxReconnectAttempts {
						c.logger.Error(wsCtx, connectErr, op+": Max reconnection attempts exceeded, giving up.", map[string]interface{}{"symbol": symbol, "interval": interval, "maxAttempts": c.maxReconnectAttempts})
						return
					}

					// Calculate delay with exponential backoff and jitter
					delay := c.reconnectDelay * time.Duration(1<<uint(attempt-1))
					jitter := time.Duration(float64(delay) * 0.1 * float64(time.Millisecond)) // 10% jitter
					actualDelay := delay + jitter
					c.logger.Info(wsCtx, op+": Connection failed, retrying...", map[string]interface{}{"symbol": symbol, "interval": interval, "attempt": attempt + 1, "delay": actualDelay.String()})

					select {
					case <-time.After(actualDelay):
						continue // Retry connection
					case <-wsCtx.Done():
						c.logger.Info(wsCtx, op+": Context cancelled during backoff.", map[string]interface{}{"symbol": symbol, "interval": interval})
						return // Exit if context cancelled during wait
					}
				}

				// Connection successful
				c.logger.Info(wsCtx, op+": WebSocket connection established.", map[string]interface{}{"symbol": symbol, "interval": interval})
				attempt = 0 // Reset attempt count on successful connection

				// Wait for the inner connection to close or the context to be cancelled
				select {
				case <-innerDoneCh:
					c.logger.Warn(wsCtx, op+": WebSocket connection closed unexpectedly. Reconnecting...", map[string]interface{}{"symbol": symbol, "interval": interval})
					// Loop will continue and attempt reconnection
				case <-wsCtx.Done():
					c.logger.Info(wsCtx, op+": Context cancelled, stopping WebSocket.", map[string]interface{}{"symbol": symbol, "interval": interval})
					// Send stop signal to inner WebSocket
					select {
					case innerStopCh <- struct{}{}:
						c.logger.Debug(wsCtx, op+": Stop signal sent to inner WebSocket.", map[string]interface{}{"symbol": symbol, "interval": interval})
					default:
						c.logger.Warn(wsCtx, op+": Failed to send stop signal to inner WebSocket (already closed?).", map[string]interface{}{"symbol": symbol, "interval": interval})
					}
					return // Exit goroutine
				}
			}
		}
	}()

	// Return channels linked to the lifecycle of the reconnection goroutine
	// doneCh signals when the reconnection loop exits (either success or max attempts)
	// stopCh allows the caller to cancel the reconnection loop via wsCtx
	doneCh = make(chan struct{})
	stopCh = make(chan struct{}) // This stopCh controls the outer loop via context cancellation

	// Goroutine to link the external stopCh to the internal context cancellation
	go func() {
		select {
		case <-stopCh:
			c.logger.Info(ctx, op+": Received external stop signal, cancelling WebSocket context.", map[string]interface{}{"symbol": symbol, "interval": interval})
			cancelWs()
		case <-wsCtx.Done():
			// If wsCtx is cancelled internally or by the parent context, just exit
			c.logger.Debug(ctx, op+": WebSocket context done, stop listener exiting.", map[string]interface{}{"symbol": symbol, "interval": interval})
		}
	}()

	// Goroutine to close the external doneCh when the internal context is done
	go func() {
		<-wsCtx.Done()
		c.logger.Info(ctx, op+": WebSocket context done, closing external done channel.", map[string]interface{}{"symbol": symbol, "interval": interval})
		close(doneCh)
	}()

	return doneCh, stopCh, nil
}

// GetKlines retrieves historical bars for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Bar, error) {
	op := "GetKlines"
	binanceKlines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	bars := make([]*domain.Bar, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		bar, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// GetKlinesRange fetches all bars for a symbol/interval between start and end time.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Bar, error) {
	op := "GetKlinesRange"
	var allBars []*domain.Bar
	const maxLimit = 1500
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			bar, err := translateBinanceKline(bk, symbol, interval)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline range: %w", err), op)
			}
			allBars = append(allBars, bar)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime)
		if from.After(end) || len(klines) < maxLimit {
			break
		}
	}

	return allBars, nil
}

// --- Translation Helpers ---

// Kline payloads carry no bid/ask data, so translated bars always have
// Spread 0; the microstructure check treats that as "not reported".

func translateWsKline(event *futures.WsKlineEvent) (*domain.Bar, error) {
	if event == nil {
		return nil, errors.New("received nil kline event")
	}
	k := event.Kline
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", k.Low, err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}

	return &domain.Bar{
		OpenTime:  time.UnixMilli(k.StartTime),
		CloseTime: time.UnixMilli(k.EndTime),
		Symbol:    k.Symbol,
		Interval:  k.Interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   k.IsFinal,
	}, nil
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Bar, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Bar{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,   // Use passed symbol as it's not in futures.Kline
		Interval:  interval, // Use passed interval
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   true, // Historical klines are always final
	}, nil
}
