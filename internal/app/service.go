package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trendSignalBot/config"
	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/filter"
	"trendSignalBot/internal/strategy/indicators"
)

// Deps bundles the collaborators of the signal service.
type Deps struct {
	Market   ports.MarketDataClient
	Journal  ports.SignalJournal
	Detector ports.SignalDetector
	Calendar ports.SessionCalendar
	Risk     ports.RiskAuthorizer
	Position ports.PositionCounter
	Micro    ports.MicrostructureAnalyzer
	Handler  ports.SignalHandler
}

// instrumentState is the per-symbol pipeline state. Each instrument gets its
// own worker goroutine, so the fields need no locking: only that worker
// touches them after Start.
type instrumentState struct {
	symbol   string
	bars     []*domain.Bar
	barIndex int // monotonic count of closed bars seen this run
	cooldown *filter.CooldownTracker
	events   chan *domain.Bar
}

// SignalService orchestrates the signal-detection loop: it maintains a
// rolling bar window per instrument, runs the upstream gates, invokes the
// detector on every closed bar and journals accepted signals.
type SignalService struct {
	cfg          *config.Config
	logger       ports.Logger
	deps         Deps
	maxPositions int
	atr          *indicators.ATR

	instruments map[string]*instrumentState
	wg          sync.WaitGroup
}

// NewSignalService creates a new application service instance.
func NewSignalService(cfg *config.Config, logger ports.Logger, deps Deps, maxPositions int) (*SignalService, error) {
	// Validate dependencies
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SignalService")
	}
	if deps.Market == nil || deps.Journal == nil || deps.Detector == nil || deps.Handler == nil {
		return nil, fmt.Errorf("market client, journal, detector and handler are required")
	}
	if deps.Calendar == nil || deps.Risk == nil || deps.Position == nil || deps.Micro == nil {
		return nil, fmt.Errorf("pre-trade collaborators (calendar, risk, position, microstructure) are required")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("configuration must list at least one symbol")
	}
	if cfg.BarCacheSize < deps.Detector.MinimumBars() {
		return nil, fmt.Errorf("BarCacheSize (%d) below detector minimum (%d)", cfg.BarCacheSize, deps.Detector.MinimumBars())
	}
	if maxPositions < 1 {
		return nil, fmt.Errorf("maxPositions must be positive")
	}

	return &SignalService{
		cfg:          cfg,
		logger:       logger,
		deps:         deps,
		maxPositions: maxPositions,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
		instruments: make(map[string]*instrumentState),
	}, nil
}

func (s *SignalService) cooldownConfig() filter.CooldownConfig {
	return filter.CooldownConfig{
		MinBarsBetweenSignals: s.cfg.MinBarsBetweenSignals,
		BaseCooldown:          s.cfg.BaseCooldown,
		OppositeCooldown:      s.cfg.OppositeCooldown,
		ReducedCooldown:       s.cfg.ReducedCooldown,
		SignificantMoveATR:    s.cfg.SignificantMoveATR,
		SignificantMovePct:    s.cfg.SignificantMovePct,
	}
}

// Start begins the signal service's main loop. It blocks until the context
// is cancelled, a shutdown signal arrives or a stream dies for good.
func (s *SignalService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Signal Service...", map[string]interface{}{"symbols": s.cfg.Symbols, "interval": s.cfg.Interval})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel() // Cancel the main context
	}()

	// --- Initialization Steps ---
	// 1. Set server time (important for API calls)
	if err := s.deps.Market.SetServerTime(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed to synchronize server time")
		return fmt.Errorf("failed to set server time: %w", err)
	}
	s.logger.Info(ctx, "Server time synchronized")

	// 2. Seed per-instrument state: bar history and cooldown.
	required := s.deps.Detector.MinimumBars()
	for _, symbol := range s.cfg.Symbols {
		state, err := s.seedInstrument(ctx, symbol, required)
		if err != nil {
			return err
		}
		s.instruments[symbol] = state
	}

	// 3. Start one stream and one worker per instrument.
	type streamHandles struct {
		symbol string
		doneCh chan struct{}
		stopCh chan struct{}
	}
	streams := make([]streamHandles, 0, len(s.instruments))
	streamDied := make(chan string, len(s.instruments))

	for symbol, state := range s.instruments {
		st := state
		handler := func(bar *domain.Bar) {
			if !bar.IsFinal {
				return
			}
			select {
			case st.events <- bar:
			case <-ctx.Done():
			}
		}
		errHandler := func(err error) {
			s.logger.Error(ctx, err, "WebSocket stream error reported", map[string]interface{}{"symbol": st.symbol})
		}

		doneCh, stopCh, err := s.deps.Market.StreamKlines(ctx, symbol, s.cfg.Interval, handler, errHandler)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to start stream for %s: %w", symbol, err)
		}
		streams = append(streams, streamHandles{symbol: symbol, doneCh: doneCh, stopCh: stopCh})
		s.logger.Info(ctx, "Bar stream started", map[string]interface{}{"symbol": symbol, "interval": s.cfg.Interval})

		s.wg.Add(1)
		go s.runWorker(ctx, st)

		sym := symbol
		go func(done chan struct{}) {
			<-done
			select {
			case streamDied <- sym:
			default:
			}
		}(doneCh)
	}

	// --- Main Loop ---
	// The work happens in the per-instrument workers. Wait for cancellation
	// or a stream that exhausted its reconnection attempts.
	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
	case symbol := <-streamDied:
		runErr = fmt.Errorf("bar stream for %s stopped unexpectedly", symbol)
		s.logger.Error(ctx, runErr, "Stream stopped, shutting down")
		cancel()
	}

	// Signal all streams to stop and wait briefly for graceful closure.
	for _, h := range streams {
		select {
		case h.stopCh <- struct{}{}:
		default:
		}
	}
	for _, h := range streams {
		select {
		case <-h.doneCh:
		case <-time.After(5 * time.Second):
			s.logger.Warn(ctx, "Timeout waiting for stream to shut down", map[string]interface{}{"symbol": h.symbol})
		}
	}
	s.wg.Wait()

	s.logger.Info(ctx, "Signal Service stopped.")
	return runErr
}

// seedInstrument loads initial history and rebuilds cooldown state for one
// symbol.
func (s *SignalService) seedInstrument(ctx context.Context, symbol string, required int) (*instrumentState, error) {
	bars, err := s.deps.Market.GetKlines(ctx, symbol, s.cfg.Interval, s.cfg.BarCacheSize)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load initial bars", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("failed to load initial bars for %s: %w", symbol, err)
	}
	if len(bars) < required {
		err := fmt.Errorf("not enough initial bars for %s (%d) to meet detector requirement (%d)", symbol, len(bars), required)
		s.logger.Error(ctx, err, "Insufficient historical data")
		return nil, err
	}

	cooldown, err := filter.NewCooldownTracker(s.cooldownConfig())
	if err != nil {
		return nil, fmt.Errorf("cooldown tracker for %s: %w", symbol, err)
	}

	// Rebuild the wall-clock cooldown from the last journaled signal. Bar
	// indexes do not survive restarts, so the bar-count cooldown starts
	// clean while time, direction and price carry over.
	last, err := s.deps.Journal.LastBySymbol(ctx, symbol)
	switch {
	case err == nil:
		cooldown.Restore(domain.CooldownState{
			LastSignalBarIndex: -1,
			LastSignalTime:     last.Timestamp,
			LastDirection:      last.Direction,
			LastPrice:          last.Entry,
		})
		s.logger.Info(ctx, "Cooldown state restored from journal", map[string]interface{}{
			"symbol": symbol, "lastSignalTime": last.Timestamp, "direction": last.Direction,
		})
	case errors.Is(err, ports.ErrNotFound):
		s.logger.Info(ctx, "No journaled signals, starting with empty cooldown", map[string]interface{}{"symbol": symbol})
	default:
		return nil, fmt.Errorf("failed to read journal for %s: %w", symbol, err)
	}

	s.logger.Info(ctx, "Instrument seeded", map[string]interface{}{"symbol": symbol, "bars": len(bars)})
	return &instrumentState{
		symbol:   symbol,
		bars:     bars,
		barIndex: len(bars) - 1,
		cooldown: cooldown,
		events:   make(chan *domain.Bar, 16),
	}, nil
}

// runWorker consumes closed bars for one instrument.
func (s *SignalService) runWorker(ctx context.Context, st *instrumentState) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case bar := <-st.events:
			s.onBarClosed(ctx, st, bar)
		}
	}
}

// onBarClosed runs the full pipeline for one closed bar.
func (s *SignalService) onBarClosed(ctx context.Context, st *instrumentState, bar *domain.Bar) {
	// Update the rolling window
	st.bars = append(st.bars, bar)
	if len(st.bars) > s.cfg.BarCacheSize {
		st.bars = st.bars[len(st.bars)-s.cfg.BarCacheSize:]
	}
	st.barIndex++

	s.logger.Debug(ctx, "Bar closed", map[string]interface{}{
		"symbol": st.symbol, "barIndex": st.barIndex, "close": bar.Close, "closeTime": bar.CloseTime,
	})

	// --- Upstream gates: cheap checks before the pipeline runs ---
	if !s.deps.Calendar.WithinTradingHours(st.symbol, bar.CloseTime) {
		s.logger.Debug(ctx, "Outside trading session, skipping bar", map[string]interface{}{"symbol": st.symbol})
		return
	}
	if !s.deps.Risk.MayTrade(ctx, st.symbol) {
		s.logger.Debug(ctx, "Trading disabled by risk authorizer, skipping bar", map[string]interface{}{"symbol": st.symbol})
		return
	}
	active, err := s.deps.Position.ActivePositions(ctx, st.symbol)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to count active positions, skipping bar", map[string]interface{}{"symbol": st.symbol})
		return
	}
	if active >= s.maxPositions {
		s.logger.Debug(ctx, "Position cap reached, skipping bar", map[string]interface{}{
			"symbol": st.symbol, "active": active, "max": s.maxPositions,
		})
		return
	}

	microOK := s.deps.Micro.AcceptableQuality(ctx, st.symbol, st.bars)

	// --- Detection ---
	out := s.deps.Detector.Evaluate(ctx, ports.DetectionRequest{
		Symbol:           st.symbol,
		Bars:             st.bars,
		BarIndex:         st.barIndex,
		MicrostructureOK: microOK,
		Cooldown:         st.cooldown.State(),
	})
	if !out.Accepted() {
		return
	}
	sig := out.Signal

	// Wall-clock cooldown, scaled by recent volatility.
	atr, err := s.atr.Calculate(ctx, st.bars)
	if err != nil {
		atr = 0 // cooldown falls back to the percentage move check
	}
	if !st.cooldown.AllowsTime(sig.Timestamp, sig.Direction, sig.Entry, atr) {
		s.logger.Info(ctx, "Signal suppressed by wall-clock cooldown", map[string]interface{}{
			"symbol": st.symbol, "barIndex": sig.BarIndex, "direction": sig.Direction,
		})
		return
	}

	// Record before publishing so a handler failure cannot re-arm the bar.
	st.cooldown.Record(sig)

	if _, err := s.deps.Journal.Append(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Failed to journal signal", map[string]interface{}{"symbol": st.symbol})
		// The signal still goes to the handler: journaling is durability,
		// not authorization.
	}

	s.logger.Info(ctx, "Signal emitted", map[string]interface{}{
		"symbol": sig.Symbol, "direction": sig.Direction, "entry": sig.Entry,
		"stopLoss": sig.StopLoss, "takeProfit": sig.TakeProfit,
		"quality": sig.Quality, "confidence": sig.Confidence, "riskReward": sig.RiskReward,
	})
	if err := s.deps.Handler.HandleSignal(ctx, sig); err != nil {
		s.logger.Error(ctx, err, "Signal handler failed", map[string]interface{}{"symbol": st.symbol, "signalID": sig.ID})
	}
}
