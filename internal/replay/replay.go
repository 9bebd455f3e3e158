package replay

import (
	"context"
	"fmt"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/analytics"
	"trendSignalBot/internal/strategy/filter"
	"trendSignalBot/internal/strategy/indicators"
)

// Config holds parameters for a replay run.
type Config struct {
	Symbol    string
	Cooldown  filter.CooldownConfig
	ATRPeriod int // volatility reference for the wall-clock cooldown, e.g. 14
	WindowCap int // maximum window length fed to the detector, e.g. 500
}

// Result is the outcome of replaying one bar history.
type Result struct {
	Signals []*domain.Signal
	Stats   analytics.OutcomeStats
	Report  string
}

// Engine feeds a recorded bar history through the detector bar by bar,
// applying the same cooldown discipline the live service applies. No order
// simulation: it measures what the detector decides, not what it would have
// earned.
type Engine struct {
	detector ports.SignalDetector
	logger   ports.Logger
	cfg      Config
	atr      *indicators.ATR
}

// New creates a replay engine.
func New(cfg Config, detector ports.SignalDetector, logger ports.Logger) (*Engine, error) {
	if detector == nil || logger == nil {
		return nil, fmt.Errorf("detector and logger are required for replay engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("replay symbol must be set")
	}
	if cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("replay ATRPeriod must be positive")
	}
	if cfg.WindowCap < detector.MinimumBars() {
		return nil, fmt.Errorf("replay WindowCap (%d) below detector minimum (%d)", cfg.WindowCap, detector.MinimumBars())
	}
	return &Engine{
		detector: detector,
		logger:   logger,
		cfg:      cfg,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
	}, nil
}

// Run replays the bars in order. Each bar is one independent evaluation:
// rejected bars are never revisited.
func (e *Engine) Run(ctx context.Context, bars []*domain.Bar) (*Result, error) {
	if len(bars) < e.detector.MinimumBars() {
		return nil, fmt.Errorf("not enough bars (%d) for replay, need %d", len(bars), e.detector.MinimumBars())
	}

	cooldown, err := filter.NewCooldownTracker(e.cfg.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("replay cooldown: %w", err)
	}
	collector := analytics.NewCollector()

	for i := e.detector.MinimumBars() - 1; i < len(bars); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		window := bars[:i+1]
		if len(window) > e.cfg.WindowCap {
			window = window[len(window)-e.cfg.WindowCap:]
		}

		out := e.detector.Evaluate(ctx, ports.DetectionRequest{
			Symbol:           e.cfg.Symbol,
			Bars:             window,
			BarIndex:         i,
			MicrostructureOK: true, // offline history carries no live book
			Cooldown:         cooldown.State(),
		})

		if out.Accepted() {
			sig := out.Signal
			atr, _ := e.atr.Calculate(ctx, window)
			if !cooldown.AllowsTime(sig.Timestamp, sig.Direction, sig.Entry, atr) {
				e.logger.Debug(ctx, "Replay signal suppressed by wall-clock cooldown", map[string]interface{}{
					"symbol": sig.Symbol, "barIndex": sig.BarIndex, "direction": sig.Direction,
				})
				continue
			}
			cooldown.Record(sig)
		}
		collector.Observe(out)
	}

	return &Result{
		Signals: collector.Signals(),
		Stats:   collector.Stats(),
		Report:  collector.Report(),
	}, nil
}
