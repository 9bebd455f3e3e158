package strategy

import (
	"context"
	"fmt"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/filter"
	"trendSignalBot/internal/strategy/pivots"
	"trendSignalBot/internal/strategy/regime"
	"trendSignalBot/internal/strategy/swing"
)

// Config bundles the sub-component configurations of the detector.
type Config struct {
	Regime regime.Config
	Swing  swing.Config
	Filter filter.Config
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Regime: regime.DefaultConfig(),
		Swing:  swing.DefaultConfig(),
		Filter: filter.DefaultConfig(),
	}
}

// Detector runs the full pipeline for one closed bar: regime classification,
// pivot levels and swing structure feed the filter chain, which yields
// exactly one Signal or Rejection. The classifier and analyzer fail softly;
// a pivot failure (no prior session) reaches the chain as a nil snapshot and
// surfaces as a missing-analytics rejection.
type Detector struct {
	cfg        Config
	logger     ports.Logger
	classifier *regime.Classifier
	swings     *swing.Analyzer
	chain      *filter.Chain
}

// NewDetector creates a detector, validating every sub-configuration at
// construction so threshold errors never surface mid-stream.
func NewDetector(cfg Config, logger ports.Logger) (*Detector, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for signal detector")
	}
	classifier, err := regime.New(cfg.Regime, logger)
	if err != nil {
		return nil, fmt.Errorf("regime classifier: %w", err)
	}
	swings, err := swing.New(cfg.Swing, logger)
	if err != nil {
		return nil, fmt.Errorf("swing analyzer: %w", err)
	}
	chain, err := filter.NewChain(cfg.Filter, logger)
	if err != nil {
		return nil, fmt.Errorf("filter chain: %w", err)
	}
	return &Detector{cfg: cfg, logger: logger, classifier: classifier, swings: swings, chain: chain}, nil
}

// MinimumBars returns the minimum window length for evaluation.
func (d *Detector) MinimumBars() int {
	return d.cfg.Filter.MinBars
}

// Evaluate implements ports.SignalDetector. Pure, bounded-time arithmetic:
// it performs no I/O and always terminates with one outcome.
func (d *Detector) Evaluate(ctx context.Context, req ports.DetectionRequest) domain.Outcome {
	regimeState := d.classifier.Classify(ctx, req.Bars)
	swingState := d.swings.Analyze(ctx, req.Bars)

	var levels *domain.PivotLevels
	if len(req.Bars) > 0 {
		if l, err := pivots.FromPreviousSession(req.Bars, req.Bars[len(req.Bars)-1].CloseTime); err == nil {
			levels = &l
		} else {
			d.logger.Debug(ctx, "Pivot levels unavailable", map[string]interface{}{
				"symbol": req.Symbol, "error": err.Error(),
			})
		}
	}

	out := d.chain.Evaluate(ctx, filter.Input{
		Symbol:           req.Symbol,
		Bars:             req.Bars,
		BarIndex:         req.BarIndex,
		Regime:           &regimeState,
		Pivots:           levels,
		Swing:            &swingState,
		MicrostructureOK: req.MicrostructureOK,
		Cooldown:         req.Cooldown,
	})
	if out.Rejection != nil {
		d.logger.Debug(ctx, "Signal rejected", map[string]interface{}{
			"symbol": req.Symbol, "barIndex": req.BarIndex,
			"reason": out.Rejection.Reason, "detail": out.Rejection.Detail,
		})
	}
	return out
}
