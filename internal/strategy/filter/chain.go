package filter

import (
	"context"
	"fmt"
	"math"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/indicators"
)

// Config holds the filter-chain thresholds.
type Config struct {
	MinBars               int     // gate 1, e.g. 20
	MinBarsBetweenSignals int     // gate 2, e.g. 12
	MinSwingQuality       float64 // gate 4, e.g. 60
	ADXBypass             float64 // ADX above which gate 4 is skipped, e.g. 25
	PullbackTolerancePct  float64 // pullback zone width as a fraction of price, e.g. 0.003
	ATRPeriod             int     // stop placement volatility reference, e.g. 14
	MinSignalQuality      float64 // gate 6, e.g. 75
	MinConfidence         float64 // gate 6, e.g. 80
	MinRiskReward         float64 // gate 7, e.g. 2.0
}

// DefaultConfig returns the chain defaults.
func DefaultConfig() Config {
	return Config{
		MinBars:               20,
		MinBarsBetweenSignals: 12,
		MinSwingQuality:       60,
		ADXBypass:             25,
		PullbackTolerancePct:  0.003,
		ATRPeriod:             14,
		MinSignalQuality:      75,
		MinConfidence:         80,
		MinRiskReward:         2.0,
	}
}

// Input bundles the analytics snapshots one evaluation consumes. Regime,
// Pivots and Swing come from upstream computations; a nil one means the
// upstream failed and the chain must not guess defaults for it.
type Input struct {
	Symbol           string
	Bars             []*domain.Bar
	BarIndex         int
	Regime           *domain.RegimeState
	Pivots           *domain.PivotLevels
	Swing            *domain.SwingState
	MicrostructureOK bool
	Cooldown         domain.CooldownState
}

// Chain is the ordered accept/reject gate sequence that turns analytics into
// at most one signal per invocation. The first failing gate terminates
// evaluation and supplies the rejection reason; gates after it never run.
// The chain never mutates cooldown state; that is the caller's job, done
// atomically with signal emission.
type Chain struct {
	cfg    Config
	logger ports.Logger
	atr    *indicators.ATR
}

// NewChain creates a new filter chain.
func NewChain(cfg Config, logger ports.Logger) (*Chain, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for filter chain")
	}
	if cfg.MinBars < 20 {
		return nil, fmt.Errorf("chain MinBars must be at least 20")
	}
	if cfg.MinBarsBetweenSignals < 0 {
		return nil, fmt.Errorf("chain MinBarsBetweenSignals cannot be negative")
	}
	if cfg.MinSwingQuality < 0 || cfg.MinSwingQuality > 100 {
		return nil, fmt.Errorf("chain MinSwingQuality must be in [0,100]")
	}
	if cfg.MinSignalQuality < 0 || cfg.MinSignalQuality > 100 ||
		cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		return nil, fmt.Errorf("chain quality/confidence thresholds must be in [0,100]")
	}
	if cfg.PullbackTolerancePct <= 0 {
		return nil, fmt.Errorf("chain PullbackTolerancePct must be positive")
	}
	if cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("chain ATRPeriod must be positive")
	}
	if cfg.MinRiskReward <= 0 {
		return nil, fmt.Errorf("chain MinRiskReward must be positive")
	}
	return &Chain{
		cfg:    cfg,
		logger: logger,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
	}, nil
}

// candidate is a structural entry awaiting quality and risk/reward scoring.
type candidate struct {
	direction      domain.Side
	entry          float64
	stop           float64
	target         float64
	patternScore   float64 // pattern-specific score
	structureScore float64 // distance-to-structure score
	source         string  // "pullback" or "breakout"
}

func reject(reason domain.RejectReason, detail string, fields map[string]interface{}) domain.Outcome {
	return domain.Outcome{Rejection: &domain.Rejection{Reason: reason, Detail: detail, Fields: fields}}
}

// Evaluate runs the gate sequence and returns exactly one outcome.
func (c *Chain) Evaluate(ctx context.Context, in Input) domain.Outcome {
	// Missing upstream analytics are fatal for this bar: rejecting with a
	// distinct reason beats fabricating a trade rationale from defaults.
	if in.Regime == nil || in.Pivots == nil || in.Swing == nil {
		return reject(domain.RejectMissingAnalytics, "one or more upstream analytics absent", map[string]interface{}{
			"haveRegime": in.Regime != nil,
			"havePivots": in.Pivots != nil,
			"haveSwing":  in.Swing != nil,
		})
	}

	// Gate 1: minimum bars.
	if len(in.Bars) < c.cfg.MinBars {
		return reject(domain.RejectMinBars, "window too short", map[string]interface{}{
			"available": len(in.Bars), "required": c.cfg.MinBars,
		})
	}

	// Gate 2: bar-count cooldown.
	if in.Cooldown.LastSignalBarIndex >= 0 && in.BarIndex-in.Cooldown.LastSignalBarIndex < c.cfg.MinBarsBetweenSignals {
		return reject(domain.RejectBarCooldown, "too few bars since last signal", map[string]interface{}{
			"barIndex":      in.BarIndex,
			"lastSignalBar": in.Cooldown.LastSignalBarIndex,
			"minBars":       c.cfg.MinBarsBetweenSignals,
		})
	}

	// Gate 3: strict regime. The dominant rejection path; must stay cheap.
	if rej := c.strictRegimeGate(in.Regime); rej != nil {
		return domain.Outcome{Rejection: rej}
	}

	// Gate 4: swing quality, bypassed when the trend is strong enough to
	// legitimize a lower-quality swing reading.
	if in.Swing.Quality < c.cfg.MinSwingQuality && in.Regime.ADX <= c.cfg.ADXBypass {
		return reject(domain.RejectSwingQuality, "swing structure too weak", map[string]interface{}{
			"quality": in.Swing.Quality, "required": c.cfg.MinSwingQuality, "adx": in.Regime.ADX,
		})
	}

	// Microstructure verdict: pre-resolved boolean, checked before the
	// expensive structural stage.
	if !in.MicrostructureOK {
		return reject(domain.RejectMicrostructure, "microstructure quality unacceptable", nil)
	}

	// Gate 5: structural entry. Pullbacks are the primary opportunity during
	// trends; pattern detection is the fallback, not a parallel path.
	cand, rej := c.structuralEntry(ctx, in)
	if rej != nil {
		return domain.Outcome{Rejection: rej}
	}

	// Gate 6: composite quality and confidence.
	quality := 0.35*in.Swing.Quality + 0.35*in.Regime.Confidence +
		0.15*cand.structureScore + 0.15*cand.patternScore
	confidence := 0.6*in.Regime.Confidence + 0.4*clamp100(in.Regime.ADX*2.5)
	if quality < c.cfg.MinSignalQuality || confidence < c.cfg.MinConfidence {
		return reject(domain.RejectSignalQuality, "candidate below quality thresholds", map[string]interface{}{
			"quality": quality, "minQuality": c.cfg.MinSignalQuality,
			"confidence": confidence, "minConfidence": c.cfg.MinConfidence,
			"source": cand.source,
		})
	}

	// Gate 7: risk/reward.
	risk := math.Abs(cand.entry - cand.stop)
	if risk == 0 {
		return reject(domain.RejectRiskReward, "degenerate risk distance", nil)
	}
	rrr := math.Abs(cand.target-cand.entry) / risk
	if rrr < c.cfg.MinRiskReward {
		return reject(domain.RejectRiskReward, "risk/reward below minimum", map[string]interface{}{
			"rrr": rrr, "minRRR": c.cfg.MinRiskReward,
		})
	}

	last := in.Bars[len(in.Bars)-1]
	sig := &domain.Signal{
		Symbol:     in.Symbol,
		Direction:  cand.direction,
		Entry:      cand.entry,
		StopLoss:   cand.stop,
		TakeProfit: cand.target,
		Quality:    quality,
		Confidence: confidence,
		RiskReward: rrr,
		BarIndex:   in.BarIndex,
		Timestamp:  last.CloseTime,
	}
	c.logger.Info(ctx, "Signal accepted", map[string]interface{}{
		"symbol": sig.Symbol, "direction": sig.Direction, "entry": sig.Entry,
		"stopLoss": sig.StopLoss, "takeProfit": sig.TakeProfit,
		"quality": sig.Quality, "confidence": sig.Confidence, "rrr": sig.RiskReward,
		"source": cand.source, "barIndex": sig.BarIndex,
	})
	return domain.Outcome{Signal: sig}
}

// strictRegimeGate requires a trending regime, a clear EMA34 reading and
// agreement between the two. Both values go into the rejection payload.
func (c *Chain) strictRegimeGate(r *domain.RegimeState) *domain.Rejection {
	fields := map[string]interface{}{"regime": r.Regime, "ema34Trend": r.EMA34Trend}
	if !r.IsTrending() {
		return &domain.Rejection{Reason: domain.RejectStrictRegime, Detail: "regime not trending", Fields: fields}
	}
	if r.EMA34Trend == domain.EMAUnclear {
		return &domain.Rejection{Reason: domain.RejectStrictRegime, Detail: "ema34 trend unclear", Fields: fields}
	}
	if (r.Regime == domain.TrendUp && r.EMA34Trend != domain.EMAUp) ||
		(r.Regime == domain.TrendDown && r.EMA34Trend != domain.EMADown) {
		return &domain.Rejection{Reason: domain.RejectStrictRegime, Detail: "direction mismatch", Fields: fields}
	}
	return nil
}

// structuralEntry runs the priority-ordered sub-decision: pullback first,
// breakout pattern only when no pullback was found.
func (c *Chain) structuralEntry(ctx context.Context, in Input) (*candidate, *domain.Rejection) {
	atr, err := c.atr.Calculate(ctx, in.Bars)
	if err != nil || atr <= 0 {
		return nil, &domain.Rejection{
			Reason: domain.RejectNoOpportunity,
			Detail: "degenerate volatility reference",
		}
	}

	direction := domain.Buy
	if in.Regime.Regime == domain.TrendDown {
		direction = domain.Sell
	}
	close := in.Bars[len(in.Bars)-1].Close

	if cand := c.pullback(direction, close, atr, in); cand != nil {
		return cand, nil
	}
	if cand := c.breakout(direction, close, atr, in); cand != nil {
		return cand, nil
	}
	return nil, &domain.Rejection{
		Reason: domain.RejectNoOpportunity,
		Detail: "no pullback zone or qualifying pattern",
		Fields: map[string]interface{}{"direction": direction, "close": close},
	}
}

// pullback checks whether price has retraced into a tolerance band around
// EMA34 or the most recent swing extreme, consistent with the trend
// direction. The matched reference anchors the stop; the swing leg (pivot
// span as fallback) projects the target.
func (c *Chain) pullback(direction domain.Side, close, atr float64, in Input) *candidate {
	tol := c.cfg.PullbackTolerancePct * close

	var ref, dist float64
	matched := false
	for _, level := range []float64{in.Regime.EMA34, c.swingReference(direction, in.Swing)} {
		if level <= 0 {
			continue
		}
		var d float64
		if direction == domain.Buy {
			d = close - level // retraced down to just above support
		} else {
			d = level - close // retraced up to just below resistance
		}
		if d >= 0 && d <= tol && (!matched || d < dist) {
			ref, dist = level, d
			matched = true
		}
	}
	if !matched {
		return nil
	}

	move := c.measuredMove(in)
	cand := &candidate{
		direction:      direction,
		entry:          close,
		patternScore:   85,
		structureScore: clamp100(100 * (1 - dist/tol)),
		source:         "pullback",
	}
	if direction == domain.Buy {
		cand.stop = ref - 0.5*atr
		cand.target = close + move
	} else {
		cand.stop = ref + 0.5*atr
		cand.target = close - move
	}
	return cand
}

// breakout detects a fresh close through the most recent swing extreme in
// the trend direction.
func (c *Chain) breakout(direction domain.Side, close, atr float64, in Input) *candidate {
	if len(in.Bars) < 2 {
		return nil
	}
	prevClose := in.Bars[len(in.Bars)-2].Close
	move := c.measuredMove(in)

	cand := &candidate{
		direction:    direction,
		entry:        close,
		patternScore: 70,
		source:       "breakout",
	}
	if direction == domain.Buy {
		level := in.Swing.LastHigh
		if level <= 0 || close <= level || prevClose > level {
			return nil
		}
		cand.stop = level - 0.5*atr
		cand.target = close + move
		cand.structureScore = clamp100(100 * (1 - (close-level)/(c.cfg.PullbackTolerancePct*close*2)))
	} else {
		level := in.Swing.LastLow
		if level <= 0 || close >= level || prevClose < level {
			return nil
		}
		cand.stop = level + 0.5*atr
		cand.target = close - move
		cand.structureScore = clamp100(100 * (1 - (level-close)/(c.cfg.PullbackTolerancePct*close*2)))
	}
	return cand
}

// swingReference is the structural level a retracement can lean on: the last
// swing low when buying, the last swing high when selling. Zero when the
// window produced no such extreme.
func (c *Chain) swingReference(direction domain.Side, swing *domain.SwingState) float64 {
	if direction == domain.Buy {
		return swing.LastLow
	}
	return swing.LastHigh
}

// measuredMove is the most recent swing leg, with the pivot span as the
// fallback when the window holds no usable pair of extremes.
func (c *Chain) measuredMove(in Input) float64 {
	if in.Swing.LastHigh > in.Swing.LastLow && in.Swing.LastLow > 0 {
		return in.Swing.LastHigh - in.Swing.LastLow
	}
	return in.Pivots.R1 - in.Pivots.Pivot
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
