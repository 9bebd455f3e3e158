package regime

import (
	"context"
	"fmt"
	"math"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
	"trendSignalBot/internal/strategy/indicators"
)

// Config holds parameters for the regime classifier.
type Config struct {
	MinBars             int     // minimum window length, e.g. 20
	ADXPeriod           int     // e.g. 14
	ADXThreshold        float64 // trend threshold for the ADX vote, e.g. 25
	R2Threshold         float64 // fit threshold for the regression vote, e.g. 0.6
	PrimaryWindow       int     // recency-biased window, e.g. 100
	SecondaryWindow     int     // full-context window, e.g. 180
	ShortWindow         int     // reversal-detection short window, e.g. 30
	MediumWindow        int     // reversal-detection medium window, e.g. 60
	EMAPeriod           int     // tie-break EMA period, e.g. 34
	EMATolerancePct     float64 // tolerance as a fraction of the EMA, e.g. 0.0005
	SelectionConfidence float64 // minimum confidence to lock a timeframe, e.g. 70
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		MinBars:             20,
		ADXPeriod:           14,
		ADXThreshold:        25,
		R2Threshold:         0.6,
		PrimaryWindow:       100,
		SecondaryWindow:     180,
		ShortWindow:         30,
		MediumWindow:        60,
		EMAPeriod:           34,
		EMATolerancePct:     0.0005,
		SelectionConfidence: 70,
	}
}

// Classifier computes trend/range classification, confidence, EMA trend and
// trend-reversal flags from a bar window. Every invocation recomputes the
// state from scratch; the returned RegimeState is read-only.
type Classifier struct {
	cfg    Config
	logger ports.Logger
	adx    *indicators.ADX
	ema    *indicators.MovingAverage
}

// New creates a new Classifier instance.
func New(cfg Config, logger ports.Logger) (*Classifier, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for regime classifier")
	}
	if cfg.MinBars < 20 {
		return nil, fmt.Errorf("classifier MinBars must be at least 20")
	}
	if cfg.ADXPeriod <= 0 || cfg.EMAPeriod <= 0 {
		return nil, fmt.Errorf("classifier periods must be positive")
	}
	if cfg.ADXThreshold <= 0 || cfg.R2Threshold <= 0 || cfg.R2Threshold > 1 {
		return nil, fmt.Errorf("invalid classifier vote thresholds")
	}
	if cfg.PrimaryWindow < cfg.MinBars || cfg.SecondaryWindow < cfg.PrimaryWindow {
		return nil, fmt.Errorf("classifier windows must satisfy MinBars <= PrimaryWindow <= SecondaryWindow")
	}
	if cfg.ShortWindow <= 1 || cfg.MediumWindow <= cfg.ShortWindow {
		return nil, fmt.Errorf("classifier reversal windows must satisfy 1 < ShortWindow < MediumWindow")
	}
	if cfg.EMATolerancePct <= 0 {
		return nil, fmt.Errorf("classifier EMATolerancePct must be positive")
	}
	if cfg.SelectionConfidence <= 0 || cfg.SelectionConfidence > 100 {
		return nil, fmt.Errorf("classifier SelectionConfidence must be in (0,100]")
	}

	return &Classifier{
		cfg:    cfg,
		logger: logger,
		adx: indicators.NewADX(indicators.ADXConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ADXPeriod},
		}),
		ema: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.EMAPeriod},
			Type:            indicators.ExponentialMovingAverage,
		}),
	}, nil
}

// MinimumBars returns the minimum window length for a non-neutral reading.
func (c *Classifier) MinimumBars() int {
	return c.cfg.MinBars
}

// vote is one sub-classification over a single window.
type vote struct {
	regime     domain.Regime
	direction  domain.TrendDirection
	confidence float64
	adx        indicators.ADXValue
	fit        indicators.RegressionFit
}

// Classify returns the full regime state for the window. Fails softly: fewer
// bars than the minimum or any arithmetic degeneracy yields RANGE/UNCLEAR
// with low confidence rather than an error, so the caller always receives a
// fully populated state.
func (c *Classifier) Classify(ctx context.Context, bars []*domain.Bar) domain.RegimeState {
	state := domain.RegimeState{
		Regime:         domain.Range,
		TrendDirection: domain.DirectionSideways,
		EMA34Trend:     domain.EMAUnclear,
		UsedTimeframe:  domain.TimeframePrimary,
		TrendChange:    domain.NoReversal,
	}

	if len(bars) < c.cfg.MinBars {
		c.logger.Debug(ctx, "Not enough bars for regime classification",
			map[string]interface{}{"available": len(bars), "required": c.cfg.MinBars})
		return state
	}

	primary := c.classifyWindow(ctx, tail(bars, c.cfg.PrimaryWindow))
	secondary := c.classifyWindow(ctx, tail(bars, c.cfg.SecondaryWindow))

	// Timeframe selection: a confident primary wins, then a confident
	// secondary; otherwise fall back to the primary, tagged COMBINED.
	selected := primary
	switch {
	case primary.confidence >= c.cfg.SelectionConfidence:
		state.UsedTimeframe = domain.TimeframePrimary
	case secondary.confidence >= c.cfg.SelectionConfidence:
		selected = secondary
		state.UsedTimeframe = domain.TimeframeSecondary
	default:
		state.UsedTimeframe = domain.TimeframeCombined
	}

	state.Regime = selected.regime
	state.TrendDirection = selected.direction
	state.Confidence = selected.confidence
	state.ADX = selected.adx.ADX
	state.DIPlus = selected.adx.DIPlus
	state.DIMinus = selected.adx.DIMinus
	state.RegressionSlope = selected.fit.Slope
	state.RegressionR2 = selected.fit.R2

	state.TrendChange = c.detectTrendChange(bars)
	state.EMA34, state.EMA34Trend = c.emaTrend(ctx, bars)

	// The ADX/regression ensemble is tuned for long windows and under-reacts
	// to a clean, currently-unfolding trend the fast average already
	// confirms. A clear EMA34 reading therefore overrides a RANGE verdict.
	// The confidence stays at the RANGE value of 50: the override has no
	// stronger signal than the fast average itself.
	if state.Regime == domain.Range && state.EMA34Trend != domain.EMAUnclear {
		if state.EMA34Trend == domain.EMAUp {
			state.Regime = domain.TrendUp
			state.TrendDirection = domain.DirectionUp
		} else {
			state.Regime = domain.TrendDown
			state.TrendDirection = domain.DirectionDown
		}
	}

	c.logger.Debug(ctx, "Regime classified", map[string]interface{}{
		"regime":        state.Regime,
		"confidence":    state.Confidence,
		"adx":           state.ADX,
		"r2":            state.RegressionR2,
		"ema34Trend":    state.EMA34Trend,
		"usedTimeframe": state.UsedTimeframe,
		"trendChange":   state.TrendChange,
	})
	return state
}

// classifyWindow runs the two-member ensemble over one window.
func (c *Classifier) classifyWindow(ctx context.Context, bars []*domain.Bar) vote {
	adxVote, adxValue := c.adxVote(ctx, bars)
	regVote, fit := c.regressionVote(bars)
	v := combineVotes(adxVote, regVote)
	v.adx = adxValue
	v.fit = fit
	return v
}

// adxVote returns TREND in the DI-dominant direction when ADX clears the
// threshold, RANGE otherwise. Degenerate input votes RANGE.
func (c *Classifier) adxVote(ctx context.Context, bars []*domain.Bar) (domain.Regime, indicators.ADXValue) {
	value, err := c.adx.Calculate(ctx, bars)
	if err != nil {
		c.logger.Debug(ctx, "ADX vote degraded to RANGE", map[string]interface{}{"error": err.Error()})
		return domain.Range, indicators.ADXValue{}
	}
	if value.ADX < c.cfg.ADXThreshold {
		return domain.Range, value
	}
	if value.DIPlus > value.DIMinus {
		return domain.TrendUp, value
	}
	if value.DIMinus > value.DIPlus {
		return domain.TrendDown, value
	}
	return domain.Range, value
}

// regressionVote returns TREND when the fit is clean enough, RANGE otherwise.
func (c *Classifier) regressionVote(bars []*domain.Bar) (domain.Regime, indicators.RegressionFit) {
	fit, err := indicators.LinearRegression(bars)
	if err != nil {
		return domain.Range, indicators.RegressionFit{}
	}
	if fit.R2 >= c.cfg.R2Threshold {
		if fit.Slope > 0 {
			return domain.TrendUp, fit
		}
		if fit.Slope < 0 {
			return domain.TrendDown, fit
		}
	}
	return domain.Range, fit
}

// combineVotes applies the ensemble rule: agreement on a trend direction
// yields that trend at confidence 100; every other combination, an agreed
// RANGE included, yields RANGE at 50. RANGE confidence measures the absence
// of a trend, so it never pins timeframe selection and never carries into an
// overridden trend verdict.
func combineVotes(adxVote, regVote domain.Regime) vote {
	if adxVote == regVote {
		switch adxVote {
		case domain.TrendUp:
			return vote{regime: domain.TrendUp, direction: domain.DirectionUp, confidence: 100}
		case domain.TrendDown:
			return vote{regime: domain.TrendDown, direction: domain.DirectionDown, confidence: 100}
		}
	}
	return vote{regime: domain.Range, direction: domain.DirectionSideways, confidence: 50}
}

// detectTrendChange compares regression votes over the short and medium
// windows. Opposing clean fits flag a reversal; anything else is NONE.
func (c *Classifier) detectTrendChange(bars []*domain.Bar) domain.TrendChange {
	shortVote, _ := c.regressionVote(tail(bars, c.cfg.ShortWindow))
	mediumVote, _ := c.regressionVote(tail(bars, c.cfg.MediumWindow))

	if shortVote == domain.TrendUp && mediumVote == domain.TrendDown {
		return domain.ReversalUp
	}
	if shortVote == domain.TrendDown && mediumVote == domain.TrendUp {
		return domain.ReversalDown
	}
	return domain.NoReversal
}

// emaTrend computes the EMA34 tie-break ladder. Insufficient bars for the
// EMA yields UNCLEAR with a zero EMA value.
func (c *Classifier) emaTrend(ctx context.Context, bars []*domain.Bar) (float64, domain.EMATrend) {
	if len(bars) < c.cfg.EMAPeriod {
		return 0, domain.EMAUnclear
	}
	ema, err := c.ema.Calculate(ctx, bars)
	if err != nil {
		return 0, domain.EMAUnclear
	}

	last := bars[len(bars)-1].Close
	diff := last - ema
	tolerance := math.Abs(ema) * c.cfg.EMATolerancePct
	if tolerance == 0 {
		return ema, domain.EMAUnclear
	}

	momentum := 0.0
	if len(bars) >= 4 {
		momentum = last - bars[len(bars)-4].Close
	}

	return ema, emaLadder(diff, tolerance, momentum)
}

// emaLadder is the decision ladder for the fast-average trend, evaluated in
// this exact order:
//   - price on top of the average (below 10% of tolerance): UNCLEAR, momentum
//     noise is not to be trusted there;
//   - meaningful displacement (at or above 50% of tolerance): the
//     displacement wins;
//   - the narrow band in between: a 3-bar momentum sample breaks the tie if
//     it clears the noise floor, else the displacement sign decides.
//
// The noise floor reuses the 10%-of-tolerance band edge: momentum smaller
// than the flat-price band is noise.
func emaLadder(diff, tolerance, momentum float64) domain.EMATrend {
	absDiff := math.Abs(diff)
	switch {
	case absDiff < tolerance*0.1:
		return domain.EMAUnclear
	case absDiff >= tolerance*0.5:
		return signTrend(diff)
	default:
		if math.Abs(momentum) > tolerance*0.1 {
			return signTrend(momentum)
		}
		return signTrend(diff)
	}
}

func signTrend(v float64) domain.EMATrend {
	if v > 0 {
		return domain.EMAUp
	}
	return domain.EMADown
}

// tail returns the last n bars (the whole slice when shorter).
func tail(bars []*domain.Bar, n int) []*domain.Bar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
