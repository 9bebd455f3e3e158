package domain

// Regime classifies the market state of an instrument.
type Regime string

const (
	TrendUp   Regime = "TREND_UP"
	TrendDown Regime = "TREND_DOWN"
	Range     Regime = "RANGE"
)

// TrendDirection is the directional component of a regime reading.
type TrendDirection string

const (
	DirectionUp       TrendDirection = "UP"
	DirectionDown     TrendDirection = "DOWN"
	DirectionSideways TrendDirection = "SIDEWAYS"
)

// EMATrend is the fast-average tie-break reading. UNCLEAR is an explicit
// three-state outcome so consumers cannot treat "no reading" as a direction.
type EMATrend string

const (
	EMAUp      EMATrend = "UP"
	EMADown    EMATrend = "DOWN"
	EMAUnclear EMATrend = "UNCLEAR"
)

// Timeframe identifies which classification window a regime reading came from.
type Timeframe string

const (
	TimeframePrimary   Timeframe = "PRIMARY"
	TimeframeSecondary Timeframe = "SECONDARY"
	TimeframeCombined  Timeframe = "COMBINED"
)

// TrendChange flags a short-vs-medium window regression disagreement.
// Advisory metadata only; it never changes the regime by itself.
type TrendChange string

const (
	ReversalUp   TrendChange = "REVERSAL_UP"
	ReversalDown TrendChange = "REVERSAL_DOWN"
	NoReversal   TrendChange = "NONE"
)

// RegimeState is the full output of one classification pass over a bar
// window. It is recomputed from scratch on every invocation and is read-only
// once returned.
type RegimeState struct {
	Regime          Regime
	Confidence      float64 // 0..100
	TrendDirection  TrendDirection
	ADX             float64
	DIPlus          float64
	DIMinus         float64
	RegressionSlope float64
	RegressionR2    float64
	EMA34           float64 // value of the 34-period EMA over the window (0 if unavailable)
	EMA34Trend      EMATrend
	UsedTimeframe   Timeframe
	TrendChange     TrendChange
}

// IsTrending reports whether the regime is one of the two trend states.
func (s *RegimeState) IsTrending() bool {
	return s.Regime == TrendUp || s.Regime == TrendDown
}
