package domain

import "time"

// Signal is an accepted trade candidate produced by the filter chain.
// Ownership passes to the execution collaborator; never mutated after
// creation.
type Signal struct {
	ID         int64 // assigned by the journal on persistence (0 before)
	Symbol     string
	Direction  Side
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Quality    float64 // 0..100
	Confidence float64 // 0..100
	RiskReward float64
	BarIndex   int
	Timestamp  time.Time
}

// RejectReason is the machine-readable cause reported by the first failing
// gate of the filter chain.
type RejectReason string

const (
	RejectMissingAnalytics RejectReason = "missing-analytics"
	RejectMinBars          RejectReason = "min-bars"
	RejectBarCooldown      RejectReason = "bar-cooldown"
	RejectStrictRegime     RejectReason = "strict-regime"
	RejectSwingQuality     RejectReason = "swing-quality"
	RejectMicrostructure   RejectReason = "microstructure"
	RejectNoOpportunity    RejectReason = "no-structural-opportunity"
	RejectSignalQuality    RejectReason = "signal-quality"
	RejectRiskReward       RejectReason = "risk-reward"
)

// Rejection describes why no signal was produced for a bar.
type Rejection struct {
	Reason RejectReason
	Detail string
	Fields map[string]interface{} // gate-specific values (regime, thresholds, ...)
}

// Outcome is the single terminal result of one filter-chain invocation:
// exactly one of Signal or Rejection is set.
type Outcome struct {
	Signal    *Signal
	Rejection *Rejection
}

// Accepted reports whether the outcome carries a signal.
func (o Outcome) Accepted() bool {
	return o.Signal != nil
}
