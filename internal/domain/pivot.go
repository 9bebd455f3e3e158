package domain

// PivotLevels holds the classic floor-trader pivot levels derived from the
// previous session's high/low/close. Owned by the caller for the session's
// duration and replaced at session rollover.
type PivotLevels struct {
	Pivot float64
	R1    float64
	R2    float64
	S1    float64
	S2    float64
}
