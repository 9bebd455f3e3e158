package domain

// SwingTrend is the direction of the most recent confirmed swing.
type SwingTrend string

const (
	SwingUp   SwingTrend = "UP"
	SwingDown SwingTrend = "DOWN"
)

// SwingState is the output of one swing-structure pass over a bar window.
// Recomputed from the window on every invocation; a window with fewer bars
// than the analyzer minimum yields Quality 0 and Count 0 rather than failing.
type SwingState struct {
	Trend   SwingTrend
	Quality float64 // 0..100, amplitude consistency + spacing regularity
	Count   int     // number of confirmed swing extrema in the window
	// Most recent confirmed extremes, used as structural references for
	// pullback and breakout entries. Zero when no extreme of that kind exists.
	LastHigh float64
	LastLow  float64
}
