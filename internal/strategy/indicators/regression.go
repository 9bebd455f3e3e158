package indicators

import (
	"fmt"

	"trendSignalBot/internal/domain"
)

// RegressionFit is the result of a least-squares fit of close price against
// bar index.
type RegressionFit struct {
	Slope float64
	R2    float64
}

// LinearRegression fits close price against bar index over the full window.
// A zero-variance window (flat prices) is a degenerate fit and returns an
// error so callers can fall back to a neutral reading.
func LinearRegression(bars []*domain.Bar) (RegressionFit, error) {
	n := len(bars)
	if n < 2 {
		return RegressionFit{}, fmt.Errorf("not enough data (%d) for linear regression", n)
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, b := range bars {
		x := float64(i)
		sumX += x
		sumY += b.Close
		sumXY += x * b.Close
		sumXX += x * x
	}

	fn := float64(n)
	meanX := sumX / fn
	meanY := sumY / fn

	ssXX := sumXX - fn*meanX*meanX
	if ssXX == 0 {
		return RegressionFit{}, fmt.Errorf("degenerate regression: zero index variance")
	}
	slope := (sumXY - fn*meanX*meanY) / ssXX
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for i, b := range bars {
		predicted := intercept + slope*float64(i)
		ssRes += (b.Close - predicted) * (b.Close - predicted)
		ssTot += (b.Close - meanY) * (b.Close - meanY)
	}
	if ssTot == 0 {
		return RegressionFit{}, fmt.Errorf("degenerate regression: zero price variance")
	}

	return RegressionFit{Slope: slope, R2: 1 - ssRes/ssTot}, nil
}
