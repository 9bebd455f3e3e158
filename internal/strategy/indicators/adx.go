package indicators

import (
	"context"
	"fmt"
	"math"

	"trendSignalBot/internal/domain"
)

// ADXConfig holds configuration for the Average Directional Index indicator
type ADXConfig struct {
	IndicatorConfig
}

// ADXValue bundles the three directional-movement readings of one pass.
type ADXValue struct {
	ADX     float64
	DIPlus  float64
	DIMinus float64
}

// ADX implements the Average Directional Index with its DI+/DI- components,
// using Wilder's smoothing method throughout.
type ADX struct {
	config ADXConfig
}

// NewADX creates a new ADX indicator instance
func NewADX(config ADXConfig) *ADX {
	return &ADX{config: config}
}

// RequiredDataPoints returns the minimum number of bars needed for calculation.
// One period seeds the smoothed DM/TR averages and a second seeds the ADX itself.
func (a *ADX) RequiredDataPoints() int {
	return 2*a.config.Period + 1
}

// Calculate computes ADX, DI+ and DI- for the given bars.
func (a *ADX) Calculate(ctx context.Context, bars []*domain.Bar) (ADXValue, error) {
	period := a.config.Period
	if len(bars) < a.RequiredDataPoints() {
		return ADXValue{}, fmt.Errorf("not enough data points for ADX calculation: need %d, got %d", a.RequiredDataPoints(), len(bars))
	}

	n := len(bars) - 1 // number of bar-to-bar transitions
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trueRange := make([]float64, n)

	for i := 1; i < len(bars); i++ {
		upMove := bars[i].High - bars[i-1].High
		downMove := bars[i-1].Low - bars[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}

		tr1 := bars[i].High - bars[i].Low
		tr2 := math.Abs(bars[i].High - bars[i-1].Close)
		tr3 := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRange[i-1] = math.Max(tr1, math.Max(tr2, tr3))
	}

	// Seed the smoothed sums with plain sums over the first period.
	var smPlusDM, smMinusDM, smTR float64
	for i := 0; i < period; i++ {
		smPlusDM += plusDM[i]
		smMinusDM += minusDM[i]
		smTR += trueRange[i]
	}

	diPlus, diMinus, dx := directionalIndexes(smPlusDM, smMinusDM, smTR)

	// Wilder smoothing for the remaining transitions, accumulating DX values
	// so the ADX seed is the simple average of the first 'period' DX readings.
	dxValues := []float64{dx}
	for i := period; i < n; i++ {
		smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM[i]
		smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM[i]
		smTR = smTR - smTR/float64(period) + trueRange[i]

		diPlus, diMinus, dx = directionalIndexes(smPlusDM, smMinusDM, smTR)
		dxValues = append(dxValues, dx)
	}

	adx := 0.0
	for i := 0; i < period && i < len(dxValues); i++ {
		adx += dxValues[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}

	return ADXValue{ADX: adx, DIPlus: diPlus, DIMinus: diMinus}, nil
}

// directionalIndexes derives DI+/DI-/DX from smoothed sums, guarding the
// zero-range and zero-movement degeneracies with neutral zeros.
func directionalIndexes(smPlusDM, smMinusDM, smTR float64) (diPlus, diMinus, dx float64) {
	if smTR == 0 {
		return 0, 0, 0
	}
	diPlus = 100 * smPlusDM / smTR
	diMinus = 100 * smMinusDM / smTR
	if diPlus+diMinus == 0 {
		return diPlus, diMinus, 0
	}
	dx = 100 * math.Abs(diPlus-diMinus) / (diPlus + diMinus)
	return diPlus, diMinus, dx
}
