package swing

import (
	"context"
	"fmt"
	"math"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
)

// Config holds parameters for swing-structure analysis.
type Config struct {
	MinBars         int     // minimum window length, e.g. 20
	Neighborhood    int     // lookback/lookahead bars around a candidate extremum, e.g. 3
	MinAmplitudePct float64 // minimum swing amplitude as a fraction of price, e.g. 0.001
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{MinBars: 20, Neighborhood: 3, MinAmplitudePct: 0.001}
}

// Analyzer detects alternating swing highs/lows in a bar window and scores
// the structure's quality.
type Analyzer struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Analyzer instance.
func New(cfg Config, logger ports.Logger) (*Analyzer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for swing analyzer")
	}
	if cfg.MinBars < 20 {
		return nil, fmt.Errorf("swing MinBars must be at least 20")
	}
	if cfg.Neighborhood <= 0 {
		return nil, fmt.Errorf("swing Neighborhood must be positive")
	}
	if cfg.MinAmplitudePct < 0 {
		return nil, fmt.Errorf("swing MinAmplitudePct cannot be negative")
	}
	return &Analyzer{cfg: cfg, logger: logger}, nil
}

type extremum struct {
	index  int
	price  float64
	isHigh bool
}

// Analyze returns the swing state for the window. Fewer bars than the
// minimum yields quality 0 and an empty count rather than failing.
func (a *Analyzer) Analyze(ctx context.Context, bars []*domain.Bar) domain.SwingState {
	state := domain.SwingState{Trend: domain.SwingDown}
	if len(bars) < a.cfg.MinBars {
		a.logger.Debug(ctx, "Not enough bars for swing analysis",
			map[string]interface{}{"available": len(bars), "required": a.cfg.MinBars})
		return state
	}

	pivots := a.detectExtrema(bars)
	pivots = a.filterAmplitude(bars, pivots)
	pivots = enforceAlternation(pivots)

	state.Count = len(pivots)
	for _, p := range pivots {
		if p.isHigh {
			state.LastHigh = p.price
		} else {
			state.LastLow = p.price
		}
	}

	// The latest swing being a confirmed low with price holding above it is
	// rising structure; anything else reads as falling.
	if len(pivots) > 0 {
		last := pivots[len(pivots)-1]
		if !last.isHigh && bars[len(bars)-1].Close > last.price {
			state.Trend = domain.SwingUp
		}
	}

	state.Quality = quality(pivots)
	return state
}

// detectExtrema finds fractal extrema: bar i is a swing high if its high is
// the maximum over [i-n, i+n], a swing low if its low is the minimum.
func (a *Analyzer) detectExtrema(bars []*domain.Bar) []extremum {
	n := a.cfg.Neighborhood
	out := make([]extremum, 0, len(bars)/5)
	for i := n; i < len(bars)-n; i++ {
		isHigh, isLow := true, true
		for j := i - n; j <= i+n; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			out = append(out, extremum{index: i, price: bars[i].High, isHigh: true})
		} else if isLow {
			out = append(out, extremum{index: i, price: bars[i].Low})
		}
	}
	return out
}

// filterAmplitude suppresses micro-noise: an extremum survives only when its
// distance from the previous kept extremum clears the minimum amplitude.
func (a *Analyzer) filterAmplitude(bars []*domain.Bar, pivots []extremum) []extremum {
	if len(pivots) == 0 {
		return pivots
	}
	ref := bars[len(bars)-1].Close
	minAmp := math.Abs(ref) * a.cfg.MinAmplitudePct

	kept := []extremum{pivots[0]}
	for _, p := range pivots[1:] {
		prev := kept[len(kept)-1]
		if math.Abs(p.price-prev.price) >= minAmp {
			kept = append(kept, p)
		}
	}
	return kept
}

// enforceAlternation collapses runs of same-type extrema, keeping the more
// extreme one of each run.
func enforceAlternation(pivots []extremum) []extremum {
	if len(pivots) < 2 {
		return pivots
	}
	out := []extremum{pivots[0]}
	for _, p := range pivots[1:] {
		prev := &out[len(out)-1]
		if p.isHigh != prev.isHigh {
			out = append(out, p)
			continue
		}
		if (p.isHigh && p.price > prev.price) || (!p.isHigh && p.price < prev.price) {
			*prev = p
		}
	}
	return out
}

// quality scores the structure in [0,100]: half amplitude consistency, half
// spacing regularity, both measured as 1 - cv over the swing legs. Fewer
// than three extrema is too little structure to score.
func quality(pivots []extremum) float64 {
	if len(pivots) < 3 {
		return 0
	}
	amplitudes := make([]float64, 0, len(pivots)-1)
	spacings := make([]float64, 0, len(pivots)-1)
	for i := 1; i < len(pivots); i++ {
		amplitudes = append(amplitudes, math.Abs(pivots[i].price-pivots[i-1].price))
		spacings = append(spacings, float64(pivots[i].index-pivots[i-1].index))
	}
	score := 100 * (0.5*consistency(amplitudes) + 0.5*consistency(spacings))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// consistency is 1 - coefficient-of-variation, clamped to [0,1].
func consistency(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean
	if cv >= 1 {
		return 0
	}
	return 1 - cv
}
