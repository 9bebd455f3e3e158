package ports

import (
	"context"

	"trendSignalBot/internal/domain"
)

// DetectionRequest carries everything one bar-close evaluation needs. The
// microstructure verdict and cooldown snapshot are supplied by the caller;
// the detector performs no I/O.
type DetectionRequest struct {
	Symbol           string
	Bars             []*domain.Bar // ordered window ending at the current bar
	BarIndex         int           // monotonically increasing per instrument
	MicrostructureOK bool
	Cooldown         domain.CooldownState
}

// SignalDetector runs the full classification-and-filter pipeline for one
// closed bar and returns exactly one terminal outcome.
type SignalDetector interface {
	// MinimumBars returns the minimum window length needed for evaluation.
	MinimumBars() int

	// Evaluate runs the pipeline to completion. It never blocks on I/O and
	// always returns either a signal or a typed rejection.
	Evaluate(ctx context.Context, req DetectionRequest) domain.Outcome
}
