package pivots

import (
	"fmt"
	"time"

	"trendSignalBot/internal/domain"
)

// Compute derives the classic floor-trader pivot levels from the previous
// session's high, low and close:
//
//	P  = (H+L+C)/3
//	R1 = 2P-L    S1 = 2P-H
//	R2 = P+(H-L) S2 = P-(H-L)
//
// Stateless given the three inputs; the only failure mode is a missing or
// inconsistent prior session.
func Compute(high, low, close float64) (domain.PivotLevels, error) {
	if high <= 0 || low <= 0 || close <= 0 {
		return domain.PivotLevels{}, fmt.Errorf("pivot inputs must be positive (H=%f L=%f C=%f)", high, low, close)
	}
	if low > high {
		return domain.PivotLevels{}, fmt.Errorf("pivot inputs inconsistent: low %f above high %f", low, high)
	}

	p := (high + low + close) / 3
	return domain.PivotLevels{
		Pivot: p,
		R1:    2*p - low,
		S1:    2*p - high,
		R2:    p + (high - low),
		S2:    p - (high - low),
	}, nil
}

// FromPreviousSession aggregates the previous UTC calendar day's bars into
// the session H/L/C and computes the levels for the session containing now.
// Recomputed once per session rollover by the caller. Membership is keyed on
// CloseTime: a bar closing exactly at midnight is the final bar of the day it
// closes, not the first of the next (exchange klines close just before the
// boundary, but replayed histories may land on it exactly).
func FromPreviousSession(bars []*domain.Bar, now time.Time) (domain.PivotLevels, error) {
	sessionStart := now.UTC().Truncate(24 * time.Hour)
	prevStart := sessionStart.Add(-24 * time.Hour)

	var high, low, close float64
	found := false
	for _, b := range bars {
		t := b.CloseTime.UTC()
		if !t.After(prevStart) || t.After(sessionStart) {
			continue
		}
		if !found {
			high, low = b.High, b.Low
			found = true
		} else {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}
		close = b.Close // bars are ordered, so the last in range is the session close
	}
	if !found {
		return domain.PivotLevels{}, fmt.Errorf("no bars for previous session %s", prevStart.Format("2006-01-02"))
	}
	return Compute(high, low, close)
}
