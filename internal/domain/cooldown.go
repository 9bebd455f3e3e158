package domain

import "time"

// CooldownState is the per-instrument last-signal bookkeeping consumed by the
// bar-count cooldown gate and by the wall-clock cooldown applied around the
// chain. Mutated exactly once per accepted signal, never on rejection.
// Reconstructible by replaying the journal; no external persistence required.
type CooldownState struct {
	LastSignalBarIndex int // -1 when no signal has been accepted yet
	LastSignalTime     time.Time
	LastDirection      Side
	LastPrice          float64
}

// EmptyCooldownState returns the state of an instrument with no accepted
// signals.
func EmptyCooldownState() CooldownState {
	return CooldownState{LastSignalBarIndex: -1}
}

// HasSignal reports whether any signal has been recorded or restored. A
// journal-restored state may carry a time but no bar index, so both
// components count.
func (s CooldownState) HasSignal() bool {
	return s.LastSignalBarIndex >= 0 || !s.LastSignalTime.IsZero()
}
