package domain

import "github.com/jonboulle/clockwork"

// RunLabelLayout formats the run folder that groups one batch of scenarios.
const RunLabelLayout = "02-01-2006_15-04-05"

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// RunLabel returns the current time formatted as a run folder name.
func RunLabel() string {
	return clock.Now().Format(RunLabelLayout)
}

// DefaultSeed derives a run seed from the clock when none is configured.
func DefaultSeed() uint64 {
	return uint64(clock.Now().UnixNano())
}
