// Package readiness tracks whether the messaging client has finished its
// startup handshake and lets request handlers wait for it with a bound.
package readiness

import (
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often Gate re-checks the state while waiting.
const DefaultPollInterval = 500 * time.Millisecond

// State is the process-wide readiness flag. It starts false and is flipped
// to true exactly once by whoever owns the messaging client's lifecycle.
type State struct {
	ready atomic.Bool
}

// NewState returns a State that is not ready.
func NewState() *State {
	return &State{}
}

// MarkReady sets the flag. It reports whether this call flipped it; later
// calls are no-ops and return false.
func (s *State) MarkReady() bool {
	return s.ready.CompareAndSwap(false, true)
}

// Ready reports the current value of the flag.
func (s *State) Ready() bool {
	return s.ready.Load()
}

// Gate provides a bounded wait on a State.
type Gate struct {
	state    *State
	interval time.Duration
}

// NewGate creates a Gate polling state every interval.
// A non-positive interval falls back to DefaultPollInterval.
func NewGate(state *State, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Gate{state: state, interval: interval}
}

// PollInterval returns the interval between checks.
func (g *Gate) PollInterval() time.Duration {
	return g.interval
}

// WaitUntilReady returns true immediately when the state is already ready.
// Otherwise it checks the state once per poll interval and returns true at
// the first check that sees it ready, or false at the first check where the
// elapsed time has reached timeout. The wait cannot be cut short by the caller.
func (g *Gate) WaitUntilReady(timeout time.Duration) bool {
	if g.state.Ready() {
		return true
	}
	if timeout <= 0 {
		return false
	}

	start := time.Now()
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for range ticker.C {
		if g.state.Ready() {
			return true
		}
		if time.Since(start) >= timeout {
			return false
		}
	}
	return false
}
