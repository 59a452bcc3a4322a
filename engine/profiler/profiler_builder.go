package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// ProfilerOption is a functional option used to configure a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets the minimum time between two read-outs.
//
// Parameters:
//   - interval: the throttle interval
//
// Returns:
//   - ProfilerOption: a function that applies the interval option to a profiler
func WithUpdateInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		p.updateInterval = interval
	}
}

// WithClock replaces the wall clock used by the throttle gate.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerOption: a function that applies the clock option to a profiler
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithLogger sets the logger used to record reporter failures.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProfilerOption: a function that applies the logger option to a profiler
func WithLogger(logger common.Logger) ProfilerOption {
	return func(p *Profiler) {
		p.logger = logger
	}
}
