package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithHost sets the host whose events are pumped every frame. Without a host the loop only
// stops on Quit, on the frame budget or on an error.
//
// Parameters:
//   - h: the host
//
// Returns:
//   - LoopOption: option function to apply
func WithHost(h Host) LoopOption {
	return func(l *Loop) {
		l.host = h
	}
}

// WithFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - LoopOption: option function to apply
func WithFrameLimit(fps float64) LoopOption {
	return func(l *Loop) {
		if fps <= 0 {
			l.frameLimit = 0
			return
		}
		l.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames stops the loop after n frames. 0 runs until Quit or the host closes.
//
// Parameters:
//   - n: the frame budget
//
// Returns:
//   - LoopOption: option function to apply
func WithMaxFrames(n int) LoopOption {
	return func(l *Loop) {
		l.maxFrames = max(n, 0)
	}
}

// WithLoopClock sets the clock the frame timestamps are derived from.
//
// Parameters:
//   - now: the clock function (defaults to time.Now)
//
// Returns:
//   - LoopOption: option function to apply
func WithLoopClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLoopLogger sets the logger used for frame failures.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoopOption: option function to apply
func WithLoopLogger(logger common.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}
