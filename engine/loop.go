package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// Host is the scheduler side of the frame loop: it pumps platform events once per frame and
// reports when the user asked to close.
type Host interface {
	PollEvents()
	ShouldClose() bool
}

// Loop calls Engine.Tick once per host refresh with a millisecond timestamp measured from the
// start of Run. It runs on the calling goroutine; Quit may be called from any goroutine.
type Loop struct {
	engine Engine
	host   Host
	logger common.Logger
	now    func() time.Time

	frameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames  int
	frames     int

	quitChannel chan struct{}
	quitOnce    sync.Once
}

// NewLoop creates a Loop driving e.
//
// Parameters:
//   - e: the configured engine
//   - options: functional options for the loop (host, frame limit, frame count, clock, logger)
//
// Returns:
//   - *Loop: the loop, not yet running
func NewLoop(e Engine, options ...LoopOption) *Loop {
	l := &Loop{
		engine:      e,
		logger:      common.NewNopLogger(),
		now:         time.Now,
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Run ticks the engine until Quit is called, the host asks to close, the frame budget is spent
// or a frame fails. A panic inside a frame is recovered and returned as an error.
//
// Returns:
//   - error: the first Tick error, or nil on a requested stop
func (l *Loop) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("frame loop recovered from panic: %v", r)
			err = fmt.Errorf("frame loop panicked: %v", r)
			l.Quit()
		}
	}()

	start := l.now()
	for {
		select {
		case <-l.quitChannel:
			return nil
		default:
		}
		if l.host != nil {
			l.host.PollEvents()
			if l.host.ShouldClose() {
				l.Quit()
				return nil
			}
		}

		frameStart := l.now()
		timestamp := float64(frameStart.Sub(start)) / float64(time.Millisecond)
		if err := l.engine.Tick(timestamp); err != nil {
			l.logger.Errorf("frame %d failed: %v", l.frames, err)
			l.Quit()
			return err
		}
		l.frames++
		if l.maxFrames > 0 && l.frames >= l.maxFrames {
			l.Quit()
			return nil
		}

		if l.frameLimit > 0 {
			if remaining := l.frameLimit - l.now().Sub(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// Quit stops the loop after the current frame.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (l *Loop) Quit() {
	l.quitOnce.Do(func() {
		close(l.quitChannel)
	})
}

// Frames returns how many frames Run completed.
func (l *Loop) Frames() int {
	return l.frames
}
