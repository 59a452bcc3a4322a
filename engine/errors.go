package engine

import "errors"

var (
	// ErrConfig reports settings that Configure rejects. The previous configuration stays active.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotConfigured reports a Tick before the first successful Configure.
	ErrNotConfigured = errors.New("engine not configured")

	// ErrReleased reports a Configure on an engine whose GPU objects were already released.
	ErrReleased = errors.New("engine released")
)
