package engine

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// Settings is an immutable snapshot of one benchmark configuration.
type Settings struct {
	// InstanceCount is the number of triangles drawn per frame.
	InstanceCount int
	// UseDynamicOffsets selects one dynamically offset bind group instead of one bind group per instance.
	UseDynamicOffsets bool
	// UseRenderBundle replays a pre-recorded bundle instead of encoding the draws every frame.
	UseRenderBundle bool
}

// NewSettings builds Settings from untrusted numeric input such as a UI slider or a flag.
//
// Parameters:
//   - count: the requested instance count; must be a finite, non-negative whole number
//   - useDynamicOffsets: the binding mode flag
//   - useRenderBundle: the bundle replay flag
//
// Returns:
//   - Settings: the snapshot
//   - error: wraps ErrConfig if count is not usable
func NewSettings(count float64, useDynamicOffsets, useRenderBundle bool) (Settings, error) {
	switch {
	case math.IsNaN(count) || math.IsInf(count, 0):
		return Settings{}, fmt.Errorf("%w: instance count %v is not finite", ErrConfig, count)
	case count < 0:
		return Settings{}, fmt.Errorf("%w: instance count %v is negative", ErrConfig, count)
	case !common.IsWholeNumber(count):
		return Settings{}, fmt.Errorf("%w: instance count %v is not a whole number", ErrConfig, count)
	case count > math.MaxInt32:
		return Settings{}, fmt.Errorf("%w: instance count %v is too large", ErrConfig, count)
	}
	return Settings{
		InstanceCount:     int(count),
		UseDynamicOffsets: useDynamicOffsets,
		UseRenderBundle:   useRenderBundle,
	}, nil
}

func (s Settings) String() string {
	mode := "static"
	if s.UseDynamicOffsets {
		mode = "dynamic"
	}
	return fmt.Sprintf("%d triangles, %s offsets, bundle=%t", s.InstanceCount, mode, s.UseRenderBundle)
}
