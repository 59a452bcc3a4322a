package engine

import "github.com/Carmen-Shannon/oxy-bench/common"

// DefaultCountStep is how many instances the left and right arrow keys remove and add.
const DefaultCountStep = 100

// Controls turns key presses into new Settings snapshots. It never touches the engine; the host
// passes every snapshot it returns to Engine.Configure.
//
// Key bindings:
//   - D toggles dynamic offsets
//   - B toggles render bundle replay
//   - Up / Down double and halve the instance count
//   - Right / Left add and remove DefaultCountStep instances
//   - R rebuilds the current settings with a fresh parameter table
type Controls struct {
	settings Settings
	maxCount int
}

// NewControls creates Controls starting from initial.
//
// Parameters:
//   - initial: the settings of the first configuration
//   - maxCount: the largest instance count the keys may reach; 0 for no cap
//
// Returns:
//   - *Controls: the controls
func NewControls(initial Settings, maxCount int) *Controls {
	return &Controls{settings: initial, maxCount: max(maxCount, 0)}
}

// Settings returns the current snapshot.
func (c *Controls) Settings() Settings {
	return c.settings
}

// HandleKey applies one key press.
//
// Parameters:
//   - keyCode: a common.Key* code
//
// Returns:
//   - Settings: the snapshot after the key press
//   - bool: true if the host should reconfigure
func (c *Controls) HandleKey(keyCode uint32) (Settings, bool) {
	s := c.settings
	switch keyCode {
	case common.KeyD:
		s.UseDynamicOffsets = !s.UseDynamicOffsets
	case common.KeyB:
		s.UseRenderBundle = !s.UseRenderBundle
	case common.KeyUp:
		s.InstanceCount = max(s.InstanceCount*2, 1)
	case common.KeyDown:
		s.InstanceCount /= 2
	case common.KeyRight:
		s.InstanceCount += DefaultCountStep
	case common.KeyLeft:
		s.InstanceCount = max(s.InstanceCount-DefaultCountStep, 0)
	case common.KeyR:
		return s, true
	default:
		return s, false
	}
	if c.maxCount > 0 {
		s.InstanceCount = min(s.InstanceCount, c.maxCount)
	}
	if s == c.settings {
		return s, false
	}
	c.settings = s
	return s, true
}

// Revert restores a snapshot after Engine.Configure rejected the one HandleKey returned.
//
// Parameters:
//   - s: the settings of the configuration still active
func (c *Controls) Revert(s Settings) {
	c.settings = s
}
