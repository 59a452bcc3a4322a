package engine

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/stretchr/testify/assert"
)

func TestControls_HandleKey(t *testing.T) {
	c := NewControls(Settings{InstanceCount: 200}, 1000)

	s, changed := c.HandleKey(common.KeyD)
	assert.True(t, changed)
	assert.True(t, s.UseDynamicOffsets)

	s, changed = c.HandleKey(common.KeyB)
	assert.True(t, changed)
	assert.True(t, s.UseRenderBundle)

	s, _ = c.HandleKey(common.KeyUp)
	assert.Equal(t, 400, s.InstanceCount)
	s, _ = c.HandleKey(common.KeyRight)
	assert.Equal(t, 500, s.InstanceCount)
	s, _ = c.HandleKey(common.KeyUp)
	assert.Equal(t, 1000, s.InstanceCount)

	// capped, so nothing to rebuild
	s, changed = c.HandleKey(common.KeyUp)
	assert.False(t, changed)
	assert.Equal(t, 1000, s.InstanceCount)

	s, changed = c.HandleKey(common.KeyR)
	assert.True(t, changed)
	assert.Equal(t, c.Settings(), s)

	_, changed = c.HandleKey(common.KeySpace)
	assert.False(t, changed)
}

func TestControls_CountFloorsAtZero(t *testing.T) {
	c := NewControls(Settings{InstanceCount: 50}, 0)

	s, changed := c.HandleKey(common.KeyLeft)
	assert.True(t, changed)
	assert.Equal(t, 0, s.InstanceCount)

	_, changed = c.HandleKey(common.KeyDown)
	assert.False(t, changed)

	s, _ = c.HandleKey(common.KeyUp)
	assert.Equal(t, 1, s.InstanceCount)
}

func TestControls_Revert(t *testing.T) {
	c := NewControls(Settings{InstanceCount: 10}, 0)
	active := c.Settings()
	c.HandleKey(common.KeyUp)
	c.Revert(active)
	assert.Equal(t, active, c.Settings())
}
