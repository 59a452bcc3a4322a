package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUniformBuffer(t *testing.T, d *RecordingDevice, size uint64) Buffer {
	t.Helper()
	buf, err := d.CreateBuffer(BufferDescriptor{
		Label: "uniforms",
		Size:  size,
		Usage: BufferUsageUniform | BufferUsageCopyDst,
	})
	require.NoError(t, err)
	return buf
}

func newLayout(t *testing.T, d *RecordingDevice, dynamic bool) BindGroupLayout {
	t.Helper()
	layout, err := d.CreateBindGroupLayout(BindGroupLayoutDescriptor{
		Label: "layout",
		Entries: []BindGroupLayoutEntry{{
			Binding:          0,
			Visibility:       ShaderStageVertex,
			HasDynamicOffset: dynamic,
			MinBindingSize:   24,
		}},
	})
	require.NoError(t, err)
	return layout
}

func TestRecordingDevice_WriteBufferBounds(t *testing.T) {
	d := NewRecordingDevice()
	buf := newUniformBuffer(t, d, 16)

	require.NoError(t, d.WriteBuffer(buf, 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}, d.BufferData(buf))

	err := d.WriteBuffer(buf, 12, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.ErrorIs(t, err, ErrDevice)

	buf.Release()
	err = d.WriteBuffer(buf, 0, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrDevice)
	assert.Len(t, d.Writes(), 1)
}

func TestRecordingDevice_CreateBufferRejectsOversize(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxBufferSize = 1024
	d := NewRecordingDevice(WithLimits(limits))

	_, err := d.CreateBuffer(BufferDescriptor{Size: 2048, Usage: BufferUsageUniform})
	assert.ErrorIs(t, err, ErrDevice)
	assert.Equal(t, 0, d.LiveCount(KindBuffer))
}

func TestRecordingDevice_BindGroupValidation(t *testing.T) {
	d := NewRecordingDevice()
	buf := newUniformBuffer(t, d, 512)
	layout := newLayout(t, d, false)

	_, err := d.CreateBindGroup(BindGroupDescriptor{
		Layout:  layout,
		Entries: []BindGroupEntry{{Buffer: buf, Offset: 256, Size: 24}},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry BindGroupEntry
	}{
		{"unaligned offset", BindGroupEntry{Buffer: buf, Offset: 20, Size: 24}},
		{"range past end", BindGroupEntry{Buffer: buf, Offset: 512, Size: 24}},
		{"below minimum size", BindGroupEntry{Buffer: buf, Offset: 0, Size: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CreateBindGroup(BindGroupDescriptor{Layout: layout, Entries: []BindGroupEntry{tt.entry}})
			assert.ErrorIs(t, err, ErrDevice)
		})
	}
	assert.Equal(t, 1, d.LiveCount(KindBindGroup))
	assert.Equal(t, 1, d.LiveReferences(buf))
}

func TestRecordingDevice_FrameValidatesDynamicOffsets(t *testing.T) {
	d := NewRecordingDevice()
	buf := newUniformBuffer(t, d, 512)
	layout := newLayout(t, d, true)
	group, err := d.CreateBindGroup(BindGroupDescriptor{
		Layout:  layout,
		Entries: []BindGroupEntry{{Buffer: buf, Size: 24}},
	})
	require.NoError(t, err)

	pass, err := d.BeginFrame()
	require.NoError(t, err)
	pass.SetBindGroup(1, group, []uint32{256})
	require.NoError(t, d.EndFrame())

	pass, err = d.BeginFrame()
	require.NoError(t, err)
	pass.SetBindGroup(1, group, []uint32{512})
	assert.ErrorIs(t, d.EndFrame(), ErrSubmission)

	pass, err = d.BeginFrame()
	require.NoError(t, err)
	pass.SetBindGroup(1, group, nil)
	assert.ErrorIs(t, d.EndFrame(), ErrSubmission)

	assert.Len(t, d.Frames(), 1)
}

func TestRecordingDevice_FrameRejectsReleasedGroup(t *testing.T) {
	d := NewRecordingDevice()
	buf := newUniformBuffer(t, d, 256)
	group, err := d.CreateBindGroup(BindGroupDescriptor{
		Layout:  newLayout(t, d, false),
		Entries: []BindGroupEntry{{Buffer: buf, Size: 24}},
	})
	require.NoError(t, err)
	group.Release()
	assert.True(t, d.IsReleased(group))

	pass, err := d.BeginFrame()
	require.NoError(t, err)
	pass.SetBindGroup(1, group, nil)
	assert.ErrorIs(t, d.EndFrame(), ErrSubmission)
}

func TestRecordingDevice_BeginFrameTwice(t *testing.T) {
	d := NewRecordingDevice()
	_, err := d.BeginFrame()
	require.NoError(t, err)
	_, err = d.BeginFrame()
	assert.ErrorIs(t, err, ErrSubmission)
	require.NoError(t, d.EndFrame())
	assert.ErrorIs(t, d.EndFrame(), ErrSubmission)
}

func TestRecordingDevice_BundlesExpand(t *testing.T) {
	d := NewRecordingDevice()
	enc, err := d.CreateRenderBundleEncoder("bundle")
	require.NoError(t, err)
	enc.Draw(3, 1, 0, 0)
	enc.Draw(3, 1, 0, 0)
	bundle, err := enc.Finish()
	require.NoError(t, err)

	_, err = enc.Finish()
	assert.ErrorIs(t, err, ErrDevice)

	pass, err := d.BeginFrame()
	require.NoError(t, err)
	pass.ExecuteBundles(bundle)
	require.NoError(t, d.EndFrame())

	frames := d.Frames()
	require.Len(t, frames, 1)
	require.Len(t, frames[0].Commands, 1)
	expanded := ExpandBundles(frames[0].Commands)
	require.Len(t, expanded, 2)
	assert.Equal(t, CommandDraw, expanded[1].Op)
	assert.Equal(t, uint32(3), expanded[1].VertexCount)
}

func TestRecordingDevice_FailOnIsOneShot(t *testing.T) {
	d := NewRecordingDevice(WithFailure(OpCreateBuffer, 1))

	_, err := d.CreateBuffer(BufferDescriptor{Size: 4, Usage: BufferUsageUniform})
	require.NoError(t, err)
	_, err = d.CreateBuffer(BufferDescriptor{Size: 4, Usage: BufferUsageUniform})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDevice))
	_, err = d.CreateBuffer(BufferDescriptor{Size: 4, Usage: BufferUsageUniform})
	assert.NoError(t, err)
	assert.Equal(t, 2, d.LiveCount(KindBuffer))
}
