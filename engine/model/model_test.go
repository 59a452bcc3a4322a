package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUVertex_Layout(t *testing.T) {
	v := GPUVertex{Position: [4]float32{0.5, -0.25, 0, 1}, Color: [4]float32{0, 1, 0, 1}}
	assert.Equal(t, VertexStride, v.Size())

	data := v.Marshal()
	require.Len(t, data, VertexStride)
	assert.Equal(t, float32(-0.25), math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[20:24])))

	layout := VertexLayout()
	assert.Equal(t, uint64(VertexStride), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint64(16), layout.Attributes[1].Offset)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)
}

func TestTriangleVertices(t *testing.T) {
	verts := TriangleVertices()
	require.Len(t, verts, 3)
	assert.Equal(t, [4]float32{0, 0.1, 0, 1}, verts[0].Position)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, verts[0].Color)
	assert.Equal(t, [4]float32{-0.1, -0.1, 0, 1}, verts[1].Position)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, verts[1].Color)
	assert.Equal(t, [4]float32{0.1, -0.1, 0, 1}, verts[2].Position)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, verts[2].Color)
}

func TestModel_UploadOnce(t *testing.T) {
	dev := device.NewRecordingDevice()
	m := NewModel()

	require.NoError(t, m.Upload(dev))
	first := m.VertexBuffer()
	require.NotNil(t, first)
	require.NoError(t, m.Upload(dev))
	assert.Same(t, first, m.VertexBuffer())

	assert.Equal(t, 3, m.VertexCount())
	assert.Equal(t, uint64(3*VertexStride), first.Size())
	assert.Equal(t, m.VertexData(), dev.BufferData(first))
	assert.Equal(t, 1, dev.LiveCount(device.KindBuffer))

	m.Release()
	assert.Nil(t, m.VertexBuffer())
	assert.Equal(t, 0, dev.LiveCount(device.KindBuffer))
}

func TestModel_UploadRejected(t *testing.T) {
	dev := device.NewRecordingDevice(device.WithFailure(device.OpCreateBuffer, 0))
	m := NewModel(WithName("tri"))

	err := m.Upload(dev)
	assert.ErrorIs(t, err, device.ErrDevice)
	assert.Nil(t, m.VertexBuffer())
}
