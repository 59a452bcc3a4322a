package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
)

// VertexStride is the byte distance between consecutive vertices in the vertex buffer.
const VertexStride = 32

// GPUVertex is the GPU-aligned representation of a single triangle vertex.
// Matches the WGSL vertex inputs of the triangle shader (location 0 = position, location 1 = color).
// Size: 32 bytes, no padding required.
type GPUVertex struct {
	Position [4]float32 // offset  0: clip-space position before per-instance transform (16 bytes)
	Color    [4]float32 // offset 16: RGBA color added to the fade color (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte little-endian buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, VertexStride)
	for i, v := range g.Position {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Color {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	return buf
}

// VertexLayout returns the vertex buffer layout matching GPUVertex.
//
// Returns:
//   - device.VertexBufferLayout: stride 32 with two float32x4 attributes at offsets 0 and 16
func VertexLayout() device.VertexBufferLayout {
	return device.VertexBufferLayout{
		ArrayStride: VertexStride,
		Attributes: []device.VertexAttribute{
			{Format: device.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
			{Format: device.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
		},
	}
}

// TriangleVertices returns the fixed triangle template: apex red, bottom-left green, bottom-right blue.
func TriangleVertices() []GPUVertex {
	return []GPUVertex{
		{Position: [4]float32{0, 0.1, 0, 1}, Color: [4]float32{1, 0, 0, 1}},
		{Position: [4]float32{-0.1, -0.1, 0, 1}, Color: [4]float32{0, 1, 0, 1}},
		{Position: [4]float32{0.1, -0.1, 0, 1}, Color: [4]float32{0, 0, 1, 1}},
	}
}

// MarshalVertices packs vertices back to back at VertexStride.
func MarshalVertices(vertices []GPUVertex) []byte {
	data := make([]byte, 0, len(vertices)*VertexStride)
	for i := range vertices {
		data = append(data, vertices[i].Marshal()...)
	}
	return data
}
