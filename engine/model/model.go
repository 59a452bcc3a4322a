package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
)

// model is the implementation of the Model interface.
type model struct {
	name         string
	vertices     []GPUVertex
	vertexBuffer device.Buffer
}

// Model defines the interface for the immutable geometry drawn by every instance.
// A Model owns the per-vertex data and, once uploaded, the vertex buffer holding it.
// The buffer is created once and never rewritten; only Release frees it.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices retrieves the host copy of the vertex data.
	//
	// Returns:
	//   - []GPUVertex: the vertices in draw order
	Vertices() []GPUVertex

	// VertexCount returns the number of vertices drawn per instance.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// VertexData returns the packed vertex bytes as uploaded to the GPU.
	//
	// Returns:
	//   - []byte: VertexCount()*VertexStride bytes
	VertexData() []byte

	// Upload creates the vertex buffer with its contents populated at creation.
	// Calling Upload on an already uploaded model is a no-op.
	//
	// Parameters:
	//   - dev: the device to allocate on
	//
	// Returns:
	//   - error: wraps device.ErrDevice if the device rejects the allocation
	Upload(dev device.Device) error

	// VertexBuffer retrieves the uploaded vertex buffer, or nil before Upload.
	//
	// Returns:
	//   - device.Buffer: the vertex buffer
	VertexBuffer() device.Buffer

	// Release frees the vertex buffer. The model may be uploaded again afterwards.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Without WithVertices the model holds TriangleVertices.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{name: "triangle"}
	for _, opt := range options {
		opt(m)
	}
	if len(m.vertices) == 0 {
		m.vertices = TriangleVertices()
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	return append([]GPUVertex(nil), m.vertices...)
}

func (m *model) VertexCount() int {
	return len(m.vertices)
}

func (m *model) VertexData() []byte {
	return MarshalVertices(m.vertices)
}

func (m *model) Upload(dev device.Device) error {
	if m.vertexBuffer != nil {
		return nil
	}
	buf, err := dev.CreateBuffer(device.BufferDescriptor{
		Label:            m.name + " Vertex Buffer",
		Usage:            device.BufferUsageVertex,
		MappedAtCreation: true,
		Contents:         m.VertexData(),
	})
	if err != nil {
		return fmt.Errorf("failed to create vertex buffer for %s: %w", m.name, err)
	}
	m.vertexBuffer = buf
	return nil
}

func (m *model) VertexBuffer() device.Buffer {
	return m.vertexBuffer
}

func (m *model) Release() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
}
