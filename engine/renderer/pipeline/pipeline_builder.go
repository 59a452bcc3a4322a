package pipeline

import "github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"

// PipelineSetOption is a functional option used to configure a PipelineSet during construction.
type PipelineSetOption func(*pipelineSet)

// WithKey sets the key used to label the shader module and both pipelines.
//
// Parameters:
//   - key: the label prefix; defaults to the shader key
//
// Returns:
//   - PipelineSetOption: a function that sets the key for this pipeline set
func WithKey(key string) PipelineSetOption {
	return func(ps *pipelineSet) {
		ps.key = key
	}
}

// WithVertexLayout overrides the vertex buffer layout shared by both pipelines.
//
// Parameters:
//   - layout: the vertex buffer layout; defaults to model.VertexLayout()
//
// Returns:
//   - PipelineSetOption: a function that sets the vertex layout for this pipeline set
func WithVertexLayout(layout device.VertexBufferLayout) PipelineSetOption {
	return func(ps *pipelineSet) {
		ps.vertexLayout = layout
	}
}
