package pipeline

import (
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
)

// pipeline is the implementation of the Pipeline interface.
// It holds one render pipeline variant and the layouts its bind groups must be created from.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for labels and lookups
	pipelineKey string
	// mode is the binding strategy this variant's group 1 layout accepts
	mode bind_group_provider.BindingMode

	// The following fields are GPU allocated resources. The instance layout, pipeline layout and
	// render pipeline are owned by this variant; the time layout is shared and owned by the PipelineSet.

	renderPipeline device.RenderPipeline
	pipelineLayout device.PipelineLayout
	instanceLayout device.BindGroupLayout
	timeLayout     device.BindGroupLayout
}

// Pipeline defines the interface for one render pipeline variant of the triangle program.
// The static and dynamic variants share the shader module, vertex layout and time layout and
// differ only in whether the group 1 binding takes a dynamic offset.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Mode returns the binding strategy this pipeline is laid out for.
	//
	// Returns:
	//   - bind_group_provider.BindingMode: static or dynamic
	Mode() bind_group_provider.BindingMode

	// RenderPipeline returns the device render pipeline.
	//
	// Returns:
	//   - device.RenderPipeline: the render pipeline
	RenderPipeline() device.RenderPipeline

	// Layouts returns the bind group layouts groups used with this pipeline must be created from.
	//
	// Returns:
	//   - bind_group_provider.Layouts: the time and instance layouts
	Layouts() bind_group_provider.Layouts

	// Release releases the GPU objects owned by this variant.
	Release()
}

var _ Pipeline = &pipeline{}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Mode() bind_group_provider.BindingMode {
	return p.mode
}

func (p *pipeline) RenderPipeline() device.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Layouts() bind_group_provider.Layouts {
	return bind_group_provider.Layouts{
		Time:     p.timeLayout,
		Instance: p.instanceLayout,
	}
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.instanceLayout != nil {
		p.instanceLayout.Release()
		p.instanceLayout = nil
	}
}
