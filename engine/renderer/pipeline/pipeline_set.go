package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/uniform_buffer"
)

// pipelineSet is the implementation of the PipelineSet interface.
type pipelineSet struct {
	key          string
	shader       shader.Shader
	vertexLayout device.VertexBufferLayout

	module     device.ShaderModule
	timeLayout device.BindGroupLayout
	variants   map[bind_group_provider.BindingMode]*pipeline
}

// PipelineSet defines the interface for the two render pipelines built over one shader program.
// Selection between them is purely a function of the binding mode.
type PipelineSet interface {
	// Shader returns the program both pipelines were built from.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// Module returns the shared device shader module.
	//
	// Returns:
	//   - device.ShaderModule: the shader module
	Module() device.ShaderModule

	// Select returns the pipeline variant for a binding mode.
	//
	// Parameters:
	//   - mode: the binding strategy
	//
	// Returns:
	//   - Pipeline: the matching pipeline variant
	Select(mode bind_group_provider.BindingMode) Pipeline

	// Layouts returns the bind group layouts of the variant for a binding mode.
	//
	// Parameters:
	//   - mode: the binding strategy
	//
	// Returns:
	//   - bind_group_provider.Layouts: the time and instance layouts
	Layouts(mode bind_group_provider.BindingMode) bind_group_provider.Layouts

	// Release releases both variants, the shared time layout and the shader module.
	Release()
}

var _ PipelineSet = &pipelineSet{}

// NewPipelineSet creates the shader module, the shared time layout, one instance layout per binding
// mode, and a pipeline layout and render pipeline per mode. The shader's declared uniform sizes are
// checked against the buffer ranges the bind groups will cover. On failure every object created so
// far is released.
//
// Parameters:
//   - dev: the device to create the pipelines on
//   - s: the validated triangle program
//   - opts: a variadic list of PipelineSetOption functions to configure the set
//
// Returns:
//   - PipelineSet: the pipeline set
//   - error: wraps device.ErrSetup for a shader contract mismatch, or the device creation failure
func NewPipelineSet(dev device.Device, s shader.Shader, opts ...PipelineSetOption) (PipelineSet, error) {
	ps := &pipelineSet{
		key:          s.Key(),
		shader:       s,
		vertexLayout: model.VertexLayout(),
		variants:     make(map[bind_group_provider.BindingMode]*pipeline, 2),
	}
	for _, opt := range opts {
		opt(ps)
	}

	if err := checkBindings(s); err != nil {
		return nil, err
	}
	if err := ps.build(dev); err != nil {
		ps.Release()
		return nil, err
	}
	return ps, nil
}

func checkBindings(s shader.Shader) error {
	timeBinding, ok := s.Binding(bind_group_provider.TimeGroupIndex, 0)
	if !ok || timeBinding.Size != uniform_buffer.TimeSize {
		return fmt.Errorf("%w: shader %s must declare a %d-byte time uniform at group %d", device.ErrSetup, s.Key(), uniform_buffer.TimeSize, bind_group_provider.TimeGroupIndex)
	}
	params, ok := s.Binding(bind_group_provider.InstanceGroupIndex, 0)
	if !ok || params.Size == 0 || params.Size > instance.BindingRangeSize {
		return fmt.Errorf("%w: shader %s must declare instance uniforms of at most %d bytes at group %d", device.ErrSetup, s.Key(), instance.BindingRangeSize, bind_group_provider.InstanceGroupIndex)
	}
	return nil
}

func (ps *pipelineSet) build(dev device.Device) error {
	module, err := dev.CreateShaderModule(ps.key, ps.shader.Source())
	if err != nil {
		return fmt.Errorf("failed to create shader module %s: %w", ps.key, err)
	}
	ps.module = module

	timeLayout, err := dev.CreateBindGroupLayout(bind_group_provider.TimeLayoutDescriptor())
	if err != nil {
		return fmt.Errorf("failed to create time bind group layout: %w", err)
	}
	ps.timeLayout = timeLayout

	for _, mode := range []bind_group_provider.BindingMode{bind_group_provider.BindingModeStatic, bind_group_provider.BindingModeDynamic} {
		p := &pipeline{
			pipelineKey: ps.key + "/" + mode.String(),
			mode:        mode,
			timeLayout:  ps.timeLayout,
		}
		ps.variants[mode] = p

		p.instanceLayout, err = dev.CreateBindGroupLayout(bind_group_provider.InstanceLayoutDescriptor(mode))
		if err != nil {
			return fmt.Errorf("failed to create %s instance layout: %w", mode, err)
		}
		p.pipelineLayout, err = dev.CreatePipelineLayout(p.pipelineKey+" Layout", []device.BindGroupLayout{p.timeLayout, p.instanceLayout})
		if err != nil {
			return fmt.Errorf("failed to create %s pipeline layout: %w", mode, err)
		}
		p.renderPipeline, err = dev.CreateRenderPipeline(device.RenderPipelineDescriptor{
			Label:              p.pipelineKey,
			Layout:             p.pipelineLayout,
			Module:             ps.module,
			VertexEntryPoint:   ps.shader.EntryPoint(shader.ShaderTypeVertex),
			FragmentEntryPoint: ps.shader.EntryPoint(shader.ShaderTypeFragment),
			VertexBuffers:      []device.VertexBufferLayout{ps.vertexLayout},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s render pipeline: %w", mode, err)
		}
	}
	return nil
}

func (ps *pipelineSet) Shader() shader.Shader {
	return ps.shader
}

func (ps *pipelineSet) Module() device.ShaderModule {
	return ps.module
}

func (ps *pipelineSet) Select(mode bind_group_provider.BindingMode) Pipeline {
	return ps.variants[mode]
}

func (ps *pipelineSet) Layouts(mode bind_group_provider.BindingMode) bind_group_provider.Layouts {
	return ps.variants[mode].Layouts()
}

func (ps *pipelineSet) Release() {
	for mode, p := range ps.variants {
		p.Release()
		delete(ps.variants, mode)
	}
	if ps.timeLayout != nil {
		ps.timeLayout.Release()
		ps.timeLayout = nil
	}
	if ps.module != nil {
		ps.module.Release()
		ps.module = nil
	}
}
