package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/pipeline"
)

// ErrMismatchedBindings is returned when a pipeline and a bind group set were built for different binding modes.
var ErrMismatchedBindings = errors.New("pipeline and bind groups disagree on binding mode")

// frameRecorder is the implementation of the FrameRecorder interface.
type frameRecorder struct {
	label    string
	pipeline pipeline.Pipeline
	groups   bind_group_provider.BindGroupProvider
	model    model.Model

	// bundle is the captured draw sequence, or nil when frames are re-recorded each time.
	bundle device.RenderBundle
}

// FrameRecorder defines the interface for the per-frame draw sequence of one configuration.
// The sequence is either encoded directly into each frame's render pass or captured once into a
// render bundle and replayed; both paths emit the same commands in the same order.
type FrameRecorder interface {
	// Pipeline returns the pipeline the sequence binds.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline variant
	Pipeline() pipeline.Pipeline

	// BindGroups returns the bind groups the sequence binds.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group set
	BindGroups() bind_group_provider.BindGroupProvider

	// DrawCount returns the number of draws in one frame.
	//
	// Returns:
	//   - int: one draw per instance
	DrawCount() int

	// Bake captures the sequence into a render bundle. Baking an already baked recorder is a no-op.
	//
	// Parameters:
	//   - dev: the device to create the bundle encoder on
	//
	// Returns:
	//   - error: the encoder or finish failure
	Bake(dev device.Device) error

	// Bundle returns the captured render bundle, or nil if the recorder has not been baked.
	//
	// Returns:
	//   - device.RenderBundle: the bundle or nil
	Bundle() device.RenderBundle

	// Submit emits the sequence into a frame's render pass, replaying the bundle when baked.
	//
	// Parameters:
	//   - pass: the render pass of the current frame
	Submit(pass device.RenderPass)

	// Release releases the bundle, if any. The pipeline, bind groups and model are not owned.
	Release()
}

var _ FrameRecorder = &frameRecorder{}

// NewFrameRecorder creates a FrameRecorder for one configuration.
//
// Parameters:
//   - p: the pipeline variant selected for the configuration's binding mode
//   - groups: the bind groups built for the same binding mode
//   - m: the uploaded geometry
//   - options: a variadic list of FrameRecorderOption functions to configure the recorder
//
// Returns:
//   - FrameRecorder: the recorder
//   - error: ErrMismatchedBindings if p and groups disagree, or an error if m has no vertex buffer
func NewFrameRecorder(p pipeline.Pipeline, groups bind_group_provider.BindGroupProvider, m model.Model, options ...FrameRecorderOption) (FrameRecorder, error) {
	if p.Mode() != groups.Mode() {
		return nil, fmt.Errorf("%w: pipeline %s, bind groups %s", ErrMismatchedBindings, p.Mode(), groups.Mode())
	}
	if m.VertexBuffer() == nil {
		return nil, fmt.Errorf("model %s has not been uploaded", m.Name())
	}
	r := &frameRecorder{
		label:    "Triangles Bundle",
		pipeline: p,
		groups:   groups,
		model:    m,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Record emits the draw sequence: the pipeline, vertex buffer and time group are bound once, then
// each instance in ascending order binds its group (with its dynamic offset, if any) and draws
// one non-indexed copy of the geometry.
//
// Parameters:
//   - rec: the render pass or bundle encoder to record into
//   - p: the pipeline variant
//   - groups: the bind group set
//   - m: the uploaded geometry
func Record(rec device.CommandRecorder, p pipeline.Pipeline, groups bind_group_provider.BindGroupProvider, m model.Model) {
	rec.SetPipeline(p.RenderPipeline())
	rec.SetVertexBuffer(0, m.VertexBuffer())
	rec.SetBindGroup(bind_group_provider.TimeGroupIndex, groups.TimeBindGroup(), nil)

	vertexCount := uint32(m.VertexCount())
	for i := 0; i < groups.InstanceCount(); i++ {
		group, offsets := groups.InstanceBindGroup(i)
		rec.SetBindGroup(bind_group_provider.InstanceGroupIndex, group, offsets)
		rec.Draw(vertexCount, 1, 0, 0)
	}
}

func (r *frameRecorder) Pipeline() pipeline.Pipeline {
	return r.pipeline
}

func (r *frameRecorder) BindGroups() bind_group_provider.BindGroupProvider {
	return r.groups
}

func (r *frameRecorder) DrawCount() int {
	return r.groups.InstanceCount()
}

func (r *frameRecorder) Bake(dev device.Device) error {
	if r.bundle != nil {
		return nil
	}
	enc, err := dev.CreateRenderBundleEncoder(r.label)
	if err != nil {
		return fmt.Errorf("failed to create render bundle encoder: %w", err)
	}
	Record(enc, r.pipeline, r.groups, r.model)
	bundle, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("failed to finish render bundle: %w", err)
	}
	r.bundle = bundle
	return nil
}

func (r *frameRecorder) Bundle() device.RenderBundle {
	return r.bundle
}

func (r *frameRecorder) Submit(pass device.RenderPass) {
	if r.bundle != nil {
		pass.ExecuteBundles(r.bundle)
		return
	}
	Record(pass, r.pipeline, r.groups, r.model)
}

func (r *frameRecorder) Release() {
	if r.bundle != nil {
		r.bundle.Release()
		r.bundle = nil
	}
}
