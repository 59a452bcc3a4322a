package wgpu_device

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// The handle types pair a native wgpu object with its label. Release is idempotent.

type buffer struct {
	label string
	size  uint64
	ref   *wgpu.Buffer
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }
func (b *buffer) Release() {
	if b.ref != nil {
		b.ref.Release()
		b.ref = nil
	}
}

type shaderModule struct {
	label string
	ref   *wgpu.ShaderModule
}

func (s *shaderModule) Label() string { return s.label }
func (s *shaderModule) Release() {
	if s.ref != nil {
		s.ref.Release()
		s.ref = nil
	}
}

type bindGroupLayout struct {
	label string
	ref   *wgpu.BindGroupLayout
}

func (l *bindGroupLayout) Label() string { return l.label }
func (l *bindGroupLayout) Release() {
	if l.ref != nil {
		l.ref.Release()
		l.ref = nil
	}
}

type pipelineLayout struct {
	label string
	ref   *wgpu.PipelineLayout
}

func (l *pipelineLayout) Label() string { return l.label }
func (l *pipelineLayout) Release() {
	if l.ref != nil {
		l.ref.Release()
		l.ref = nil
	}
}

type renderPipeline struct {
	label string
	ref   *wgpu.RenderPipeline
}

func (p *renderPipeline) Label() string { return p.label }
func (p *renderPipeline) Release() {
	if p.ref != nil {
		p.ref.Release()
		p.ref = nil
	}
}

type bindGroup struct {
	label string
	ref   *wgpu.BindGroup
}

func (g *bindGroup) Label() string { return g.label }
func (g *bindGroup) Release() {
	if g.ref != nil {
		g.ref.Release()
		g.ref = nil
	}
}

type renderBundle struct {
	label string
	ref   *wgpu.RenderBundle
}

func (r *renderBundle) Label() string { return r.label }
func (r *renderBundle) Release() {
	if r.ref != nil {
		r.ref.Release()
		r.ref = nil
	}
}

var (
	_ device.Buffer          = &buffer{}
	_ device.ShaderModule    = &shaderModule{}
	_ device.BindGroupLayout = &bindGroupLayout{}
	_ device.PipelineLayout  = &pipelineLayout{}
	_ device.RenderPipeline  = &renderPipeline{}
	_ device.BindGroup       = &bindGroup{}
	_ device.RenderBundle    = &renderBundle{}
)

// nativeRecorder is the command surface shared by wgpu.RenderPassEncoder and wgpu.RenderBundleEncoder.
type nativeRecorder interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// recorder translates device commands onto a native render pass or bundle encoder.
type recorder struct {
	native nativeRecorder
}

func (r recorder) SetPipeline(p device.RenderPipeline) {
	r.native.SetPipeline(p.(*renderPipeline).ref)
}

func (r recorder) SetVertexBuffer(slot uint32, buf device.Buffer) {
	r.native.SetVertexBuffer(slot, buf.(*buffer).ref, 0, wgpu.WholeSize)
}

func (r recorder) SetBindGroup(index uint32, group device.BindGroup, dynamicOffsets []uint32) {
	r.native.SetBindGroup(index, group.(*bindGroup).ref, dynamicOffsets)
}

func (r recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.native.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

type renderPass struct {
	recorder
	pass *wgpu.RenderPassEncoder
}

func (p *renderPass) ExecuteBundles(bundles ...device.RenderBundle) {
	native := make([]*wgpu.RenderBundle, len(bundles))
	for i, b := range bundles {
		native[i] = b.(*renderBundle).ref
	}
	p.pass.ExecuteBundles(native...)
}

type bundleEncoder struct {
	recorder
	label   string
	encoder *wgpu.RenderBundleEncoder
}

func (e *bundleEncoder) Finish() (device.RenderBundle, error) {
	if e.encoder == nil {
		return nil, fmt.Errorf("%w: render bundle encoder %q already finished", device.ErrDevice, e.label)
	}
	bundle := e.encoder.Finish(&wgpu.RenderBundleDescriptor{Label: e.label})
	e.encoder.Release()
	e.encoder = nil
	return &renderBundle{label: e.label, ref: bundle}, nil
}

var (
	_ device.RenderPass          = &renderPass{}
	_ device.RenderBundleEncoder = &bundleEncoder{}
)
