package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

func bufferUsage(u device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u.Has(device.BufferUsageCopyDst) {
		out |= wgpu.BufferUsageCopyDst
	}
	if u.Has(device.BufferUsageVertex) {
		out |= wgpu.BufferUsageVertex
	}
	if u.Has(device.BufferUsageUniform) {
		out |= wgpu.BufferUsageUniform
	}
	return out
}

func shaderStage(s device.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&device.ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&device.ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	return out
}

func layoutEntries(entries []device.BindGroupLayoutEntry) []wgpu.BindGroupLayoutEntry {
	out := make([]wgpu.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		out[i] = wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: shaderStage(e.Visibility),
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: e.HasDynamicOffset,
				MinBindingSize:   e.MinBindingSize,
			},
		}
	}
	return out
}

func vertexFormat(f device.VertexFormat) wgpu.VertexFormat {
	switch f {
	case device.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		return wgpu.VertexFormatUndefined
	}
}

func vertexLayouts(layouts []device.VertexBufferLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(layouts))
	for i, l := range layouts {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}
	return out
}
