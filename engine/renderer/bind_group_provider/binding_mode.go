package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/uniform_buffer"
)

// BindingMode selects how per-instance uniform ranges are exposed to the shader.
type BindingMode int

const (
	// BindingModeStatic creates one bind group per instance, each over its own fixed range.
	BindingModeStatic BindingMode = iota

	// BindingModeDynamic creates one bind group with a dynamic offset supplied per draw.
	BindingModeDynamic
)

// BindingModeFor maps the dynamicOffsets setting to a BindingMode.
func BindingModeFor(dynamicOffsets bool) BindingMode {
	if dynamicOffsets {
		return BindingModeDynamic
	}
	return BindingModeStatic
}

func (m BindingMode) String() string {
	if m == BindingModeDynamic {
		return "dynamic"
	}
	return "static"
}

// TimeLayoutDescriptor describes the layout of the time group: one vertex-visible 4-byte uniform.
func TimeLayoutDescriptor() device.BindGroupLayoutDescriptor {
	return device.BindGroupLayoutDescriptor{
		Label: "Time Bind Group Layout",
		Entries: []device.BindGroupLayoutEntry{{
			Binding:        0,
			Visibility:     device.ShaderStageVertex,
			MinBindingSize: uniform_buffer.TimeSize,
		}},
	}
}

// InstanceLayoutDescriptor describes the layout of the instance group for mode.
// The two layouts differ only in whether the binding takes a dynamic offset.
//
// Parameters:
//   - mode: the binding strategy
//
// Returns:
//   - device.BindGroupLayoutDescriptor: the layout descriptor
func InstanceLayoutDescriptor(mode BindingMode) device.BindGroupLayoutDescriptor {
	return device.BindGroupLayoutDescriptor{
		Label: "Instance Bind Group Layout (" + mode.String() + ")",
		Entries: []device.BindGroupLayoutEntry{{
			Binding:          0,
			Visibility:       device.ShaderStageVertex,
			HasDynamicOffset: mode == BindingModeDynamic,
			MinBindingSize:   instance.BindingRangeSize,
		}},
	}
}
