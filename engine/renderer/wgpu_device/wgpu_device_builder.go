package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUDeviceOption is a functional option applied to a device during construction via NewDevice.
type WGPUDeviceOption func(*wgpuDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.presentMode = mode.wgpu()
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the main render pass.
// When not specified, the default is MSAAOff. Higher values (MSAA8x, MSAA16x) are
// adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the MSAA option to a device
func WithMSAA(count MSAASampleCount) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for benchmarking CPU vs GPU rendering performance.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithClearColor sets the color the render target is cleared to at the start of every frame.
//
// Parameters:
//   - r, g, b, a: the clear color components in [0, 1]
//
// Returns:
//   - WGPUDeviceOption: a function that applies the clear color option to a device
func WithClearColor(r, g, b, a float64) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		d.clearColor = wgpu.Color{R: r, G: g, B: b, A: a}
	}
}

// WithLogger sets the logger used for adapter selection and surface reconfiguration.
//
// Parameters:
//   - logger: the logger (defaults to a nop logger)
//
// Returns:
//   - WGPUDeviceOption: a function that applies the logger option to a device
func WithLogger(logger common.Logger) WGPUDeviceOption {
	return func(d *wgpuDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}
