// Package wgpu_device implements device.Device on top of wgpu-native through cogentcore/webgpu.
// All calls must be made from the thread that created the device.
package wgpu_device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuDevice struct {
	mu     *sync.Mutex
	logger common.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   device.Limits

	surfaceFormat        wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode          wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount          MSAASampleCount
	forceFallbackAdapter bool
	clearColor           wgpu.Color

	// Frame state between BeginFrame and EndFrame
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// WGPUDevice is a device.Device that presents to a window surface.
type WGPUDevice interface {
	device.Device

	// Resize reconfigures the surface and the multisample target for a new window size.
	// A zero width or height (a minimized window) is ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Release releases the surface, the device and the adapter.
	Release()
}

var _ WGPUDevice = &wgpuDevice{}

// NewDevice acquires an adapter compatible with the surface, requests a device and configures
// the surface at the given size.
//
// Parameters:
//   - surfaceDescriptor: the window surface to present to
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: a variadic list of WGPUDeviceOption functions to configure the device
//
// Returns:
//   - WGPUDevice: the device
//   - error: wraps device.ErrSetup if no adapter, device or surface is available
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...WGPUDeviceOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		logger:      common.NewNopLogger(),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: MSAAOff,
		clearColor:  wgpu.Color{R: 1, G: 1, B: 1, A: 1},
	}
	for _, opt := range options {
		opt(d)
	}
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("%w: no surface descriptor", device.ErrSetup)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)
	if d.surface == nil {
		d.Release()
		return nil, fmt.Errorf("%w: failed to create surface", device.ErrSetup)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: failed to request adapter: %w", device.ErrSetup, err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: failed to request device: %w", device.ErrSetup, err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	supported := dev.GetLimits().Limits
	d.limits = device.Limits{
		MinUniformBufferOffsetAlignment: supported.MinUniformBufferOffsetAlignment,
		MaxUniformBufferBindingSize:     supported.MaxUniformBufferBindingSize,
		MaxBufferSize:                   supported.MaxBufferSize,
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		d.Release()
		return nil, fmt.Errorf("%w: surface is not supported by the adapter", device.ErrSetup)
	}
	d.surfaceFormat = capabilities.Formats[0]

	if err := d.configureSurface(width, height); err != nil {
		d.Release()
		return nil, fmt.Errorf("%w: %w", device.ErrSetup, err)
	}

	d.logger.Infof("wgpu device ready: %dx%d, format %v, msaa %dx, alignment %d", width, height, d.surfaceFormat, d.sampleCount, d.limits.MinUniformBufferOffsetAlignment)
	return d, nil
}

// configureSurface must be called with mu held or before the device is shared.
func (d *wgpuDevice) configureSurface(width, height int) error {
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if d.msaaTextureView != nil {
		d.msaaTextureView.Release()
		d.msaaTextureView = nil
	}
	if d.msaaTexture != nil {
		d.msaaTexture.Release()
		d.msaaTexture = nil
	}

	count := uint32(d.sampleCount)
	msaaEnabled := count > 1
	if msaaEnabled {
		// The render pass draws into the MSAA texture; the swapchain view is the resolve target.
		texture, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        d.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("failed to create MSAA texture: %w", err)
		}
		view, err := texture.CreateView(nil)
		if err != nil {
			texture.Release()
			return fmt.Errorf("failed to create MSAA texture view: %w", err)
		}
		d.msaaTexture = texture
		d.msaaTextureView = view
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	d.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       d.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: d.clearColor,
			},
		},
	}
	return nil
}

func (d *wgpuDevice) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.configureSurface(width, height); err != nil {
		d.logger.Errorf("failed to resize surface to %dx%d: %v", width, height, err)
		return
	}
	d.logger.Debugf("surface resized to %dx%d", width, height)
}

func (d *wgpuDevice) Limits() device.Limits {
	return d.limits
}

func (d *wgpuDevice) CreateBuffer(desc device.BufferDescriptor) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := desc.Size
	if size == 0 {
		size = uint64(len(desc.Contents))
	}
	var (
		buf *wgpu.Buffer
		err error
	)
	if len(desc.Contents) > 0 {
		contents := desc.Contents
		if uint64(len(contents)) < size {
			contents = append(append([]byte(nil), contents...), make([]byte, size-uint64(len(contents)))...)
		}
		buf, err = d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    desc.Label,
			Contents: contents,
			Usage:    bufferUsage(desc.Usage),
		})
	} else {
		buf, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            desc.Label,
			Size:             size,
			Usage:            bufferUsage(desc.Usage),
			MappedAtCreation: desc.MappedAtCreation,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create buffer %q of %d bytes: %w", device.ErrDevice, desc.Label, size, err)
	}
	return &buffer{label: desc.Label, size: size, ref: buf}, nil
}

func (d *wgpuDevice) WriteBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*buffer)
	if !ok || b.ref == nil {
		return fmt.Errorf("%w: write to an unknown or released buffer", device.ErrDevice)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: write to %q overruns buffer (%d+%d > %d)", device.ErrDevice, b.label, offset, len(data), b.size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(b.ref, offset, data)
	return nil
}

func (d *wgpuDevice) CreateShaderModule(label, source string) (device.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create shader module %q: %w", device.ErrDevice, label, err)
	}
	return &shaderModule{label: label, ref: module}, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc device.BindGroupLayoutDescriptor) (device.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: layoutEntries(desc.Entries),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create bind group layout %q: %w", device.ErrDevice, desc.Label, err)
	}
	return &bindGroupLayout{label: desc.Label, ref: layout}, nil
}

func (d *wgpuDevice) CreatePipelineLayout(label string, layouts []device.BindGroupLayout) (device.PipelineLayout, error) {
	native := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		bgl, ok := l.(*bindGroupLayout)
		if !ok || bgl.ref == nil {
			return nil, fmt.Errorf("%w: pipeline layout %q group %d is not a live bind group layout", device.ErrDevice, label, i)
		}
		native[i] = bgl.ref
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: native,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pipeline layout %q: %w", device.ErrDevice, label, err)
	}
	return &pipelineLayout{label: label, ref: layout}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc device.RenderPipelineDescriptor) (device.RenderPipeline, error) {
	layout, ok := desc.Layout.(*pipelineLayout)
	if !ok || layout.ref == nil {
		return nil, fmt.Errorf("%w: render pipeline %q has no live layout", device.ErrDevice, desc.Label)
	}
	module, ok := desc.Module.(*shaderModule)
	if !ok || module.ref == nil {
		return nil, fmt.Errorf("%w: render pipeline %q has no live shader module", device.ErrDevice, desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.ref,
		Vertex: wgpu.VertexState{
			Module:     module.ref,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    vertexLayouts(desc.VertexBuffers),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module.ref,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    d.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(d.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create render pipeline %q: %w", device.ErrDevice, desc.Label, err)
	}
	return &renderPipeline{label: desc.Label, ref: created}, nil
}

func (d *wgpuDevice) CreateBindGroup(desc device.BindGroupDescriptor) (device.BindGroup, error) {
	layout, ok := desc.Layout.(*bindGroupLayout)
	if !ok || layout.ref == nil {
		return nil, fmt.Errorf("%w: bind group %q has no live layout", device.ErrDevice, desc.Label)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		b, ok := e.Buffer.(*buffer)
		if !ok || b.ref == nil {
			return nil, fmt.Errorf("%w: bind group %q binding %d references an unknown or released buffer", device.ErrDevice, desc.Label, e.Binding)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  b.ref,
			Offset:  e.Offset,
			Size:    e.Size,
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.ref,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create bind group %q: %w", device.ErrDevice, desc.Label, err)
	}
	return &bindGroup{label: desc.Label, ref: group}, nil
}

func (d *wgpuDevice) CreateRenderBundleEncoder(label string) (device.RenderBundleEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateRenderBundleEncoder(&wgpu.RenderBundleEncoderDescriptor{
		Label:        label,
		ColorFormats: []wgpu.TextureFormat{d.surfaceFormat},
		SampleCount:  uint32(d.sampleCount),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create render bundle encoder %q: %w", device.ErrDevice, label, err)
	}
	return &bundleEncoder{recorder: recorder{native: encoder}, label: label, encoder: encoder}, nil
}

func (d *wgpuDevice) BeginFrame() (device.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// If a previous frame's surface texture is still held, do not acquire another one.
	if d.frameSurface != nil {
		return nil, fmt.Errorf("%w: previous frame surface not yet presented", device.ErrSubmission)
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire surface texture: %w", device.ErrSubmission, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: failed to create surface view: %w", device.ErrSubmission, err)
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: failed to create command encoder: %w", device.ErrSubmission, err)
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly and ResolveTarget is nil.
	if d.sampleCount > 1 {
		d.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		d.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(d.renderPassDescriptor)

	d.frameEncoder = encoder
	d.framePass = pass
	d.frameSurface = surfaceTexture
	d.frameView = view
	return &renderPass{recorder: recorder{native: pass}, pass: pass}, nil
}

func (d *wgpuDevice) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return fmt.Errorf("%w: no frame in progress", device.ErrSubmission)
	}
	d.framePass.End()
	d.framePass.Release()
	d.framePass = nil

	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.releaseFrameTarget()
		return fmt.Errorf("%w: failed to finish command encoder: %w", device.ErrSubmission, err)
	}

	d.queue.Submit(commandBuffer)
	commandBuffer.Release()

	d.surface.Present()
	d.releaseFrameTarget()
	return nil
}

func (d *wgpuDevice) releaseFrameTarget() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseFrameTarget()
	if d.msaaTextureView != nil {
		d.msaaTextureView.Release()
		d.msaaTextureView = nil
	}
	if d.msaaTexture != nil {
		d.msaaTexture.Release()
		d.msaaTexture = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
