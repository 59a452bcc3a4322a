// Package device defines the graphics device contract the benchmark core renders through.
// The wgpu_device package implements it on top of WebGPU; RecordingDevice implements it
// headlessly for tests and CPU-only submission benchmarks.
package device

// Resource is the common surface of every object created by a Device.
type Resource interface {
	// Label returns the debug label the resource was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Release frees the underlying GPU object. Calling Release more than once is a no-op.
	Release()
}

// Buffer is a device-resident byte buffer.
type Buffer interface {
	Resource

	// Size returns the allocated size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the buffer size
	Size() uint64
}

// BindGroupLayout describes the binding slots of a bind group.
type BindGroupLayout interface{ Resource }

// PipelineLayout is the ordered set of bind group layouts a pipeline is compiled against.
type PipelineLayout interface{ Resource }

// ShaderModule is a compiled shader program.
type ShaderModule interface{ Resource }

// RenderPipeline is a compiled render pipeline.
type RenderPipeline interface{ Resource }

// BindGroup is a set of buffer ranges bound to the slots of a BindGroupLayout. A bind group
// references its buffers; it does not own them.
type BindGroup interface{ Resource }

// RenderBundle is a pre-recorded, replayable command sequence.
type RenderBundle interface{ Resource }

// CommandRecorder is the command surface shared by render passes and render bundle encoders.
type CommandRecorder interface {
	// SetPipeline binds the render pipeline used by subsequent draws.
	//
	// Parameters:
	//   - p: the pipeline to bind
	SetPipeline(p RenderPipeline)

	// SetVertexBuffer binds the whole of buf to the given vertex buffer slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the vertex buffer
	SetVertexBuffer(slot uint32, buf Buffer)

	// SetBindGroup binds group at the given group index.
	//
	// Parameters:
	//   - index: the bind group index in the pipeline layout
	//   - group: the bind group
	//   - dynamicOffsets: one offset per dynamic binding in the group, nil for static groups
	SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32)

	// Draw issues a non-indexed draw.
	//
	// Parameters:
	//   - vertexCount: the number of vertices to draw
	//   - instanceCount: the number of instances to draw
	//   - firstVertex: the first vertex index
	//   - firstInstance: the first instance index
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// RenderPass records commands against the current presentation target.
type RenderPass interface {
	CommandRecorder

	// ExecuteBundles replays previously recorded render bundles inside this pass.
	//
	// Parameters:
	//   - bundles: the bundles to execute, in order
	ExecuteBundles(bundles ...RenderBundle)
}

// RenderBundleEncoder records commands into a RenderBundle.
type RenderBundleEncoder interface {
	CommandRecorder

	// Finish completes recording and returns the bundle. The encoder cannot be used afterwards.
	//
	// Returns:
	//   - RenderBundle: the recorded bundle
	//   - error: an error wrapping ErrDevice if the bundle could not be finished
	Finish() (RenderBundle, error)
}

// Device is the graphics device collaborator. Every creation method returns an error wrapping
// ErrDevice on rejection; BeginFrame and EndFrame return errors wrapping ErrSubmission.
type Device interface {
	// Limits returns the device limits relevant to uniform buffer layout.
	//
	// Returns:
	//   - Limits: the device limits
	Limits() Limits

	// CreateBuffer allocates a buffer, optionally initialized with descriptor contents.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the device rejected the allocation
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer enqueues a host-to-device copy of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: an error if the write was rejected
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateShaderModule compiles WGSL source text.
	//
	// Parameters:
	//   - label: the debug label
	//   - source: the WGSL source
	//
	// Returns:
	//   - ShaderModule: the compiled module
	//   - error: an error if compilation was rejected
	CreateShaderModule(label, source string) (ShaderModule, error)

	// CreateBindGroupLayout creates a bind group layout.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - BindGroupLayout: the created layout
	//   - error: an error if the layout was rejected
	CreateBindGroupLayout(desc BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts ordered by group index.
	//
	// Parameters:
	//   - label: the debug label
	//   - layouts: the bind group layouts, index i is group i
	//
	// Returns:
	//   - PipelineLayout: the created layout
	//   - error: an error if the layout was rejected
	CreatePipelineLayout(label string, layouts []BindGroupLayout) (PipelineLayout, error)

	// CreateRenderPipeline creates a render pipeline targeting the presentation format.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the created pipeline
	//   - error: an error if the pipeline was rejected
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateBindGroup creates a bind group referencing buffer ranges.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroup: the created bind group
	//   - error: an error if the bind group was rejected
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// CreateRenderBundleEncoder starts recording a render bundle compatible with the main render pass.
	//
	// Parameters:
	//   - label: the debug label
	//
	// Returns:
	//   - RenderBundleEncoder: the encoder
	//   - error: an error if the encoder could not be created
	CreateRenderBundleEncoder(label string) (RenderBundleEncoder, error)

	// BeginFrame acquires the current presentation target and begins the main render pass.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - RenderPass: the pass to record into
	//   - error: an error if the target or encoder could not be acquired
	BeginFrame() (RenderPass, error)

	// EndFrame ends the render pass, submits the command buffer and presents the target.
	//
	// Returns:
	//   - error: an error if finishing or submitting failed
	EndFrame() error
}
