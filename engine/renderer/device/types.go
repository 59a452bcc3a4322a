package device

// BufferUsage is a bit set describing how a Buffer will be used by the device.
type BufferUsage uint32

const (
	// BufferUsageCopyDst allows the buffer to be the destination of queue writes.
	BufferUsageCopyDst BufferUsage = 1 << iota

	// BufferUsageVertex allows the buffer to be bound as a vertex buffer.
	BufferUsageVertex

	// BufferUsageUniform allows ranges of the buffer to be bound as uniform bindings.
	BufferUsageUniform
)

// Has reports whether every bit of flag is set on u.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// ShaderStage is a bit set of programmable stages a binding is visible to.
type ShaderStage uint32

const (
	// ShaderStageVertex makes a binding visible to the vertex stage.
	ShaderStageVertex ShaderStage = 1 << iota

	// ShaderStageFragment makes a binding visible to the fragment stage.
	ShaderStageFragment
)

// VertexFormat identifies the layout of a single vertex attribute.
type VertexFormat int

const (
	// VertexFormatFloat32x4 is four little-endian float32 values (16 bytes).
	VertexFormatFloat32x4 VertexFormat = iota
)

// Size returns the byte size of one attribute of this format.
func (f VertexFormat) Size() uint64 {
	switch f {
	case VertexFormatFloat32x4:
		return 16
	default:
		return 0
	}
}

// Limits carries the device limits that influence uniform layout decisions.
type Limits struct {
	// MinUniformBufferOffsetAlignment is the granularity required for static and dynamic uniform offsets.
	MinUniformBufferOffsetAlignment uint32
	// MaxUniformBufferBindingSize is the largest range a single uniform binding may cover.
	MaxUniformBufferBindingSize uint64
	// MaxBufferSize is the largest buffer the device will allocate.
	MaxBufferSize uint64
}

// DefaultLimits returns the WebGPU baseline limits.
func DefaultLimits() Limits {
	return Limits{
		MinUniformBufferOffsetAlignment: 256,
		MaxUniformBufferBindingSize:     64 << 10,
		MaxBufferSize:                   256 << 20,
	}
}

// BufferDescriptor describes a buffer allocation.
type BufferDescriptor struct {
	Label            string
	Size             uint64
	Usage            BufferUsage
	MappedAtCreation bool
	// Contents, when non-nil, is copied into the buffer at creation. Size may be left at zero
	// to use len(Contents).
	Contents []byte
}

// BindGroupLayoutEntry describes one uniform buffer binding slot.
type BindGroupLayoutEntry struct {
	Binding          uint32
	Visibility       ShaderStage
	HasDynamicOffset bool
	MinBindingSize   uint64
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry binds a byte range of a Buffer to a layout slot.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor describes a bind group instantiated from a layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// VertexAttribute describes one attribute inside a vertex buffer stride.
type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint64
	ShaderLocation uint32
}

// VertexBufferLayout describes the per-vertex layout of one vertex buffer slot.
type VertexBufferLayout struct {
	ArrayStride uint64
	Attributes  []VertexAttribute
}

// RenderPipelineDescriptor describes a triangle-list render pipeline with one color target.
type RenderPipelineDescriptor struct {
	Label              string
	Layout             PipelineLayout
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []VertexBufferLayout
}
