package device

import (
	"fmt"
	"sync"
)

// Operation names a Device call that a RecordingDevice can be told to fail.
type Operation string

const (
	OpCreateBuffer              Operation = "CreateBuffer"
	OpWriteBuffer               Operation = "WriteBuffer"
	OpCreateShaderModule        Operation = "CreateShaderModule"
	OpCreateBindGroupLayout     Operation = "CreateBindGroupLayout"
	OpCreatePipelineLayout      Operation = "CreatePipelineLayout"
	OpCreateRenderPipeline      Operation = "CreateRenderPipeline"
	OpCreateBindGroup           Operation = "CreateBindGroup"
	OpCreateRenderBundleEncoder Operation = "CreateRenderBundleEncoder"
	OpFinishRenderBundle        Operation = "FinishRenderBundle"
	OpBeginFrame                Operation = "BeginFrame"
	OpEndFrame                  Operation = "EndFrame"
)

// ResourceKind classifies the objects tracked by a RecordingDevice.
type ResourceKind int

const (
	KindBuffer ResourceKind = iota
	KindBindGroupLayout
	KindPipelineLayout
	KindShaderModule
	KindRenderPipeline
	KindBindGroup
	KindRenderBundle
)

// CommandOp identifies a recorded render command.
type CommandOp int

const (
	CommandSetPipeline CommandOp = iota
	CommandSetVertexBuffer
	CommandSetBindGroup
	CommandDraw
	CommandExecuteBundles
)

// Command is one recorded render command. Only the fields relevant to Op are set.
type Command struct {
	Op             CommandOp
	Pipeline       RenderPipeline
	Slot           uint32
	Buffer         Buffer
	Index          uint32
	BindGroup      BindGroup
	DynamicOffsets []uint32
	VertexCount    uint32
	InstanceCount  uint32
	FirstVertex    uint32
	FirstInstance  uint32
	Bundles        []RenderBundle
}

// BufferWriteRecord is one queue write observed by a RecordingDevice.
type BufferWriteRecord struct {
	Buffer Buffer
	Offset uint64
	Data   []byte
}

// Frame is one submitted frame: the commands recorded between BeginFrame and EndFrame.
type Frame struct {
	Commands []Command
}

// RecordingDevice is a headless Device. It keeps buffer contents on the host, validates bind
// group ranges the way a WebGPU implementation would, records every command and submitted frame,
// and tracks which objects are still alive.
type RecordingDevice struct {
	mu *sync.Mutex

	limits  Limits
	nextID  int
	objects []*recResource
	writes  []BufferWriteRecord
	frames  []Frame

	openPass *recPass
	failures map[Operation]int
}

var _ Device = &RecordingDevice{}

// NewRecordingDevice creates a RecordingDevice with DefaultLimits unless overridden.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - *RecordingDevice: the device
func NewRecordingDevice(options ...RecordingDeviceOption) *RecordingDevice {
	d := &RecordingDevice{
		mu:       &sync.Mutex{},
		limits:   DefaultLimits(),
		failures: make(map[Operation]int),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// FailOn makes the call to op fail once afterCalls further calls have succeeded.
// A failure fires once and then disarms.
//
// Parameters:
//   - op: the operation to fail
//   - afterCalls: how many calls to let through first
func (d *RecordingDevice) FailOn(op Operation, afterCalls int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = afterCalls
}

// shouldFail must be called with mu held.
func (d *RecordingDevice) shouldFail(op Operation) bool {
	remaining, armed := d.failures[op]
	if !armed {
		return false
	}
	if remaining == 0 {
		delete(d.failures, op)
		return true
	}
	d.failures[op] = remaining - 1
	return false
}

func injected(sentinel error, op Operation) error {
	return fmt.Errorf("%w: injected failure on %s", sentinel, op)
}

func (d *RecordingDevice) track(kind ResourceKind, label string) *recResource {
	d.nextID++
	r := &recResource{id: d.nextID, kind: kind, label: label, mu: d.mu}
	d.objects = append(d.objects, r)
	return r
}

func (d *RecordingDevice) Limits() Limits {
	return d.limits
}

func (d *RecordingDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateBuffer) {
		return nil, injected(ErrDevice, OpCreateBuffer)
	}
	size := desc.Size
	if size == 0 {
		size = uint64(len(desc.Contents))
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrDevice, desc.Label)
	}
	if size > d.limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: buffer %q size %d exceeds limit %d", ErrDevice, desc.Label, size, d.limits.MaxBufferSize)
	}
	if uint64(len(desc.Contents)) > size {
		return nil, fmt.Errorf("%w: buffer %q contents larger than size", ErrDevice, desc.Label)
	}

	b := &recBuffer{
		recResource: d.track(KindBuffer, desc.Label),
		usage:       desc.Usage,
		data:        make([]byte, size),
	}
	copy(b.data, desc.Contents)
	return b, nil
}

func (d *RecordingDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpWriteBuffer) {
		return injected(ErrDevice, OpWriteBuffer)
	}
	b, ok := buf.(*recBuffer)
	if !ok || b.released {
		return fmt.Errorf("%w: write to unknown or released buffer", ErrDevice)
	}
	if !b.usage.Has(BufferUsageCopyDst) {
		return fmt.Errorf("%w: buffer %q lacks CopyDst usage", ErrDevice, b.label)
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("%w: write to %q at %d of %d bytes is not 4-byte aligned", ErrDevice, b.label, offset, len(data))
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write to %q overruns buffer (%d+%d > %d)", ErrDevice, b.label, offset, len(data), len(b.data))
	}

	copy(b.data[offset:], data)
	d.writes = append(d.writes, BufferWriteRecord{
		Buffer: b,
		Offset: offset,
		Data:   append([]byte(nil), data...),
	})
	return nil
}

func (d *RecordingDevice) CreateShaderModule(label, source string) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateShaderModule) {
		return nil, injected(ErrDevice, OpCreateShaderModule)
	}
	if source == "" {
		return nil, fmt.Errorf("%w: shader module %q has no source", ErrDevice, label)
	}
	return &recShaderModule{recResource: d.track(KindShaderModule, label), source: source}, nil
}

func (d *RecordingDevice) CreateBindGroupLayout(desc BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateBindGroupLayout) {
		return nil, injected(ErrDevice, OpCreateBindGroupLayout)
	}
	return &recBindGroupLayout{recResource: d.track(KindBindGroupLayout, desc.Label), desc: desc}, nil
}

func (d *RecordingDevice) CreatePipelineLayout(label string, layouts []BindGroupLayout) (PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreatePipelineLayout) {
		return nil, injected(ErrDevice, OpCreatePipelineLayout)
	}
	for i, l := range layouts {
		if _, ok := l.(*recBindGroupLayout); !ok {
			return nil, fmt.Errorf("%w: pipeline layout %q group %d is not a bind group layout", ErrDevice, label, i)
		}
	}
	return &recPipelineLayout{
		recResource: d.track(KindPipelineLayout, label),
		layouts:     append([]BindGroupLayout(nil), layouts...),
	}, nil
}

func (d *RecordingDevice) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateRenderPipeline) {
		return nil, injected(ErrDevice, OpCreateRenderPipeline)
	}
	if desc.Layout == nil || desc.Module == nil {
		return nil, fmt.Errorf("%w: render pipeline %q needs a layout and a module", ErrDevice, desc.Label)
	}
	return &recRenderPipeline{recResource: d.track(KindRenderPipeline, desc.Label), desc: desc}, nil
}

func (d *RecordingDevice) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateBindGroup) {
		return nil, injected(ErrDevice, OpCreateBindGroup)
	}
	layout, ok := desc.Layout.(*recBindGroupLayout)
	if !ok || layout.released {
		return nil, fmt.Errorf("%w: bind group %q has no valid layout", ErrDevice, desc.Label)
	}
	if len(desc.Entries) != len(layout.desc.Entries) {
		return nil, fmt.Errorf("%w: bind group %q has %d entries, layout expects %d", ErrDevice, desc.Label, len(desc.Entries), len(layout.desc.Entries))
	}
	for i, e := range desc.Entries {
		le := layout.desc.Entries[i]
		b, ok := e.Buffer.(*recBuffer)
		if !ok || b.released {
			return nil, fmt.Errorf("%w: bind group %q binding %d references an unknown or released buffer", ErrDevice, desc.Label, e.Binding)
		}
		if !b.usage.Has(BufferUsageUniform) {
			return nil, fmt.Errorf("%w: bind group %q binding %d buffer lacks Uniform usage", ErrDevice, desc.Label, e.Binding)
		}
		if e.Offset%uint64(d.limits.MinUniformBufferOffsetAlignment) != 0 {
			return nil, fmt.Errorf("%w: bind group %q binding %d offset %d is not %d-aligned", ErrDevice, desc.Label, e.Binding, e.Offset, d.limits.MinUniformBufferOffsetAlignment)
		}
		if e.Size < le.MinBindingSize {
			return nil, fmt.Errorf("%w: bind group %q binding %d size %d below minimum %d", ErrDevice, desc.Label, e.Binding, e.Size, le.MinBindingSize)
		}
		if e.Size > d.limits.MaxUniformBufferBindingSize {
			return nil, fmt.Errorf("%w: bind group %q binding %d size %d above maximum", ErrDevice, desc.Label, e.Binding, e.Size)
		}
		if e.Offset+e.Size > uint64(len(b.data)) {
			return nil, fmt.Errorf("%w: bind group %q binding %d range %d+%d exceeds buffer size %d", ErrDevice, desc.Label, e.Binding, e.Offset, e.Size, len(b.data))
		}
	}
	g := &recBindGroup{
		recResource: d.track(KindBindGroup, desc.Label),
		layout:      layout,
		entries:     append([]BindGroupEntry(nil), desc.Entries...),
	}
	g.owner = g
	return g, nil
}

func (d *RecordingDevice) CreateRenderBundleEncoder(label string) (RenderBundleEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpCreateRenderBundleEncoder) {
		return nil, injected(ErrDevice, OpCreateRenderBundleEncoder)
	}
	return &recBundleEncoder{device: d, label: label}, nil
}

func (d *RecordingDevice) BeginFrame() (RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.shouldFail(OpBeginFrame) {
		return nil, injected(ErrSubmission, OpBeginFrame)
	}
	if d.openPass != nil {
		return nil, fmt.Errorf("%w: previous frame not ended", ErrSubmission)
	}
	d.openPass = &recPass{}
	return d.openPass, nil
}

func (d *RecordingDevice) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	pass := d.openPass
	d.openPass = nil
	if pass == nil {
		return fmt.Errorf("%w: no frame in progress", ErrSubmission)
	}
	if d.shouldFail(OpEndFrame) {
		return injected(ErrSubmission, OpEndFrame)
	}
	if err := pass.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	d.frames = append(d.frames, Frame{Commands: pass.commands})
	return nil
}

// Frames returns every frame submitted so far.
func (d *RecordingDevice) Frames() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Frame(nil), d.frames...)
}

// Writes returns every queue write observed so far, in issue order.
func (d *RecordingDevice) Writes() []BufferWriteRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]BufferWriteRecord(nil), d.writes...)
}

// ResetLogs clears the recorded writes and frames but keeps every object.
func (d *RecordingDevice) ResetLogs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
	d.frames = nil
}

// BufferData returns a copy of the host-side contents of buf.
//
// Parameters:
//   - buf: a buffer created by this device
//
// Returns:
//   - []byte: the buffer bytes, or nil if buf is not a recording buffer
func (d *RecordingDevice) BufferData(buf Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := buf.(*recBuffer)
	if !ok {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// BindGroupEntries returns the buffer ranges bound by group.
//
// Parameters:
//   - group: a bind group created by this device
//
// Returns:
//   - []BindGroupEntry: the entries, or nil if group is not a recording bind group
func (d *RecordingDevice) BindGroupEntries(group BindGroup) []BindGroupEntry {
	g, ok := group.(*recBindGroup)
	if !ok {
		return nil
	}
	return append([]BindGroupEntry(nil), g.entries...)
}

// LayoutEntries returns the slots declared by the layout group was created from.
func (d *RecordingDevice) LayoutEntries(group BindGroup) []BindGroupLayoutEntry {
	g, ok := group.(*recBindGroup)
	if !ok {
		return nil
	}
	return append([]BindGroupLayoutEntry(nil), g.layout.desc.Entries...)
}

// LiveCount returns how many objects of kind have been created and not released.
func (d *RecordingDevice) LiveCount(kind ResourceKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.objects {
		if o.kind == kind && !o.released {
			n++
		}
	}
	return n
}

// IsReleased reports whether r, created by this device, has been released.
func (d *RecordingDevice) IsReleased(r Resource) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h, ok := r.(interface{ resource() *recResource }); ok {
		return h.resource().released
	}
	return false
}

// LiveReferences returns the number of live bind groups with at least one entry on buf.
func (d *RecordingDevice) LiveReferences(buf Buffer) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.objects {
		if o.kind != KindBindGroup || o.released {
			continue
		}
		for _, e := range o.owner.(*recBindGroup).entries {
			if e.Buffer == buf {
				n++
				break
			}
		}
	}
	return n
}

// ExpandBundles returns cmds with every ExecuteBundles command replaced by the bundle contents.
//
// Parameters:
//   - cmds: the recorded commands
//
// Returns:
//   - []Command: the flattened command stream
func ExpandBundles(cmds []Command) []Command {
	out := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Op != CommandExecuteBundles {
			out = append(out, c)
			continue
		}
		for _, b := range c.Bundles {
			if rb, ok := b.(*recBundle); ok {
				out = append(out, rb.commands...)
			}
		}
	}
	return out
}

type recResource struct {
	mu       *sync.Mutex
	id       int
	kind     ResourceKind
	label    string
	released bool
	owner    any
}

func (r *recResource) Label() string { return r.label }

func (r *recResource) Release() {
	r.mu.Lock()
	r.released = true
	r.mu.Unlock()
}

func (r *recResource) resource() *recResource { return r }

type recBuffer struct {
	*recResource
	usage BufferUsage
	data  []byte
}

func (b *recBuffer) Size() uint64 { return uint64(len(b.data)) }

type recShaderModule struct {
	*recResource
	source string
}

type recBindGroupLayout struct {
	*recResource
	desc BindGroupLayoutDescriptor
}

type recPipelineLayout struct {
	*recResource
	layouts []BindGroupLayout
}

type recRenderPipeline struct {
	*recResource
	desc RenderPipelineDescriptor
}

type recBindGroup struct {
	*recResource
	layout  *recBindGroupLayout
	entries []BindGroupEntry
}

type recBundle struct {
	*recResource
	commands []Command
}

type recEncoder struct {
	commands []Command
}

func (e *recEncoder) SetPipeline(p RenderPipeline) {
	e.commands = append(e.commands, Command{Op: CommandSetPipeline, Pipeline: p})
}

func (e *recEncoder) SetVertexBuffer(slot uint32, buf Buffer) {
	e.commands = append(e.commands, Command{Op: CommandSetVertexBuffer, Slot: slot, Buffer: buf})
}

func (e *recEncoder) SetBindGroup(index uint32, group BindGroup, dynamicOffsets []uint32) {
	e.commands = append(e.commands, Command{
		Op:             CommandSetBindGroup,
		Index:          index,
		BindGroup:      group,
		DynamicOffsets: append([]uint32(nil), dynamicOffsets...),
	})
}

func (e *recEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.commands = append(e.commands, Command{
		Op:            CommandDraw,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// validate checks that every referenced object is alive and every dynamic offset stays in range.
func (e *recEncoder) validate() error {
	for i, c := range ExpandBundles(e.commands) {
		switch c.Op {
		case CommandSetPipeline:
			if p, ok := c.Pipeline.(*recRenderPipeline); !ok || p.released {
				return fmt.Errorf("command %d binds an unknown or released pipeline", i)
			}
		case CommandSetVertexBuffer:
			if b, ok := c.Buffer.(*recBuffer); !ok || b.released {
				return fmt.Errorf("command %d binds an unknown or released vertex buffer", i)
			}
		case CommandSetBindGroup:
			g, ok := c.BindGroup.(*recBindGroup)
			if !ok || g.released {
				return fmt.Errorf("command %d binds an unknown or released bind group", i)
			}
			dynamic := 0
			for j, le := range g.layout.desc.Entries {
				entry := g.entries[j]
				if entry.Buffer.(*recBuffer).released {
					return fmt.Errorf("command %d binds group %q over a released buffer", i, g.label)
				}
				if !le.HasDynamicOffset {
					continue
				}
				if dynamic >= len(c.DynamicOffsets) {
					return fmt.Errorf("command %d is missing a dynamic offset for group %q", i, g.label)
				}
				off := uint64(c.DynamicOffsets[dynamic])
				if entry.Offset+off+entry.Size > entry.Buffer.Size() {
					return fmt.Errorf("command %d dynamic offset %d overruns group %q", i, off, g.label)
				}
				dynamic++
			}
			if dynamic != len(c.DynamicOffsets) {
				return fmt.Errorf("command %d passes %d dynamic offsets, group %q declares %d", i, len(c.DynamicOffsets), g.label, dynamic)
			}
		}
	}
	return nil
}

type recPass struct {
	recEncoder
}

func (p *recPass) ExecuteBundles(bundles ...RenderBundle) {
	p.commands = append(p.commands, Command{
		Op:      CommandExecuteBundles,
		Bundles: append([]RenderBundle(nil), bundles...),
	})
}

type recBundleEncoder struct {
	recEncoder
	device   *RecordingDevice
	label    string
	finished bool
}

func (e *recBundleEncoder) Finish() (RenderBundle, error) {
	d := e.device
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.finished {
		return nil, fmt.Errorf("%w: render bundle %q already finished", ErrDevice, e.label)
	}
	e.finished = true
	if d.shouldFail(OpFinishRenderBundle) {
		return nil, injected(ErrDevice, OpFinishRenderBundle)
	}
	return &recBundle{recResource: d.track(KindRenderBundle, e.label), commands: e.commands}, nil
}
