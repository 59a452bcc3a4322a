package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/uniform_buffer"
)

// Bind group indices used by the triangle shader.
const (
	TimeGroupIndex     uint32 = 0
	InstanceGroupIndex uint32 = 1
)

// Layouts holds the two bind group layouts a provider instantiates its groups from.
type Layouts struct {
	// Time is the layout of group 0: one 4-byte uniform range.
	Time device.BindGroupLayout
	// Instance is the layout of group 1: one BindingRangeSize uniform range, static or dynamic.
	Instance device.BindGroupLayout
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	mode  BindingMode

	// The following fields are GPU allocated resources and must be released when no longer needed.

	// timeGroup views the time slot of the uniform buffer.
	timeGroup device.BindGroup
	// instanceGroups holds one group per instance in static mode, or the single reused group in dynamic mode.
	instanceGroups []device.BindGroup

	// The following fields describe the buffer the groups view. The provider does not own it.

	stride        uint64
	instanceCount int
	offsets       [][]uint32
}

// BindGroupProvider defines the interface for the set of bind groups one configuration draws with.
// Every group is a view into a single UniformBuffer; the provider owns the groups but not the buffer.
//
// Usage pattern:
//  1. Engine allocates and uploads a UniformBuffer
//  2. Engine calls NewBindGroupProvider with the layouts of the selected pipeline
//  3. The frame recorder binds TimeBindGroup once and InstanceBindGroup(i) per draw
//  4. Engine calls Release before the UniformBuffer is released
type BindGroupProvider interface {
	// Release releases every bind group held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Mode returns the binding strategy the groups were built for.
	//
	// Returns:
	//   - BindingMode: static or dynamic
	Mode() BindingMode

	// InstanceCount returns the number of instances the provider can bind.
	//
	// Returns:
	//   - int: the instance count
	InstanceCount() int

	// InstanceBindGroup returns the group to bind at InstanceGroupIndex for instance i, and the
	// dynamic offsets to pass with it. Static groups carry no offsets; the dynamic group carries
	// exactly one, i*stride.
	//
	// Parameters:
	//   - i: the instance index
	//
	// Returns:
	//   - device.BindGroup: the bind group
	//   - []uint32: the dynamic offsets, nil in static mode
	InstanceBindGroup(i int) (device.BindGroup, []uint32)

	// TimeBindGroup returns the group to bind once per frame at TimeGroupIndex.
	//
	// Returns:
	//   - device.BindGroup: the time bind group
	TimeBindGroup() device.BindGroup

	// LiveBindGroups returns how many bind groups the provider currently holds, including the time group.
	//
	// Returns:
	//   - int: the held group count
	LiveBindGroups() int
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates the bind groups for one configuration.
// Static mode creates one group per instance over [i*stride, i*stride+BindingRangeSize); dynamic mode
// creates a single group over [0, BindingRangeSize). Both create one time group over the time slot.
// If any creation fails, the groups created so far are released and none are returned.
//
// Parameters:
//   - dev: the device to create the groups on
//   - layouts: the layouts of the pipeline the groups will be used with
//   - ub: the uniform buffer the groups view
//   - mode: the binding strategy
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: the provider
//   - error: the first creation failure, wrapping device.ErrDevice
func NewBindGroupProvider(dev device.Device, layouts Layouts, ub uniform_buffer.UniformBuffer, mode BindingMode, options ...BindGroupProviderOption) (BindGroupProvider, error) {
	p := &bindGroupProvider{
		label:         "Triangles",
		mode:          mode,
		stride:        ub.Stride(),
		instanceCount: ub.InstanceCount(),
	}
	for _, opt := range options {
		opt(p)
	}
	if ub.Buffer() == nil {
		return nil, fmt.Errorf("%w: %s bind groups over a released uniform buffer", device.ErrDevice, p.label)
	}
	if uint64(p.instanceCount)*p.stride > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d slots of %d bytes exceed the dynamic offset range", device.ErrDevice, p.instanceCount, p.stride)
	}

	if err := p.build(dev, layouts, ub); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *bindGroupProvider) build(dev device.Device, layouts Layouts, ub uniform_buffer.UniformBuffer) error {
	timeGroup, err := dev.CreateBindGroup(device.BindGroupDescriptor{
		Label:  p.label + " Time Bind Group",
		Layout: layouts.Time,
		Entries: []device.BindGroupEntry{{
			Binding: 0,
			Buffer:  ub.Buffer(),
			Offset:  ub.TimeOffset(),
			Size:    uniform_buffer.TimeSize,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create time bind group: %w", err)
	}
	p.timeGroup = timeGroup

	switch {
	case p.instanceCount == 0:
		// Nothing to draw; the buffer only holds the time slot.

	case p.mode == BindingModeDynamic:
		group, err := dev.CreateBindGroup(device.BindGroupDescriptor{
			Label:  p.label + " Dynamic Bind Group",
			Layout: layouts.Instance,
			Entries: []device.BindGroupEntry{{
				Binding: 0,
				Buffer:  ub.Buffer(),
				Offset:  0,
				Size:    instance.BindingRangeSize,
			}},
		})
		if err != nil {
			return fmt.Errorf("failed to create dynamic bind group: %w", err)
		}
		p.instanceGroups = []device.BindGroup{group}
		p.offsets = make([][]uint32, p.instanceCount)
		for i := range p.offsets {
			p.offsets[i] = []uint32{uint32(ub.SlotOffset(i))}
		}

	default:
		p.instanceGroups = make([]device.BindGroup, 0, p.instanceCount)
		for i := 0; i < p.instanceCount; i++ {
			group, err := dev.CreateBindGroup(device.BindGroupDescriptor{
				Label:  fmt.Sprintf("%s Instance %d Bind Group", p.label, i),
				Layout: layouts.Instance,
				Entries: []device.BindGroupEntry{{
					Binding: 0,
					Buffer:  ub.Buffer(),
					Offset:  ub.SlotOffset(i),
					Size:    instance.BindingRangeSize,
				}},
			})
			if err != nil {
				return fmt.Errorf("failed to create bind group for instance %d: %w", i, err)
			}
			p.instanceGroups = append(p.instanceGroups, group)
		}
	}
	return nil
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Mode() BindingMode {
	return p.mode
}

func (p *bindGroupProvider) InstanceCount() int {
	return p.instanceCount
}

func (p *bindGroupProvider) InstanceBindGroup(i int) (device.BindGroup, []uint32) {
	if p.mode == BindingModeDynamic {
		return p.instanceGroups[0], p.offsets[i]
	}
	return p.instanceGroups[i], nil
}

func (p *bindGroupProvider) TimeBindGroup() device.BindGroup {
	return p.timeGroup
}

func (p *bindGroupProvider) LiveBindGroups() int {
	n := len(p.instanceGroups)
	if p.timeGroup != nil {
		n++
	}
	return n
}

func (p *bindGroupProvider) Release() {
	for _, g := range p.instanceGroups {
		if g != nil {
			g.Release()
		}
	}
	p.instanceGroups = nil
	p.offsets = nil

	if p.timeGroup != nil {
		p.timeGroup.Release()
		p.timeGroup = nil
	}
}
