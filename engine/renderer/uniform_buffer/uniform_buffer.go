// Package uniform_buffer owns the single uniform buffer holding every instance slot followed by
// the shared time scalar.
package uniform_buffer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
)

// TimeSize is the byte size of the time slot.
const TimeSize = 4

// uniformBuffer is the implementation of the UniformBuffer interface.
type uniformBuffer struct {
	label           string
	dev             device.Device
	buffer          device.Buffer
	instanceCount   int
	stride          uint64
	transferCeiling uint64
}

// UniformBuffer defines the interface for the device buffer backing the instance table and time slot.
// Layout: instanceCount slots of Stride bytes, then TimeSize bytes of time at TimeOffset.
// The buffer is sized once at Allocate and never resized; a new configuration allocates a new one.
type UniformBuffer interface {
	// Buffer retrieves the underlying device buffer.
	//
	// Returns:
	//   - device.Buffer: the buffer, or nil after Release
	Buffer() device.Buffer

	// Size returns the allocated size in bytes: InstanceCount()*Stride()+TimeSize.
	//
	// Returns:
	//   - uint64: the size in bytes
	Size() uint64

	// InstanceCount returns the number of instance slots.
	//
	// Returns:
	//   - int: the slot count
	InstanceCount() int

	// Stride returns the aligned slot size.
	//
	// Returns:
	//   - uint64: the slot size in bytes
	Stride() uint64

	// SlotOffset returns the byte offset of instance slot i.
	//
	// Parameters:
	//   - i: the instance index
	//
	// Returns:
	//   - uint64: i*Stride()
	SlotOffset(i int) uint64

	// TimeOffset returns the byte offset of the time slot, immediately after the last instance slot.
	//
	// Returns:
	//   - uint64: InstanceCount()*Stride()
	TimeOffset() uint64

	// Upload writes src at dstOffset, split into chunks no larger than the transfer ceiling.
	//
	// Parameters:
	//   - dstOffset: the destination byte offset
	//   - src: the payload
	//
	// Returns:
	//   - int: the number of queue writes issued
	//   - error: the first write failure, wrapping device.ErrDevice
	Upload(dstOffset uint64, src []byte) (int, error)

	// WriteTime writes seconds to the time slot as a single 4-byte write.
	//
	// Parameters:
	//   - seconds: the elapsed time
	//
	// Returns:
	//   - error: the write failure, if any
	WriteTime(seconds float32) error

	// Release frees the device buffer.
	Release()
}

var _ UniformBuffer = &uniformBuffer{}

// Allocate creates a uniform buffer of instanceCount*stride+TimeSize bytes with Uniform and CopyDst usage.
//
// Parameters:
//   - dev: the device to allocate on
//   - instanceCount: the number of instance slots
//   - stride: the aligned slot size
//   - options: functional options to configure the buffer
//
// Returns:
//   - UniformBuffer: the allocated buffer
//   - error: wraps device.ErrDevice if the device rejects the allocation
func Allocate(dev device.Device, instanceCount int, stride uint64, options ...UniformBufferOption) (UniformBuffer, error) {
	u := &uniformBuffer{
		label:           "Uniform Buffer",
		dev:             dev,
		instanceCount:   instanceCount,
		stride:          stride,
		transferCeiling: DefaultTransferCeiling,
	}
	for _, opt := range options {
		opt(u)
	}
	if instanceCount < 0 {
		return nil, fmt.Errorf("%w: negative instance count %d", device.ErrDevice, instanceCount)
	}

	buf, err := dev.CreateBuffer(device.BufferDescriptor{
		Label: u.label,
		Size:  u.Size(),
		Usage: device.BufferUsageUniform | device.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %s of %d bytes: %w", u.label, u.Size(), err)
	}
	u.buffer = buf
	return u, nil
}

func (u *uniformBuffer) Buffer() device.Buffer {
	return u.buffer
}

func (u *uniformBuffer) Size() uint64 {
	return u.TimeOffset() + TimeSize
}

func (u *uniformBuffer) InstanceCount() int {
	return u.instanceCount
}

func (u *uniformBuffer) Stride() uint64 {
	return u.stride
}

func (u *uniformBuffer) SlotOffset(i int) uint64 {
	return uint64(i) * u.stride
}

func (u *uniformBuffer) TimeOffset() uint64 {
	return uint64(u.instanceCount) * u.stride
}

func (u *uniformBuffer) Upload(dstOffset uint64, src []byte) (int, error) {
	if u.buffer == nil {
		return 0, fmt.Errorf("%w: upload to released %s", device.ErrDevice, u.label)
	}
	writes := SplitTransfers(dstOffset, src, u.transferCeiling)
	for i, w := range writes {
		if err := u.dev.WriteBuffer(u.buffer, w.Offset, w.Data); err != nil {
			return i, fmt.Errorf("failed to upload chunk %d/%d at offset %d: %w", i+1, len(writes), w.Offset, err)
		}
	}
	return len(writes), nil
}

func (u *uniformBuffer) WriteTime(seconds float32) error {
	if u.buffer == nil {
		return fmt.Errorf("%w: time write to released %s", device.ErrDevice, u.label)
	}
	var data [TimeSize]byte
	binary.LittleEndian.PutUint32(data[:], math.Float32bits(seconds))
	return u.dev.WriteBuffer(u.buffer, u.TimeOffset(), data[:])
}

func (u *uniformBuffer) Release() {
	if u.buffer != nil {
		u.buffer.Release()
		u.buffer = nil
	}
}
