package instance

import (
	"encoding/binary"
	"math"
)

const (
	// LogicalSize is the number of meaningful bytes per instance: five float32 fields.
	LogicalSize = 20

	// BindingRangeSize is the byte range each instance binding covers. It is wider than
	// LogicalSize to meet the minimum uniform range size; the sixth float is never written.
	BindingRangeSize = 24

	// AlignmentUnit is the granularity of static and dynamic uniform offsets.
	AlignmentUnit = 256
)

// Stride is the aligned per-instance slot size in the uniform buffer: LogicalSize rounded up to
// AlignmentUnit.
const Stride uint64 = 256

// GPUInstanceParams holds the animation parameters of one triangle.
// Matches the WGSL Uniforms struct of the triangle shader (5 × f32, 20 bytes).
type GPUInstanceParams struct {
	Scale        float32 // offset  0
	OffsetX      float32 // offset  4
	OffsetY      float32 // offset  8
	Scalar       float32 // offset 12
	ScalarOffset float32 // offset 16
}

// Marshal serializes the parameters into LogicalSize little-endian bytes.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (p *GPUInstanceParams) Marshal() []byte {
	buf := make([]byte, LogicalSize)
	p.MarshalInto(buf)
	return buf
}

// MarshalInto writes the parameters into the first LogicalSize bytes of dst.
func (p *GPUInstanceParams) MarshalInto(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(p.Scale))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(p.OffsetX))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(p.OffsetY))
	binary.LittleEndian.PutUint32(dst[12:16], math.Float32bits(p.Scalar))
	binary.LittleEndian.PutUint32(dst[16:20], math.Float32bits(p.ScalarOffset))
}

// ReadParamsAt decodes parameters from the first LogicalSize bytes of data.
//
// Parameters:
//   - data: at least LogicalSize bytes
//
// Returns:
//   - GPUInstanceParams: the decoded parameters
func ReadParamsAt(data []byte) GPUInstanceParams {
	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
	}
	return GPUInstanceParams{
		Scale:        f(0),
		OffsetX:      f(4),
		OffsetY:      f(8),
		Scalar:       f(12),
		ScalarOffset: f(16),
	}
}
