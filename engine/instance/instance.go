// Package instance builds the host-side table of per-triangle animation parameters.
// Each instance occupies one aligned slot so that its range can be bound at a fixed or dynamic
// offset; only the first LogicalSize bytes of a slot carry data.
package instance

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// ErrInvalidTable is returned when a table cannot be built or read with the given shape.
var ErrInvalidTable = errors.New("invalid instance table")

// Parameter ranges, each sampled uniformly as [min, max).
const (
	ScaleMin, ScaleMax               = 0.2, 0.4
	OffsetMin, OffsetMax             = -0.9, 0.9
	ScalarMin, ScalarMax             = 0.5, 2.0
	ScalarOffsetMin, ScalarOffsetMax = 0.0, 10.0
)

// AlignedStride returns the smallest multiple of unit that is not smaller than logicalSize.
//
// Parameters:
//   - logicalSize: the meaningful bytes per slot
//   - unit: the alignment granularity
//
// Returns:
//   - uint64: the aligned slot size
func AlignedStride(logicalSize, unit uint64) uint64 {
	return common.AlignUp(logicalSize, unit)
}

func uniform(rng *rand.Rand, lo, hi float64) float32 {
	return float32(lo + rng.Float64()*(hi-lo))
}

// RandomParams draws one parameter set from rng within the documented ranges.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - GPUInstanceParams: the sampled parameters
func RandomParams(rng *rand.Rand) GPUInstanceParams {
	return GPUInstanceParams{
		Scale:        uniform(rng, ScaleMin, ScaleMax),
		OffsetX:      uniform(rng, OffsetMin, OffsetMax),
		OffsetY:      uniform(rng, OffsetMin, OffsetMax),
		Scalar:       uniform(rng, ScalarMin, ScalarMax),
		ScalarOffset: uniform(rng, ScalarOffsetMin, ScalarOffsetMax),
	}
}

// BuildTable packs count random parameter sets into a byte slice of count*stride bytes.
// Instance i occupies [i*stride, (i+1)*stride); padding bytes are left zero.
//
// Parameters:
//   - count: the number of instances, zero or more
//   - stride: the slot size, a multiple of AlignmentUnit no smaller than BindingRangeSize
//   - rng: the random source
//
// Returns:
//   - []byte: the packed table
//   - error: wraps ErrInvalidTable if count or stride is out of range
func BuildTable(count int, stride uint64, rng *rand.Rand) ([]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative instance count %d", ErrInvalidTable, count)
	}
	if stride < BindingRangeSize || stride%AlignmentUnit != 0 {
		return nil, fmt.Errorf("%w: stride %d is not a multiple of %d covering %d bytes", ErrInvalidTable, stride, AlignmentUnit, BindingRangeSize)
	}

	table := make([]byte, uint64(count)*stride)
	for i := 0; i < count; i++ {
		p := RandomParams(rng)
		p.MarshalInto(table[uint64(i)*stride:])
	}
	return table, nil
}

// ReadParams decodes the parameters of instance index from a table built with stride.
//
// Parameters:
//   - table: the packed table
//   - stride: the slot size the table was built with
//   - index: the instance index
//
// Returns:
//   - GPUInstanceParams: the decoded parameters
//   - error: wraps ErrInvalidTable if the slot lies outside the table
func ReadParams(table []byte, stride uint64, index int) (GPUInstanceParams, error) {
	if index < 0 || stride < LogicalSize || uint64(index+1)*stride > uint64(len(table)) {
		return GPUInstanceParams{}, fmt.Errorf("%w: slot %d with stride %d outside %d-byte table", ErrInvalidTable, index, stride, len(table))
	}
	return ReadParamsAt(table[uint64(index)*stride:]), nil
}
