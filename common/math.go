package common

import "math"

// AlignUp rounds value up to the next multiple of alignment.
// An alignment of zero returns value unchanged.
//
// Parameters:
//   - value: the byte count to round
//   - alignment: the required granularity in bytes
//
// Returns:
//   - uint64: the smallest multiple of alignment that is >= value
func AlignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// IsWholeNumber reports whether v is finite and has no fractional part.
func IsWholeNumber(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == math.Trunc(v)
}
