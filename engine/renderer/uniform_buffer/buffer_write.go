package uniform_buffer

// BufferWrite describes a single queue write into the uniform buffer at a given byte offset.
type BufferWrite struct {
	Offset uint64
	Data   []byte
}

// DefaultTransferCeiling is the largest single queue write issued by Upload: 14 MiB.
const DefaultTransferCeiling = 14 << 20

// SplitTransfers splits src into contiguous writes of at most ceiling bytes starting at dstOffset.
// The writes are in ascending offset order and concatenate back to src exactly. The ceiling is
// rounded down to a multiple of 4 so every chunk keeps the queue's write alignment; a ceiling
// below 4 is raised to 4. Empty src yields no writes.
//
// Parameters:
//   - dstOffset: the destination offset of the first byte of src
//   - src: the payload
//   - ceiling: the maximum bytes per write
//
// Returns:
//   - []BufferWrite: the chunked writes, sharing src's backing array
func SplitTransfers(dstOffset uint64, src []byte, ceiling uint64) []BufferWrite {
	ceiling &^= 3
	if ceiling == 0 {
		ceiling = 4
	}

	writes := make([]BufferWrite, 0, (uint64(len(src))+ceiling-1)/ceiling)
	for start := uint64(0); start < uint64(len(src)); start += ceiling {
		end := min(start+ceiling, uint64(len(src)))
		writes = append(writes, BufferWrite{
			Offset: dstOffset + start,
			Data:   src[start:end],
		})
	}
	return writes
}
