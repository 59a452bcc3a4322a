package uniform_buffer

// UniformBufferOption is a functional option used to configure a UniformBuffer during Allocate.
type UniformBufferOption func(*uniformBuffer)

// WithLabel sets the debug label of the device buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - UniformBufferOption: a function that sets the label
func WithLabel(label string) UniformBufferOption {
	return func(u *uniformBuffer) {
		u.label = label
	}
}

// WithTransferCeiling sets the largest single queue write issued by Upload.
//
// Parameters:
//   - ceiling: the maximum bytes per write; zero keeps DefaultTransferCeiling
//
// Returns:
//   - UniformBufferOption: a function that sets the ceiling
func WithTransferCeiling(ceiling uint64) UniformBufferOption {
	return func(u *uniformBuffer) {
		if ceiling > 0 {
			u.transferCeiling = ceiling
		}
	}
}
