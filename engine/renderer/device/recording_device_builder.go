package device

// RecordingDeviceOption configures a RecordingDevice.
type RecordingDeviceOption func(*RecordingDevice)

// WithLimits overrides the limits reported by the RecordingDevice and enforced by its validation.
//
// Parameters:
//   - limits: the limits to report
//
// Returns:
//   - RecordingDeviceOption: the option
func WithLimits(limits Limits) RecordingDeviceOption {
	return func(d *RecordingDevice) {
		d.limits = limits
	}
}

// WithFailure arms a one-shot failure for op after afterCalls successful calls.
//
// Parameters:
//   - op: the operation to fail
//   - afterCalls: how many calls to let through first
//
// Returns:
//   - RecordingDeviceOption: the option
func WithFailure(op Operation, afterCalls int) RecordingDeviceOption {
	return func(d *RecordingDevice) {
		d.failures[op] = afterCalls
	}
}
