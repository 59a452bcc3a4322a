package renderer

// FrameRecorderOption is a functional option applied to a FrameRecorder during construction via NewFrameRecorder.
type FrameRecorderOption func(*frameRecorder)

// WithBundleLabel sets the debug label of the render bundle created by Bake.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - FrameRecorderOption: a function that applies the label option to a recorder
func WithBundleLabel(label string) FrameRecorderOption {
	return func(r *frameRecorder) {
		r.label = label
	}
}
