package device

import "errors"

var (
	// ErrSetup reports that an adapter, device or presentation surface could not be acquired.
	ErrSetup = errors.New("setup error")

	// ErrDevice reports that the device rejected the creation of a buffer, layout, pipeline or bind group.
	ErrDevice = errors.New("device error")

	// ErrSubmission reports a failure while recording or submitting a frame.
	ErrSubmission = errors.New("submission error")
)
