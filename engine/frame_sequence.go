package engine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/uniform_buffer"
)

// SequenceState is the time state of a FrameSequence.
type SequenceState int

const (
	// StateUninitialized is the state before the first Draw; no time origin has been recorded.
	StateUninitialized SequenceState = iota
	// StateRunning is the state after the first Draw recorded the time origin.
	StateRunning
)

func (s SequenceState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("SequenceState(%d)", int(s))
	}
}

// FrameSequence bundles everything one configuration draws with: the selected pipeline, its bind
// groups, the uniform buffer they reference and the recorded (or baked) draw sequence.
// It is produced by Engine.Configure and owned by the engine until the next successful Configure.
type FrameSequence struct {
	id       string
	settings Settings
	dev      device.Device

	pipeline      pipeline.Pipeline
	uniformBuffer uniform_buffer.UniformBuffer
	bindGroups    bind_group_provider.BindGroupProvider
	recorder      renderer.FrameRecorder
	uploadWrites  int

	state     SequenceState
	startTime float64
	elapsed   float64
}

// ID returns the generation id of the configuration, also used in GPU object labels.
func (fs *FrameSequence) ID() string {
	return fs.id
}

// Settings returns the snapshot the sequence was built from.
func (fs *FrameSequence) Settings() Settings {
	return fs.settings
}

// Pipeline returns the pipeline variant selected for the binding mode.
func (fs *FrameSequence) Pipeline() pipeline.Pipeline {
	return fs.pipeline
}

// BindGroups returns the time and instance bind groups.
func (fs *FrameSequence) BindGroups() bind_group_provider.BindGroupProvider {
	return fs.bindGroups
}

// UniformBuffer returns the buffer holding the parameter table and the time slot.
func (fs *FrameSequence) UniformBuffer() uniform_buffer.UniformBuffer {
	return fs.uniformBuffer
}

// Recorder returns the frame recorder.
func (fs *FrameSequence) Recorder() renderer.FrameRecorder {
	return fs.recorder
}

// Bundle returns the baked render bundle, or nil when frames are recorded directly.
func (fs *FrameSequence) Bundle() device.RenderBundle {
	if fs.recorder == nil {
		return nil
	}
	return fs.recorder.Bundle()
}

// UploadWrites returns how many buffer writes the parameter table upload was split into.
func (fs *FrameSequence) UploadWrites() int {
	return fs.uploadWrites
}

// State returns whether the sequence has drawn its first frame.
func (fs *FrameSequence) State() SequenceState {
	return fs.state
}

// Elapsed returns the seconds since the first Draw, as last written to the time uniform.
func (fs *FrameSequence) Elapsed() float64 {
	return fs.elapsed
}

// Draw renders one frame. The first call records timestamp as the time origin and draws with an
// elapsed time of 0. A timestamp earlier than the origin is drawn at 0.
//
// Parameters:
//   - timestamp: the host's monotonic frame time in milliseconds
//
// Returns:
//   - error: wraps device.ErrSubmission if the time write or the frame submission fails
func (fs *FrameSequence) Draw(timestamp float64) error {
	if fs.recorder == nil {
		return fmt.Errorf("%w: frame sequence %s has been released", device.ErrSubmission, fs.id)
	}
	if fs.state == StateUninitialized {
		fs.startTime = timestamp
		fs.state = StateRunning
	}
	fs.elapsed = max((timestamp-fs.startTime)/1000, 0)

	if err := fs.uniformBuffer.WriteTime(float32(fs.elapsed)); err != nil {
		return fmt.Errorf("%w: failed to write time uniform: %w", device.ErrSubmission, err)
	}

	pass, err := fs.dev.BeginFrame()
	if err != nil {
		return fmt.Errorf("%w: failed to begin frame: %w", device.ErrSubmission, err)
	}
	fs.recorder.Submit(pass)
	if err := fs.dev.EndFrame(); err != nil {
		return fmt.Errorf("%w: failed to submit frame: %w", device.ErrSubmission, err)
	}
	return nil
}

// release frees the bundle, then the bind groups, then the buffer they reference.
func (fs *FrameSequence) release() {
	if fs.recorder != nil {
		fs.recorder.Release()
		fs.recorder = nil
	}
	if fs.bindGroups != nil {
		fs.bindGroups.Release()
		fs.bindGroups = nil
	}
	if fs.uniformBuffer != nil {
		fs.uniformBuffer.Release()
		fs.uniformBuffer = nil
	}
}
