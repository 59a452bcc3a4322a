package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/Carmen-Shannon/oxy-bench/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/uniform_buffer"
	"github.com/google/uuid"
)

// DefaultShaderKey labels the built-in triangle program.
const DefaultShaderKey = "triangles"

// engine implements the Engine interface.
// It owns the device objects that live for the whole run (geometry, shader module, pipelines) and
// the FrameSequence of the active configuration.
type engine struct {
	dev    device.Device
	logger common.Logger

	model        model.Model
	shaderKey    string
	shaderSource string
	pipelines    pipeline.PipelineSet

	sequence *FrameSequence

	metrics        profiler.Metrics
	profiler       *profiler.Profiler
	reporter       profiler.Reporter
	reportInterval time.Duration

	now              func() time.Time
	rng              *rand.Rand
	transferCeiling  uint64
	maxInstanceCount int

	prevTimestamp float64
	ticked        bool
}

// Engine drives the triangle benchmark: Configure rebuilds the per-configuration GPU state from a
// Settings snapshot and Tick renders one frame and updates the smoothed metrics.
// An Engine is driven by a single host loop and is not safe for concurrent use.
type Engine interface {
	// Configure builds a complete FrameSequence for s and makes it the active configuration.
	// Either the whole new configuration is installed or none of it is: on failure the previous
	// configuration stays active and drawable.
	//
	// Parameters:
	//   - s: the settings snapshot
	//
	// Returns:
	//   - *FrameSequence: the newly active sequence
	//   - error: wraps ErrConfig for unusable settings, ErrReleased after Release, or device.ErrDevice if a
	//     GPU object could not be created
	Configure(s Settings) (*FrameSequence, error)

	// Tick renders one frame of the active configuration and folds its timings into the metrics.
	// A failed frame propagates and does not update the metrics.
	//
	// Parameters:
	//   - timestamp: the host's monotonic frame time in milliseconds; equal timestamps are allowed
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Configure, or wraps device.ErrSubmission
	Tick(timestamp float64) error

	// Metrics returns the smoothed inter-frame time and submission cost.
	//
	// Returns:
	//   - float64: frameTimeAvgMs
	//   - float64: jsTimeAvgMs
	Metrics() (frameTimeAvgMs, jsTimeAvgMs float64)

	// Sequence returns the active FrameSequence, or nil before the first Configure.
	//
	// Returns:
	//   - *FrameSequence: the active sequence
	Sequence() *FrameSequence

	// Device returns the device the engine renders with.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// Model returns the uploaded triangle geometry.
	//
	// Returns:
	//   - model.Model: the geometry
	Model() model.Model

	// Pipelines returns the static and dynamic pipeline variants.
	//
	// Returns:
	//   - pipeline.PipelineSet: the pipeline set
	Pipelines() pipeline.PipelineSet

	// Release frees the active configuration, the pipelines and the geometry.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates an Engine on dev. The triangle geometry is uploaded and the shader program
// is validated and compiled into both pipeline variants before any configuration is built.
//
// Parameters:
//   - dev: the device to render with
//   - options: functional options for engine configuration (logger, reporter, clock, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: wraps device.ErrSetup if the device or shader cannot serve the benchmark, or device.ErrDevice on creation failures
func NewEngine(dev device.Device, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		dev:             dev,
		logger:          common.NewNopLogger(),
		shaderKey:       DefaultShaderKey,
		shaderSource:    shader.TrianglesSource,
		reportInterval:  profiler.DefaultUpdateInterval,
		now:             time.Now,
		transferCeiling: uniform_buffer.DefaultTransferCeiling,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.model == nil {
		e.model = model.NewModel()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.now().UnixNano()))
	}
	e.profiler = profiler.NewProfiler(e.reporter,
		profiler.WithUpdateInterval(e.reportInterval),
		profiler.WithClock(e.now),
		profiler.WithLogger(e.logger),
	)

	if err := checkAlignment(dev.Limits()); err != nil {
		return nil, err
	}
	if err := e.model.Upload(dev); err != nil {
		return nil, asDeviceError(fmt.Errorf("failed to upload geometry: %w", err))
	}

	s, err := shader.NewShader(e.shaderKey, e.shaderSource)
	if err != nil {
		e.model.Release()
		return nil, fmt.Errorf("%w: %w", device.ErrSetup, err)
	}
	e.pipelines, err = pipeline.NewPipelineSet(dev, s)
	if err != nil {
		e.model.Release()
		if errors.Is(err, device.ErrSetup) {
			return nil, err
		}
		return nil, asDeviceError(fmt.Errorf("failed to create pipelines: %w", err))
	}

	e.logger.Infof("engine ready: shader %s, %d vertices, instance stride %d bytes", e.shaderKey, e.model.VertexCount(), instance.Stride)
	return e, nil
}

// checkAlignment rejects devices whose uniform offset alignment the fixed slot stride cannot satisfy.
func checkAlignment(limits device.Limits) error {
	a := uint64(limits.MinUniformBufferOffsetAlignment)
	if a == 0 || a > instance.AlignmentUnit || instance.AlignmentUnit%a != 0 {
		return fmt.Errorf("%w: uniform offset alignment %d is incompatible with the %d-byte slot stride", device.ErrSetup, a, instance.AlignmentUnit)
	}
	return nil
}

// asDeviceError makes sure err matches device.ErrDevice.
func asDeviceError(err error) error {
	if errors.Is(err, device.ErrDevice) {
		return err
	}
	return fmt.Errorf("%w: %w", device.ErrDevice, err)
}

func (e *engine) validate(s Settings) error {
	if s.InstanceCount < 0 {
		return fmt.Errorf("%w: instance count %d is negative", ErrConfig, s.InstanceCount)
	}
	if e.maxInstanceCount > 0 && s.InstanceCount > e.maxInstanceCount {
		return fmt.Errorf("%w: instance count %d exceeds the maximum of %d", ErrConfig, s.InstanceCount, e.maxInstanceCount)
	}
	tableSize := uint64(s.InstanceCount) * instance.Stride
	if tableSize > math.MaxUint32 {
		return fmt.Errorf("%w: instance count %d exceeds the 32-bit offset range", ErrConfig, s.InstanceCount)
	}
	limits := e.dev.Limits()
	if size := tableSize + uniform_buffer.TimeSize; limits.MaxBufferSize > 0 && size > limits.MaxBufferSize {
		return fmt.Errorf("%w: instance count %d needs a %d-byte buffer, device maximum is %d", ErrConfig, s.InstanceCount, size, limits.MaxBufferSize)
	}
	return nil
}

func (e *engine) Configure(s Settings) (*FrameSequence, error) {
	if e.pipelines == nil {
		return nil, ErrReleased
	}
	if err := e.validate(s); err != nil {
		return nil, err
	}

	mode := bind_group_provider.BindingModeFor(s.UseDynamicOffsets)
	fs := &FrameSequence{
		id:       uuid.NewString(),
		settings: s,
		dev:      e.dev,
		pipeline: e.pipelines.Select(mode),
	}
	if err := e.build(fs, mode); err != nil {
		fs.release()
		return nil, asDeviceError(err)
	}

	previous := e.sequence
	e.sequence = fs
	if previous != nil {
		previous.release()
	}

	e.logger.Infof("configured %s: %s, buffer %d bytes in %d writes, %d bind groups",
		fs.id, s, fs.uniformBuffer.Size(), fs.uploadWrites, fs.bindGroups.LiveBindGroups())
	return fs, nil
}

// build creates the buffer, bind groups and recorder of fs in dependency order.
func (e *engine) build(fs *FrameSequence, mode bind_group_provider.BindingMode) error {
	s := fs.settings
	table, err := instance.BuildTable(s.InstanceCount, instance.Stride, e.rng)
	if err != nil {
		return fmt.Errorf("failed to build instance table: %w", err)
	}

	fs.uniformBuffer, err = uniform_buffer.Allocate(e.dev, s.InstanceCount, instance.Stride,
		uniform_buffer.WithLabel("Uniform Buffer "+fs.id),
		uniform_buffer.WithTransferCeiling(e.transferCeiling),
	)
	if err != nil {
		return err
	}
	fs.uploadWrites, err = fs.uniformBuffer.Upload(0, table)
	if err != nil {
		return err
	}
	e.logger.Debugf("uploaded %d-byte instance table for %s in %d writes", len(table), fs.id, fs.uploadWrites)

	fs.bindGroups, err = bind_group_provider.NewBindGroupProvider(e.dev, e.pipelines.Layouts(mode), fs.uniformBuffer, mode,
		bind_group_provider.WithLabel(fs.id),
	)
	if err != nil {
		return err
	}

	fs.recorder, err = renderer.NewFrameRecorder(fs.pipeline, fs.bindGroups, e.model,
		renderer.WithBundleLabel("Triangles Bundle "+fs.id),
	)
	if err != nil {
		return err
	}
	if s.UseRenderBundle {
		if err := fs.recorder.Bake(e.dev); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) Tick(timestamp float64) error {
	if e.sequence == nil {
		return ErrNotConfigured
	}

	start := e.now()
	if err := e.sequence.Draw(timestamp); err != nil {
		return err
	}
	jsTime := float64(e.now().Sub(start)) / float64(time.Millisecond)

	frameTime := 0.0
	if e.ticked {
		frameTime = max(timestamp-e.prevTimestamp, 0)
	}
	e.prevTimestamp = timestamp
	e.ticked = true

	e.metrics.Update(frameTime, jsTime)
	e.profiler.Tick(&e.metrics, e.sequence.settings.InstanceCount)
	return nil
}

func (e *engine) Metrics() (frameTimeAvgMs, jsTimeAvgMs float64) {
	return e.metrics.FrameTimeAvgMs(), e.metrics.JSTimeAvgMs()
}

func (e *engine) Sequence() *FrameSequence {
	return e.sequence
}

func (e *engine) Device() device.Device {
	return e.dev
}

func (e *engine) Model() model.Model {
	return e.model
}

func (e *engine) Pipelines() pipeline.PipelineSet {
	return e.pipelines
}

func (e *engine) Release() {
	if e.sequence != nil {
		e.sequence.release()
		e.sequence = nil
	}
	if e.pipelines != nil {
		e.pipelines.Release()
		e.pipelines = nil
	}
	if e.model != nil {
		e.model.Release()
	}
}
