package engine

import (
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/Carmen-Shannon/oxy-bench/engine/profiler"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-bench/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T, dev *device.RecordingDevice, opts ...EngineBuilderOption) Engine {
	t.Helper()
	opts = append([]EngineBuilderOption{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	e, err := NewEngine(dev, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func timeUniform(t *testing.T, dev *device.RecordingDevice, fs *FrameSequence) float32 {
	t.Helper()
	data := dev.BufferData(fs.UniformBuffer().Buffer())
	off := fs.UniformBuffer().TimeOffset()
	require.GreaterOrEqual(t, uint64(len(data)), off+4)
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func countOps(cmds []device.Command, op device.CommandOp) int {
	n := 0
	for _, c := range cmds {
		if c.Op == op {
			n++
		}
	}
	return n
}

func TestNewSettings(t *testing.T) {
	s, err := NewSettings(200, true, false)
	require.NoError(t, err)
	assert.Equal(t, Settings{InstanceCount: 200, UseDynamicOffsets: true}, s)

	s, err = NewSettings(0, false, true)
	require.NoError(t, err)
	assert.Equal(t, 0, s.InstanceCount)

	for _, bad := range []float64{-1, 2.5, math.NaN(), math.Inf(1), math.Inf(-1), 1e12} {
		_, err := NewSettings(bad, false, false)
		assert.ErrorIs(t, err, ErrConfig, "count %v", bad)
	}
}

func TestNewEngine_SetupErrors(t *testing.T) {
	limits := device.DefaultLimits()
	limits.MinUniformBufferOffsetAlignment = 512
	_, err := NewEngine(device.NewRecordingDevice(device.WithLimits(limits)))
	assert.ErrorIs(t, err, device.ErrSetup)

	limits.MinUniformBufferOffsetAlignment = 96
	_, err = NewEngine(device.NewRecordingDevice(device.WithLimits(limits)))
	assert.ErrorIs(t, err, device.ErrSetup)

	dev := device.NewRecordingDevice()
	_, err = NewEngine(dev, WithShaderSource("broken", "fn nope( {"))
	assert.ErrorIs(t, err, device.ErrSetup)
	assert.Zero(t, dev.LiveCount(device.KindBuffer))
}

func TestNewEngine_DeviceErrorReleasesGeometry(t *testing.T) {
	dev := device.NewRecordingDevice(device.WithFailure(device.OpCreateRenderPipeline, 1))
	_, err := NewEngine(dev)
	require.ErrorIs(t, err, device.ErrDevice)

	for _, kind := range []device.ResourceKind{device.KindBuffer, device.KindShaderModule, device.KindBindGroupLayout, device.KindPipelineLayout, device.KindRenderPipeline} {
		assert.Zero(t, dev.LiveCount(kind), "kind %v", kind)
	}
}

func TestTick_NotConfigured(t *testing.T) {
	e := newTestEngine(t, device.NewRecordingDevice())
	assert.ErrorIs(t, e.Tick(0), ErrNotConfigured)
	assert.Nil(t, e.Sequence())
}

func TestTick_FirstFrameElapsed(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)

	fs, err := e.Configure(Settings{InstanceCount: 5})
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, fs.State())

	require.NoError(t, e.Tick(987654.5))
	assert.Equal(t, StateRunning, fs.State())
	assert.Equal(t, 0.0, fs.Elapsed())
	assert.Equal(t, float32(0), timeUniform(t, dev, fs))

	require.NoError(t, e.Tick(988654.5))
	assert.Equal(t, 1.0, fs.Elapsed())
	assert.Equal(t, float32(1), timeUniform(t, dev, fs))

	// ties are tolerated
	require.NoError(t, e.Tick(988654.5))
	assert.Equal(t, 1.0, fs.Elapsed())
	assert.Len(t, dev.Frames(), 3)
}

func TestTick_EarlierTimestampClampsToZero(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)
	fs, err := e.Configure(Settings{InstanceCount: 1})
	require.NoError(t, err)

	require.NoError(t, e.Tick(500))
	require.NoError(t, e.Tick(100))
	assert.Equal(t, 0.0, fs.Elapsed())

	frameAvg, _ := e.Metrics()
	assert.Equal(t, 0.0, frameAvg)
}

func TestTick_DirectRecording(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)
	fs, err := e.Configure(Settings{InstanceCount: 7})
	require.NoError(t, err)
	assert.Nil(t, fs.Bundle())

	require.NoError(t, e.Tick(0))
	cmds := dev.Frames()[0].Commands
	assert.Equal(t, 1, countOps(cmds, device.CommandSetPipeline))
	assert.Equal(t, 1, countOps(cmds, device.CommandSetVertexBuffer))
	assert.Equal(t, 8, countOps(cmds, device.CommandSetBindGroup))
	assert.Equal(t, 7, countOps(cmds, device.CommandDraw))
	for _, c := range cmds {
		if c.Op == device.CommandDraw {
			assert.Equal(t, uint32(3), c.VertexCount)
			assert.Equal(t, uint32(1), c.InstanceCount)
		}
	}
}

func TestTick_RenderBundleReplay(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)
	fs, err := e.Configure(Settings{InstanceCount: 6, UseDynamicOffsets: true, UseRenderBundle: true})
	require.NoError(t, err)
	require.NotNil(t, fs.Bundle())

	require.NoError(t, e.Tick(0))
	require.NoError(t, e.Tick(16))
	for _, f := range dev.Frames() {
		require.Len(t, f.Commands, 1)
		assert.Equal(t, device.CommandExecuteBundles, f.Commands[0].Op)

		expanded := device.ExpandBundles(f.Commands)
		assert.Equal(t, 1, countOps(expanded, device.CommandSetPipeline))
		assert.Equal(t, 6, countOps(expanded, device.CommandDraw))
	}
}

// instanceParams reads the parameters an instance's bind group exposes to the shader.
func instanceParams(t *testing.T, dev *device.RecordingDevice, fs *FrameSequence, i int) instance.GPUInstanceParams {
	t.Helper()
	group, offsets := fs.BindGroups().InstanceBindGroup(i)
	entries := dev.BindGroupEntries(group)
	require.Len(t, entries, 1)
	offset := entries[0].Offset
	for _, o := range offsets {
		offset += uint64(o)
	}
	data := dev.BufferData(entries[0].Buffer)
	require.GreaterOrEqual(t, uint64(len(data)), offset+entries[0].Size)
	return instance.ReadParamsAt(data[offset : offset+entries[0].Size])
}

func TestStaticAndDynamicBindingsTransformIdentically(t *testing.T) {
	const count = 16
	staticDev := device.NewRecordingDevice()
	dynamicDev := device.NewRecordingDevice()
	staticEngine := newTestEngine(t, staticDev, WithRand(rand.New(rand.NewSource(7))))
	dynamicEngine := newTestEngine(t, dynamicDev, WithRand(rand.New(rand.NewSource(7))))

	staticSeq, err := staticEngine.Configure(Settings{InstanceCount: count})
	require.NoError(t, err)
	dynamicSeq, err := dynamicEngine.Configure(Settings{InstanceCount: count, UseDynamicOffsets: true})
	require.NoError(t, err)
	assert.Equal(t, bind_group_provider.BindingModeStatic, staticSeq.Pipeline().Mode())
	assert.Equal(t, bind_group_provider.BindingModeDynamic, dynamicSeq.Pipeline().Mode())

	for _, ts := range []float64{0, 1250, 7300} {
		require.NoError(t, staticEngine.Tick(ts))
		require.NoError(t, dynamicEngine.Tick(ts))
		elapsed := timeUniform(t, staticDev, staticSeq)
		require.Equal(t, elapsed, timeUniform(t, dynamicDev, dynamicSeq))

		for i := 0; i < count; i++ {
			sp := instanceParams(t, staticDev, staticSeq, i)
			dp := instanceParams(t, dynamicDev, dynamicSeq, i)
			require.Equal(t, sp, dp, "instance %d", i)
			for _, v := range model.TriangleVertices() {
				sPos, sColor := shader.TransformVertex(sp, elapsed, v)
				dPos, dColor := shader.TransformVertex(dp, elapsed, v)
				assert.Equal(t, sPos, dPos)
				assert.Equal(t, sColor, dColor)
			}
		}
	}
}

func TestConfigure_ReleasesPreviousConfiguration(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)

	first, err := e.Configure(Settings{InstanceCount: 5})
	require.NoError(t, err)
	firstBuffer := first.UniformBuffer().Buffer()
	assert.Equal(t, 6, dev.LiveCount(device.KindBindGroup))
	assert.Equal(t, 6, dev.LiveReferences(firstBuffer))

	second, err := e.Configure(Settings{InstanceCount: 3, UseDynamicOffsets: true})
	require.NoError(t, err)
	assert.Same(t, second, e.Sequence())
	assert.NotEqual(t, first.ID(), second.ID())

	// One dynamic group serves all three instances, plus the time group. A per-instance count of
	// three static groups would contradict the single dynamic group the binding strategy requires.
	assert.Equal(t, 3, second.BindGroups().InstanceCount())
	assert.Equal(t, second.BindGroups().LiveBindGroups(), dev.LiveCount(device.KindBindGroup))
	assert.Equal(t, 2, dev.LiveCount(device.KindBindGroup))
	assert.Zero(t, dev.LiveReferences(firstBuffer))
	assert.True(t, dev.IsReleased(firstBuffer))
	assert.Equal(t, 2, dev.LiveCount(device.KindBuffer)) // geometry and the new uniform buffer

	third, err := e.Configure(Settings{InstanceCount: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, dev.LiveCount(device.KindBindGroup))
	assert.Equal(t, 4, dev.LiveReferences(third.UniformBuffer().Buffer()))
	assert.Nil(t, second.UniformBuffer())
	require.NoError(t, e.Tick(0))
}

func TestConfigure_ConfigErrorKeepsPreviousConfiguration(t *testing.T) {
	limits := device.DefaultLimits()
	limits.MaxBufferSize = 10*instance.Stride + 4
	dev := device.NewRecordingDevice(device.WithLimits(limits))
	e := newTestEngine(t, dev, WithMaxInstanceCount(20))

	active, err := e.Configure(Settings{InstanceCount: 4})
	require.NoError(t, err)

	for _, s := range []Settings{{InstanceCount: -1}, {InstanceCount: 21}, {InstanceCount: 11}} {
		fs, err := e.Configure(s)
		assert.ErrorIs(t, err, ErrConfig, "settings %v", s)
		assert.Nil(t, fs)
		assert.Same(t, active, e.Sequence())
	}

	_, err = e.Configure(Settings{InstanceCount: 10})
	require.NoError(t, err)
	require.NoError(t, e.Tick(0))
}

func TestConfigure_DeviceErrorRollsBack(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		op       device.Operation
		after    int
	}{
		{name: "buffer", settings: Settings{InstanceCount: 5}, op: device.OpCreateBuffer},
		{name: "upload", settings: Settings{InstanceCount: 5}, op: device.OpWriteBuffer},
		{name: "static group", settings: Settings{InstanceCount: 5}, op: device.OpCreateBindGroup, after: 3},
		{name: "dynamic group", settings: Settings{InstanceCount: 5, UseDynamicOffsets: true}, op: device.OpCreateBindGroup, after: 1},
		{name: "bundle encoder", settings: Settings{InstanceCount: 5, UseRenderBundle: true}, op: device.OpCreateRenderBundleEncoder},
		{name: "bundle finish", settings: Settings{InstanceCount: 5, UseRenderBundle: true}, op: device.OpFinishRenderBundle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := device.NewRecordingDevice()
			e := newTestEngine(t, dev)
			active, err := e.Configure(Settings{InstanceCount: 2})
			require.NoError(t, err)
			groups := dev.LiveCount(device.KindBindGroup)
			buffers := dev.LiveCount(device.KindBuffer)

			dev.FailOn(tt.op, tt.after)
			fs, err := e.Configure(tt.settings)
			require.ErrorIs(t, err, device.ErrDevice)
			assert.Nil(t, fs)

			assert.Same(t, active, e.Sequence())
			assert.Equal(t, groups, dev.LiveCount(device.KindBindGroup))
			assert.Equal(t, buffers, dev.LiveCount(device.KindBuffer))
			assert.Zero(t, dev.LiveCount(device.KindRenderBundle))
			require.NoError(t, e.Tick(0))
		})
	}
}

func TestConfigure_ZeroInstances(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)
	fs, err := e.Configure(Settings{InstanceCount: 0, UseDynamicOffsets: true})
	require.NoError(t, err)
	assert.Equal(t, 1, fs.BindGroups().LiveBindGroups())
	assert.Equal(t, uint64(4), fs.UniformBuffer().Size())

	require.NoError(t, e.Tick(0))
	cmds := dev.Frames()[0].Commands
	assert.Zero(t, countOps(cmds, device.CommandDraw))
	assert.Equal(t, 1, countOps(cmds, device.CommandSetBindGroup))
}

func TestConfigure_ChunkedUpload(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev, WithTransferCeiling(1024))
	fs, err := e.Configure(Settings{InstanceCount: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, fs.UploadWrites())

	var offsets []uint64
	var total int
	for _, w := range dev.Writes() {
		if w.Buffer == fs.UniformBuffer().Buffer() {
			offsets = append(offsets, w.Offset)
			total += len(w.Data)
		}
	}
	assert.Equal(t, []uint64{0, 1024, 2048}, offsets)
	assert.Equal(t, 10*int(instance.Stride), total)
}

func TestTick_TimeOriginRestartsPerConfiguration(t *testing.T) {
	dev := device.NewRecordingDevice()
	e := newTestEngine(t, dev)
	_, err := e.Configure(Settings{InstanceCount: 2})
	require.NoError(t, err)
	require.NoError(t, e.Tick(1000))
	require.NoError(t, e.Tick(3000))
	assert.Equal(t, 2.0, e.Sequence().Elapsed())

	fs, err := e.Configure(Settings{InstanceCount: 2, UseDynamicOffsets: true})
	require.NoError(t, err)
	require.NoError(t, e.Tick(4000))
	assert.Equal(t, 0.0, fs.Elapsed())

	// the inter-frame delta keeps running across the reconfiguration
	frameAvg, _ := e.Metrics()
	assert.InDelta(t, 0.8*400+0.2*1000, frameAvg, 1e-9)
}

func TestTick_FrameTimeAverage(t *testing.T) {
	clock := newManualClock()
	e := newTestEngine(t, device.NewRecordingDevice(), WithClock(clock.Now))
	_, err := e.Configure(Settings{InstanceCount: 1})
	require.NoError(t, err)

	for _, ts := range []float64{0, 16, 32, 48} {
		require.NoError(t, e.Tick(ts))
	}
	frameAvg, jsAvg := e.Metrics()
	assert.InDelta(t, 7.808, frameAvg, 1e-9)
	assert.Equal(t, 0.0, jsAvg)
}

func TestTick_SubmissionErrorPropagates(t *testing.T) {
	for _, op := range []device.Operation{device.OpBeginFrame, device.OpEndFrame, device.OpWriteBuffer} {
		t.Run(string(op), func(t *testing.T) {
			dev := device.NewRecordingDevice()
			e := newTestEngine(t, dev)
			_, err := e.Configure(Settings{InstanceCount: 3})
			require.NoError(t, err)

			dev.FailOn(op, 0)
			assert.ErrorIs(t, e.Tick(0), device.ErrSubmission)
			frameAvg, jsAvg := e.Metrics()
			assert.Zero(t, frameAvg)
			assert.Zero(t, jsAvg)

			require.NoError(t, e.Tick(16))
		})
	}
}

func TestTick_ReportsAreThrottled(t *testing.T) {
	clock := newManualClock()
	var reports []profiler.Report
	reporter := profiler.ReporterFunc(func(r profiler.Report) error {
		reports = append(reports, r)
		return nil
	})
	e := newTestEngine(t, device.NewRecordingDevice(), WithClock(clock.Now), WithReporter(reporter))
	_, err := e.Configure(Settings{InstanceCount: 9})
	require.NoError(t, err)

	require.NoError(t, e.Tick(0))
	require.Len(t, reports, 1)
	assert.Equal(t, 9, reports[0].InstanceCount)

	clock.Advance(50 * time.Millisecond)
	require.NoError(t, e.Tick(50))
	assert.Len(t, reports, 1)

	clock.Advance(60 * time.Millisecond)
	require.NoError(t, e.Tick(110))
	require.Len(t, reports, 2)
	assert.Equal(t, uint64(3), reports[1].Frames)
}

func TestTick_ReporterFailureIsIsolated(t *testing.T) {
	clock := newManualClock()
	calls := 0
	reporter := profiler.ReporterFunc(func(r profiler.Report) error {
		calls++
		if calls == 1 {
			return errors.New("display unavailable")
		}
		panic("display crashed")
	})
	e := newTestEngine(t, device.NewRecordingDevice(), WithClock(clock.Now), WithReporter(reporter), WithReportInterval(time.Millisecond))
	_, err := e.Configure(Settings{InstanceCount: 1})
	require.NoError(t, err)

	require.NoError(t, e.Tick(0))
	clock.Advance(time.Second)
	require.NoError(t, e.Tick(16))
	assert.Equal(t, 2, calls)
}

func TestRelease_FreesEverything(t *testing.T) {
	dev := device.NewRecordingDevice()
	e, err := NewEngine(dev)
	require.NoError(t, err)
	_, err = e.Configure(Settings{InstanceCount: 4, UseRenderBundle: true})
	require.NoError(t, err)

	e.Release()
	for _, kind := range []device.ResourceKind{device.KindBuffer, device.KindBindGroup, device.KindBindGroupLayout, device.KindPipelineLayout, device.KindRenderPipeline, device.KindShaderModule, device.KindRenderBundle} {
		assert.Zero(t, dev.LiveCount(kind), "kind %v", kind)
	}
}

func TestConfigure_AfterReleaseFails(t *testing.T) {
	dev := device.NewRecordingDevice()
	e, err := NewEngine(dev)
	require.NoError(t, err)
	_, err = e.Configure(Settings{InstanceCount: 2})
	require.NoError(t, err)
	e.Release()

	var seq *FrameSequence
	require.NotPanics(t, func() {
		seq, err = e.Configure(Settings{InstanceCount: 2})
	})
	assert.ErrorIs(t, err, ErrReleased)
	assert.Nil(t, seq)
	assert.Zero(t, dev.LiveCount(device.KindBuffer))
	assert.ErrorIs(t, e.Tick(0), ErrNotConfigured)
}
