package profiler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSmooth(t *testing.T) {
	assert.Equal(t, 16.5, Smooth(0, 16.5, false))
	assert.InDelta(t, 0.8*10+0.2*20, Smooth(10, 20, true), 1e-12)
}

func TestMetrics_FirstSampleSeeds(t *testing.T) {
	var m Metrics
	m.Update(16.7, 2.5)
	assert.Equal(t, 16.7, m.FrameTimeAvgMs())
	assert.Equal(t, 2.5, m.JSTimeAvgMs())
	assert.Equal(t, uint64(1), m.Samples())

	m.Update(26.7, 2.5)
	assert.InDelta(t, 18.7, m.FrameTimeAvgMs(), 1e-9)
}

func TestMetrics_Converges(t *testing.T) {
	var m Metrics
	m.Update(100, 100)
	for i := 0; i < 200; i++ {
		m.Update(8, 1)
	}
	assert.InDelta(t, 8, m.FrameTimeAvgMs(), 1e-9)
	assert.InDelta(t, 1, m.JSTimeAvgMs(), 1e-9)
}

func TestProfiler_Throttles(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var reports []Report
	p := NewProfiler(ReporterFunc(func(r Report) error {
		reports = append(reports, r)
		return nil
	}), WithClock(clock.Now))

	var m Metrics
	m.Update(0, 1)
	assert.True(t, p.Tick(&m, 10))

	for i := 0; i < 5; i++ {
		clock.Advance(16 * time.Millisecond)
		assert.False(t, p.Tick(&m, 10))
	}
	clock.Advance(20 * time.Millisecond)
	assert.True(t, p.Tick(&m, 10))

	require.Len(t, reports, 2)
	assert.Equal(t, 10, reports[0].InstanceCount)
	assert.Equal(t, 100*time.Millisecond, reports[1].At.Sub(reports[0].At))
	assert.Equal(t, uint64(2), p.Reported())
}

func TestProfiler_ReporterFailureIsolated(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 1)}
	calls := 0
	p := NewProfiler(ReporterFunc(func(r Report) error {
		calls++
		if calls == 1 {
			return errors.New("display unavailable")
		}
		panic("display crashed")
	}), WithClock(clock.Now), WithLogger(common.NewNopLogger()), WithUpdateInterval(time.Millisecond))

	var m Metrics
	m.Update(1, 1)
	assert.NotPanics(t, func() {
		assert.True(t, p.Tick(&m, 1))
		clock.Advance(time.Millisecond)
		assert.True(t, p.Tick(&m, 1))
	})
	assert.Equal(t, uint64(2), p.Failed())
	assert.Equal(t, uint64(0), p.Reported())
}

func TestReport_FPS(t *testing.T) {
	assert.Equal(t, 0.0, Report{}.FPS())
	assert.InDelta(t, 60, Report{FrameTimeAvgMs: 1000.0 / 60}.FPS(), 1e-9)
}

func TestLogReporter(t *testing.T) {
	r := NewLogReporter(common.NewNopLogger())
	assert.NoError(t, r.Report(Report{FrameTimeAvgMs: 16, At: time.Now()}))
	assert.NoError(t, r.Report(Report{FrameTimeAvgMs: 16, At: time.Now().Add(time.Second)}))

	assert.Error(t, NewLogReporter(nil).Report(Report{}))
}

func TestAsyncReporter_Delivers(t *testing.T) {
	var mu sync.Mutex
	var got []Report
	a := NewAsyncReporter(ReporterFunc(func(r Report) error {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
		return nil
	}), 8, common.NewNopLogger())

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Report(Report{Frames: uint64(i)}))
	}
	a.Close()

	mu.Lock()
	assert.Len(t, got, 3)
	mu.Unlock()
	assert.Error(t, a.Report(Report{}))
}

func TestAsyncReporter_DropsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	a := NewAsyncReporter(ReporterFunc(func(r Report) error {
		<-release
		return nil
	}), 2, common.NewNopLogger())

	require.NoError(t, a.Report(Report{}))
	require.NoError(t, a.Report(Report{}))
	assert.Error(t, a.Report(Report{}))
	assert.Equal(t, uint64(1), a.Dropped())

	close(release)
	a.Close()
}

func TestTitleReporter(t *testing.T) {
	var title string
	r := NewTitleReporter("static", func(s string) { title = s })
	require.NoError(t, r.Report(Report{InstanceCount: 500, FrameTimeAvgMs: 20, JSTimeAvgMs: 0.5}))
	assert.Equal(t, "static | Triangles: 500 | 20.00 ms (50 FPS) | submit 0.500 ms", title)

	assert.Error(t, NewTitleReporter("", nil).Report(Report{}))
}

func TestMultiReporter_CallsEveryReporter(t *testing.T) {
	calls := 0
	ok := ReporterFunc(func(Report) error { calls++; return nil })
	failing := ReporterFunc(func(Report) error { calls++; return errors.New("offline") })

	err := MultiReporter{failing, nil, ok}.Report(Report{})
	assert.EqualError(t, err, "offline")
	assert.Equal(t, 2, calls)

	assert.NoError(t, MultiReporter{ok}.Report(Report{}))
}
