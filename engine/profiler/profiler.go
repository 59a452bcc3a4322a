package profiler

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// DefaultUpdateInterval is the minimum time between two read-outs.
const DefaultUpdateInterval = 100 * time.Millisecond

// Profiler gates metric read-outs so that the Reporter sees at most one per update interval.
// It never blocks on, or fails because of, the Reporter.
type Profiler struct {
	reporter       Reporter
	logger         common.Logger
	now            func() time.Time
	lastTime       time.Time
	updateInterval time.Duration
	reported       uint64
	failed         uint64
}

// NewProfiler creates a new Profiler that forwards read-outs to reporter.
// Update interval defaults to DefaultUpdateInterval.
//
// Parameters:
//   - reporter: the destination of read-outs; nil discards them
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(reporter Reporter, options ...ProfilerOption) *Profiler {
	p := &Profiler{
		reporter:       reporter,
		logger:         common.NewNopLogger(),
		now:            time.Now,
		updateInterval: DefaultUpdateInterval,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Tick should be called once per frame after the metrics are updated. The first call reports
// immediately; later calls report once the update interval has elapsed since the last report.
//
// Parameters:
//   - m: the current metrics
//   - instanceCount: the number of triangles drawn per frame
//
// Returns:
//   - bool: true if a read-out was handed to the reporter this tick
func (p *Profiler) Tick(m *Metrics, instanceCount int) bool {
	currentTime := p.now()
	if !p.lastTime.IsZero() && currentTime.Sub(p.lastTime) < p.updateInterval {
		return false
	}
	p.lastTime = currentTime
	if p.reporter == nil {
		return false
	}

	err := p.deliver(Report{
		FrameTimeAvgMs: m.FrameTimeAvgMs(),
		JSTimeAvgMs:    m.JSTimeAvgMs(),
		Frames:         m.Samples(),
		InstanceCount:  instanceCount,
		At:             currentTime,
	})
	if err != nil {
		p.failed++
		p.logger.Warnf("metrics report dropped: %v", err)
		return true
	}
	p.reported++
	return true
}

func (p *Profiler) deliver(r Report) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reporter panicked: %v", rec)
		}
	}()
	return p.reporter.Report(r)
}

// Reported returns how many read-outs the reporter accepted.
func (p *Profiler) Reported() uint64 {
	return p.reported
}

// Failed returns how many read-outs the reporter rejected or panicked on.
func (p *Profiler) Failed() uint64 {
	return p.failed
}
