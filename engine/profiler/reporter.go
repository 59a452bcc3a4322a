package profiler

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
)

// Report is one read-out handed to a Reporter.
type Report struct {
	FrameTimeAvgMs float64
	JSTimeAvgMs    float64
	// Frames is the number of frames folded into the averages so far.
	Frames uint64
	// InstanceCount is the number of triangles drawn per frame by the active configuration.
	InstanceCount int
	At            time.Time
}

// FPS derives a frame rate from the smoothed frame time, or 0 before any delta has been measured.
func (r Report) FPS() float64 {
	if r.FrameTimeAvgMs <= 0 {
		return 0
	}
	return 1000 / r.FrameTimeAvgMs
}

// Reporter receives throttled metric read-outs. A failing Reporter never stops the frame loop.
type Reporter interface {
	// Report surfaces one read-out.
	//
	// Parameters:
	//   - r: the read-out
	//
	// Returns:
	//   - error: a delivery failure, logged and otherwise ignored by the caller
	Report(r Report) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Report) error

func (f ReporterFunc) Report(r Report) error {
	return f(r)
}

// MultiReporter fans one read-out out to several reporters. Every reporter is called even if an
// earlier one fails; the failures are joined.
type MultiReporter []Reporter

func (m MultiReporter) Report(r Report) error {
	var errs []error
	for _, rep := range m {
		if rep == nil {
			continue
		}
		if err := rep.Report(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatTitle renders a read-out as a one-line summary suitable for a window title.
func FormatTitle(r Report) string {
	return fmt.Sprintf("Triangles: %d | %.2f ms (%.0f FPS) | submit %.3f ms", r.InstanceCount, r.FrameTimeAvgMs, r.FPS(), r.JSTimeAvgMs)
}

// TitleReporter shows each read-out through setTitle, typically a window's title bar.
// It must be driven from the thread that owns the window.
type TitleReporter struct {
	setTitle func(string)
	prefix   string
}

var _ Reporter = &TitleReporter{}

// NewTitleReporter creates a TitleReporter.
//
// Parameters:
//   - prefix: text shown before the metrics (empty for none)
//   - setTitle: the display sink
//
// Returns:
//   - *TitleReporter: the reporter
func NewTitleReporter(prefix string, setTitle func(string)) *TitleReporter {
	return &TitleReporter{prefix: prefix, setTitle: setTitle}
}

func (t *TitleReporter) Report(r Report) error {
	if t.setTitle == nil {
		return fmt.Errorf("title reporter has no display")
	}
	title := FormatTitle(r)
	if t.prefix != "" {
		title = t.prefix + " | " + title
	}
	t.setTitle(title)
	return nil
}

// LogReporter writes each read-out as a single log line together with heap and GC statistics.
type LogReporter struct {
	logger         common.Logger
	memStats       runtime.MemStats
	lastAt         time.Time
	lastGCCount    uint32
	lastTotalAlloc uint64
}

var _ Reporter = &LogReporter{}

// NewLogReporter creates a LogReporter writing to logger.
//
// Parameters:
//   - logger: the destination logger
//
// Returns:
//   - *LogReporter: the reporter
func NewLogReporter(logger common.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (l *LogReporter) Report(r Report) error {
	if l.logger == nil {
		return fmt.Errorf("log reporter has no logger")
	}
	runtime.ReadMemStats(&l.memStats)
	// Alloc: live heap. Sys: memory obtained from the OS.
	allocMB := float64(l.memStats.Alloc) / 1024 / 1024
	sysMB := float64(l.memStats.Sys) / 1024 / 1024

	var allocRateMB float64
	if !l.lastAt.IsZero() {
		if elapsed := r.At.Sub(l.lastAt).Seconds(); elapsed > 0 {
			allocRateMB = float64(l.memStats.TotalAlloc-l.lastTotalAlloc) / 1024 / 1024 / elapsed
		}
	}

	gcCount := l.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = l.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := l.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := l.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	l.logger.Infof("[Profiler] Triangles: %d | Frame: %.3f ms (%.2f FPS) | Submit: %.3f ms | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.InstanceCount, r.FrameTimeAvgMs, r.FPS(), r.JSTimeAvgMs, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	l.lastAt = r.At
	l.lastGCCount = gcCount
	l.lastTotalAlloc = l.memStats.TotalAlloc
	return nil
}
