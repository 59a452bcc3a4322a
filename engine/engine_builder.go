package engine

import (
	"math/rand"
	"time"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/Carmen-Shannon/oxy-bench/engine/profiler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger used for lifecycle lines and reporter failures.
//
// Parameters:
//   - logger: the logger (defaults to a nop logger)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger common.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReporter sets the collaborator that receives the smoothed metrics.
// Without a reporter the metrics are still computed and readable via Engine.Metrics.
//
// Parameters:
//   - reporter: the metrics destination
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReporter(reporter profiler.Reporter) EngineBuilderOption {
	return func(e *engine) {
		e.reporter = reporter
	}
}

// WithReportInterval sets the minimum time between two reports.
// Values <= 0 will be treated as the default (100ms).
//
// Parameters:
//   - interval: the throttling interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReportInterval(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if interval <= 0 {
			interval = profiler.DefaultUpdateInterval
		}
		e.reportInterval = interval
	}
}

// WithClock sets the wall clock used to measure submission cost and to throttle reports.
//
// Parameters:
//   - now: the clock function (defaults to time.Now)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRand sets the random source used to draw instance parameters.
//
// Parameters:
//   - rng: the random source (defaults to one seeded from the clock)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRand(rng *rand.Rand) EngineBuilderOption {
	return func(e *engine) {
		e.rng = rng
	}
}

// WithTransferCeiling sets the largest single buffer write used when uploading the instance table.
//
// Parameters:
//   - ceiling: bytes per write (defaults to uniform_buffer.DefaultTransferCeiling, 14 MiB)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTransferCeiling(ceiling uint64) EngineBuilderOption {
	return func(e *engine) {
		if ceiling > 0 {
			e.transferCeiling = ceiling
		}
	}
}

// WithMaxInstanceCount caps the instance count Configure accepts. 0 leaves only the device limit.
//
// Parameters:
//   - n: the largest accepted instance count
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxInstanceCount(n int) EngineBuilderOption {
	return func(e *engine) {
		e.maxInstanceCount = max(n, 0)
	}
}

// WithShaderSource replaces the built-in WGSL program. The program must keep the entry points
// and the group/binding layout of the built-in one. An empty key keeps DefaultShaderKey.
//
// Parameters:
//   - key: the label of the program
//   - source: the WGSL source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShaderSource(key, source string) EngineBuilderOption {
	return func(e *engine) {
		e.shaderKey = common.Coalesce(key, DefaultShaderKey)
		e.shaderSource = source
	}
}

// WithModel replaces the default triangle geometry. The model is uploaded by NewEngine.
//
// Parameters:
//   - m: the geometry to draw per instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithModel(m model.Model) EngineBuilderOption {
	return func(e *engine) {
		e.model = m
	}
}
