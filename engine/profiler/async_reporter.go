package profiler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-bench/common"
)

// AsyncReporter hands read-outs to a wrapped Reporter on a worker pool so a slow display never
// stalls the frame loop. When more than queueSize read-outs are pending, new ones are dropped.
type AsyncReporter struct {
	next      Reporter
	logger    common.Logger
	pool      worker.DynamicWorkerPool
	queueSize int64

	wg      sync.WaitGroup
	pending atomic.Int64
	nextID  atomic.Int64
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ Reporter = &AsyncReporter{}

// NewAsyncReporter creates an AsyncReporter with a single worker.
//
// Parameters:
//   - next: the reporter run on the worker
//   - queueSize: the number of read-outs allowed to wait for the worker
//   - logger: the logger used to record failures of next
//
// Returns:
//   - *AsyncReporter: the reporter
func NewAsyncReporter(next Reporter, queueSize int, logger common.Logger) *AsyncReporter {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &AsyncReporter{
		next:      next,
		logger:    logger,
		pool:      worker.NewDynamicWorkerPool(1, queueSize, time.Second),
		queueSize: int64(queueSize),
	}
}

// Report queues r for the worker. It only fails when the reporter is closed or saturated.
func (a *AsyncReporter) Report(r Report) error {
	if a.closed.Load() {
		return fmt.Errorf("async reporter closed")
	}
	if a.pending.Add(1) > a.queueSize {
		a.pending.Add(-1)
		a.dropped.Add(1)
		return fmt.Errorf("async reporter saturated, %d read-outs pending", a.queueSize)
	}

	a.wg.Add(1)
	a.pool.SubmitTask(worker.Task{
		ID:      int(a.nextID.Add(1)),
		Payload: r,
		Do: func() (any, error) {
			defer a.wg.Done()
			defer a.pending.Add(-1)
			if err := a.safeReport(r); err != nil {
				a.logger.Warnf("async metrics report failed: %v", err)
				return nil, err
			}
			return nil, nil
		},
	})
	return nil
}

func (a *AsyncReporter) safeReport(r Report) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reporter panicked: %v", rec)
		}
	}()
	return a.next.Report(r)
}

// Flush blocks until every queued read-out has been handed to the wrapped reporter.
func (a *AsyncReporter) Flush() {
	a.wg.Wait()
}

// Dropped returns how many read-outs were refused because the queue was full.
func (a *AsyncReporter) Dropped() uint64 {
	return a.dropped.Load()
}

// Close flushes pending read-outs and stops the worker. Later reports fail.
func (a *AsyncReporter) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.Flush()
	a.pool.Stop()
}
