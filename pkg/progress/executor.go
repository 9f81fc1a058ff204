package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTickInterval is the UI tick interval MassParallelExecute uses
// when ExecutorConfig.TickInterval is zero. PercentReporter's refresh
// cadence (§4.5) is specified as half of this ambient tick.
const DefaultTickInterval = 100 * time.Millisecond

// ExecutorConfig configures MassParallelExecute. The zero value is valid
// and selects the documented defaults, following the teacher's
// zero-value-means-default convention.
type ExecutorConfig struct {
	// TickInterval bounds how often the main goroutine wakes to refresh
	// the UI in the absence of worker traffic. Defaults to
	// DefaultTickInterval.
	TickInterval time.Duration
	// Logger, if set, receives debug traces of registry/request-channel
	// transitions. Never used on ReportDelta/UpdateData* hot paths.
	Logger *zerolog.Logger
}

func (c ExecutorConfig) tickInterval() time.Duration {
	if c.TickInterval <= 0 {
		return DefaultTickInterval
	}
	return c.TickInterval
}

// MassParallelExecute groups workload by ItemPath.Device, spins exactly
// one worker goroutine per device (serializing I/O per device, spec.md
// §4.7), and drives the mass-parallel run until every device pool has
// drained. It returns immediately, with no callback invocations, for an
// empty workload — constructing an AsyncCallback and never signaling
// NotifyAllDone would otherwise be a bug.
//
// Lifetime invariant: the AsyncCallback is constructed before any device
// pool and every pool is joined (via sync.WaitGroup) before
// MassParallelExecute returns, so the callback always outlives the pools
// that use it.
func MassParallelExecute(ctx context.Context, items []WorkItem, groupName string, external PhaseCallback, cfg ExecutorConfig) error {
	if len(items) == 0 {
		return nil
	}

	buckets := groupByDevice(items)
	cb := NewAsyncCallback(cfg.Logger)

	activeDevices := int64(len(buckets))
	pools := make([]*devicePool, len(buckets))
	for priority, b := range buckets {
		pool := newDevicePool(groupName, b.device, priority)
		pools[priority] = pool
		pool.start(ctx, cb, b.items, func() {
			if atomic.AddInt64(&activeDevices, -1) == 0 {
				cb.NotifyAllDone()
			}
		})
	}

	err := cb.WaitUntilDone(ctx, cfg.tickInterval(), external)

	for _, p := range pools {
		p.wait()
	}

	// A cancelled run may still finish through NotifyAllDone once every
	// pool has stopped; report it as cancelled rather than as a clean end.
	if err == nil {
		err = checkpoint(ctx)
	}
	return err
}

// devicePool runs one worker goroutine that processes its assigned work
// items serially, in submission order, against a single device.
type devicePool struct {
	name     string
	device   string
	priority int
	wg       sync.WaitGroup
}

func newDevicePool(groupName, device string, priority int) *devicePool {
	return &devicePool{
		name:     fmt.Sprintf("%s/%s", groupName, device),
		device:   device,
		priority: priority,
	}
}

func (p *devicePool) start(ctx context.Context, cb *AsyncCallback, items []WorkItem, onDrained func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer onDrained()

		for _, item := range items {
			if checkpoint(ctx) != nil {
				return
			}
			p.runOne(ctx, cb, item)
		}
	}()
}

func (p *devicePool) runOne(ctx context.Context, cb *AsyncCallback, item WorkItem) {
	ts := cb.NotifyTaskBegin(p.priority)
	defer cb.NotifyTaskEnd(ts)

	pc := &ParallelContext{
		Ctx:      ctx,
		Path:     item.Path,
		Callback: cb,
		status:   ts,
	}

	// Any failure other than StopRequested is the work function's own
	// responsibility to surface through ReportError/TryReporting;
	// MassParallelExecute only reacts to cancellation here.
	_ = item.Run(pc)
}

func (p *devicePool) wait() {
	p.wg.Wait()
}

type deviceBucket struct {
	device string
	items  []WorkItem
}

// groupByDevice partitions items by ItemPath.Device, preserving the order
// in which each device first appears.
func groupByDevice(items []WorkItem) []deviceBucket {
	order := make([]string, 0, len(items))
	index := make(map[string]int, len(items))

	for _, it := range items {
		if _, ok := index[it.Path.Device]; !ok {
			index[it.Path.Device] = len(order)
			order = append(order, it.Path.Device)
		}
	}

	buckets := make([]deviceBucket, len(order))
	for i, d := range order {
		buckets[i].device = d
	}
	for _, it := range items {
		idx := index[it.Path.Device]
		buckets[idx].items = append(buckets[idx].items, it)
	}
	return buckets
}

// errEmptyWorkload names the §4.7 bug condition. MassParallelExecute never
// returns it (an empty workload returns nil early), and it is unexported,
// so it is not available to callers outside this package.
var errEmptyWorkload = errors.New("progress: mass-parallel executor given an empty workload")
