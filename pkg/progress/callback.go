package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AsyncCallback is the shared actor object through which worker goroutines
// report progress and the main goroutine drives UI updates (spec.md §4.4).
// It exclusively owns a statAccumulator, a registry, and a requestChannel
// for the duration of one mass-parallel run; worker pools hold a
// non-owning reference and the caller must guarantee the AsyncCallback
// outlives every pool that uses it.
type AsyncCallback struct {
	stats    statAccumulator
	registry *registry
	requests *requestChannel
	log      *zerolog.Logger
}

// NewAsyncCallback creates a ready-to-use AsyncCallback. A nil logger
// disables debug tracing.
func NewAsyncCallback(log *zerolog.Logger) *AsyncCallback {
	return &AsyncCallback{
		registry: newRegistry(),
		requests: newRequestChannel(),
		log:      log,
	}
}

// SetEmitTaskIndex toggles the "[#N]" status prefix described in
// SPEC_FULL.md §4.
func (ac *AsyncCallback) SetEmitTaskIndex(v bool) {
	ac.registry.setEmitTaskIndex(v)
}

// --- worker-side API -------------------------------------------------

// UpdateDataProcessed forwards a processed-items/bytes delta. Non-failing,
// non-blocking, lock-free.
func (ac *AsyncCallback) UpdateDataProcessed(items int, bytes int64) {
	ac.stats.updateDataProcessed(items, bytes)
}

// UpdateDataTotal forwards a total-items/bytes delta (which may be
// negative). Non-failing, non-blocking, lock-free.
func (ac *AsyncCallback) UpdateDataTotal(items int, bytes int64) {
	ac.stats.updateDataTotal(items, bytes)
}

// NotifyTaskBegin registers a new per-worker status slot at the given
// priority and returns its handle.
func (ac *AsyncCallback) NotifyTaskBegin(priority int) *ThreadStatus {
	ts := ac.registry.notifyTaskBegin(priority)
	ac.debugf("task begin priority=%d", priority)
	return ts
}

// NotifyTaskEnd removes ts's status slot. Must be called exactly once per
// NotifyTaskBegin, typically via defer.
func (ac *AsyncCallback) NotifyTaskEnd(ts *ThreadStatus) {
	ac.registry.notifyTaskEnd(ts)
	ac.debugf("task end priority=%d", ts.bucket)
}

// UpdateStatus overwrites ts's status message. Non-blocking; lossy by
// design (only the most recent message for a task is ever observed).
// Followed by an interruption checkpoint, per spec.md §4.3.
func (ac *AsyncCallback) UpdateStatus(ctx context.Context, ts *ThreadStatus, msg string) error {
	ac.registry.updateStatus(ts, msg)
	return checkpoint(ctx)
}

// LogInfo posts a user-visible log message, blocking until the main
// thread accepts it. This is the implicit "pause" point: if the main
// thread stops draining, every worker calling LogInfo queues up here.
func (ac *AsyncCallback) LogInfo(ctx context.Context, msg string) error {
	return ac.requests.logInfo(ctx, msg)
}

// ReportInfo is LogInfo followed by UpdateStatus with the same message.
func (ac *AsyncCallback) ReportInfo(ctx context.Context, ts *ThreadStatus, msg string) error {
	if err := ac.LogInfo(ctx, msg); err != nil {
		return err
	}
	return ac.UpdateStatus(ctx, ts, msg)
}

// ReportError posts a recoverable error and blocks until the main thread,
// via the external PhaseCallback, returns a Response.
func (ac *AsyncCallback) ReportError(ctx context.Context, info ErrorInfo) (Response, error) {
	return ac.requests.reportError(ctx, info)
}

// checkpoint is the interruption checkpoint referenced throughout spec.md
// §4.3/§5: a non-blocking observation of cancellation.
func checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrStopRequested
	default:
		return nil
	}
}

// --- main-side API -----------------------------------------------------

// NotifyAllDone signals that no more work will be submitted. Idempotent.
func (ac *AsyncCallback) NotifyAllDone() {
	ac.requests.notifyAllDone()
	ac.debugf("notify all done")
}

// reportStats drains the atomic counters and forwards every non-zero
// delta to external. Both processed and total deltas are forwarded —
// never dropped — even on the final drain triggered by finishNow.
func (ac *AsyncCallback) reportStats(external PhaseCallback) error {
	items, bytes, totalItems, totalBytes := ac.stats.drain()
	if items != 0 || bytes != 0 {
		external.UpdateDataProcessed(int(items), bytes)
	}
	if totalItems != 0 || totalBytes != 0 {
		external.UpdateDataTotal(int(totalItems), totalBytes)
	}
	return nil
}

// WaitUntilDone is the main-thread drive loop of spec.md §4.3. Each
// iteration computes a deadline tickInterval in the future, drains any
// pending request as soon as it appears, and otherwise wakes at the
// deadline to refresh the UI (update_status + report_stats). It returns
// once NotifyAllDone has fired and the final report_stats has run, or
// propagates any error raised by external (which is always called with the
// request lock released) or by ctx cancellation.
func (ac *AsyncCallback) WaitUntilDone(ctx context.Context, tickInterval time.Duration, external PhaseCallback) error {
	for {
		deadline := time.Now().Add(tickInterval)

		for {
			drained, finished, err := ac.requests.drainOnce(external)
			if err != nil {
				return err
			}
			if finished {
				return ac.reportStats(external)
			}
			if drained {
				continue
			}
			if !ac.requests.waitForRequest(deadline) {
				break
			}
		}

		if err := checkpoint(ctx); err != nil {
			return err
		}

		if err := external.UpdateStatus(ac.registry.getCurrentStatus()); err != nil {
			return wrapCallbackErr("UpdateStatus", err)
		}
		if err := ac.reportStats(external); err != nil {
			return err
		}
	}
}

func (ac *AsyncCallback) debugf(format string, args ...interface{}) {
	if ac.log == nil {
		return
	}
	ac.log.Debug().Msgf(format, args...)
}
