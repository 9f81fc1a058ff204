package progress

import (
	"context"
	"sync"
	"time"
)

// cond is a broadcast-capable wait primitive that, unlike sync.Cond,
// can be interrupted by a context. Design Notes §9 describes the
// interruptible wait as "a wait that returns a result-or-stopped variant";
// in idiomatic Go that is naturally a select over a channel and
// ctx.Done(), so the three condition variables of spec.md §4.3
// (cv_ready_for_new_request, cv_new_request, cv_have_response) are each
// realized as one of these rather than a raw sync.Cond.
type cond struct {
	mu sync.Mutex
	ch chan struct{}
}

func newCond() *cond {
	return &cond{ch: make(chan struct{})}
}

// channel snapshots the current wait channel. Callers must take the
// snapshot while still holding the request lock, then release that lock
// before selecting on it, exactly as a sync.Cond.Wait would.
func (c *cond) channel() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// broadcast wakes every goroutine currently waiting on channel().
func (c *cond) broadcast() {
	c.mu.Lock()
	old := c.ch
	c.ch = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// requestChannel is the main<->worker rendezvous of spec.md §4.3:
// PendingRequests guarded by one mutex, with three condition variables
// (here, cond) for signaling.
type requestChannel struct {
	mu sync.Mutex

	logInfoRequest *string
	errorRequest   *ErrorInfo
	errorResponse  *Response
	finishNow      bool

	cvReadyForNewRequest *cond
	cvNewRequest         *cond
	cvHaveResponse       *cond
}

func newRequestChannel() *requestChannel {
	return &requestChannel{
		cvReadyForNewRequest: newCond(),
		cvNewRequest:         newCond(),
		cvHaveResponse:       newCond(),
	}
}

// logInfo waits (interruptibly) until logInfoRequest is empty, stores msg,
// and signals cvNewRequest. This implicitly serializes workers behind the
// main thread: the main thread can simply stop draining and every worker
// posting a log message queues up behind the one pending slot — the
// system's only notion of "pause".
func (rc *requestChannel) logInfo(ctx context.Context, msg string) error {
	rc.mu.Lock()
	for rc.logInfoRequest != nil {
		waitCh := rc.cvReadyForNewRequest.channel()
		rc.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return ErrStopRequested
		}
		rc.mu.Lock()
	}
	m := msg
	rc.logInfoRequest = &m
	rc.mu.Unlock()

	rc.cvNewRequest.broadcast()
	return nil
}

// reportError waits until both errorRequest and errorResponse are empty,
// posts info, wakes the main thread, then waits for a response. It is a
// strict worker-main rendezvous: the worker resumes only after the
// external callback has produced a Response.
func (rc *requestChannel) reportError(ctx context.Context, info ErrorInfo) (Response, error) {
	rc.mu.Lock()
	for rc.errorRequest != nil || rc.errorResponse != nil {
		waitCh := rc.cvReadyForNewRequest.channel()
		rc.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return 0, ErrStopRequested
		}
		rc.mu.Lock()
	}
	e := info
	rc.errorRequest = &e
	rc.mu.Unlock()

	rc.cvNewRequest.broadcast()

	rc.mu.Lock()
	for rc.errorResponse == nil {
		waitCh := rc.cvHaveResponse.channel()
		rc.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return 0, ErrStopRequested
		}
		rc.mu.Lock()
	}
	resp := *rc.errorResponse
	rc.errorRequest = nil
	rc.errorResponse = nil
	rc.mu.Unlock()

	// May spuriously wake a logInfo waiter too; that's fine, it re-checks.
	rc.cvReadyForNewRequest.broadcast()
	return resp, nil
}

// notifyAllDone atomically sets finishNow and signals cvNewRequest. A
// second call is a no-op: spec.md leaves the double-call behavior
// undefined in the source and this reimplementation specifies it as
// idempotent.
func (rc *requestChannel) notifyAllDone() {
	rc.mu.Lock()
	alreadyDone := rc.finishNow
	rc.finishNow = true
	rc.mu.Unlock()

	if !alreadyDone {
		rc.cvNewRequest.broadcast()
	}
}

// drainOnce services at most one pending request (error, then log-info,
// then finish) by calling into external. It returns drained=true if it
// serviced a request and the caller should immediately re-check for more
// work, and finished=true once finishNow has been observed and handled.
func (rc *requestChannel) drainOnce(external PhaseCallback) (drained, finished bool, err error) {
	rc.mu.Lock()
	if rc.errorRequest != nil && rc.errorResponse == nil {
		info := *rc.errorRequest
		rc.mu.Unlock()

		resp, cbErr := external.ReportError(info)
		if cbErr != nil {
			return false, false, wrapCallbackErr("ReportError", cbErr)
		}

		rc.mu.Lock()
		r := resp
		rc.errorResponse = &r
		rc.mu.Unlock()
		rc.cvHaveResponse.broadcast()
		return true, false, nil
	}

	if rc.logInfoRequest != nil {
		msg := *rc.logInfoRequest
		rc.mu.Unlock()

		if cbErr := external.LogInfo(msg); cbErr != nil {
			return false, false, wrapCallbackErr("LogInfo", cbErr)
		}

		rc.mu.Lock()
		rc.logInfoRequest = nil
		rc.mu.Unlock()
		rc.cvReadyForNewRequest.broadcast()
		return true, false, nil
	}

	if rc.finishNow {
		rc.mu.Unlock()
		return false, true, nil
	}

	rc.mu.Unlock()
	return false, false, nil
}

// waitForRequest blocks until cvNewRequest is signaled or deadline
// passes, returning true if it woke due to a signal before the deadline.
func (rc *requestChannel) waitForRequest(deadline time.Time) bool {
	rc.mu.Lock()
	waitCh := rc.cvNewRequest.channel()
	rc.mu.Unlock()

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-waitCh:
		return true
	case <-timer.C:
		return false
	}
}
