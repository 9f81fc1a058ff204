package progress

import (
	"errors"
	"fmt"
)

// ErrStopRequested is the cooperative cancellation signal. It is returned
// by every interruptible wait and checkpoint once cancellation has been
// signaled (the context passed to the operation was cancelled). Callers
// should test for it with errors.Is; it unwinds through any scoped
// ItemStatReporter/PercentReporter so totals are reconciled against work
// actually attempted.
var ErrStopRequested = errors.New("progress: stop requested")

// CallbackError wraps a failure raised by the external PhaseCallback from
// within AsyncCallback.WaitUntilDone. It aborts the run with no further UI
// updates (§7 of the design).
type CallbackError struct {
	Op  string
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("progress: phase callback failed during %s: %v", e.Op, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

func wrapCallbackErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CallbackError{Op: op, Err: err}
}
