package progress

import (
	"context"
	"time"
)

// Response is a user decision returned from PhaseCallback.ReportError.
type Response int

const (
	// ResponseIgnore means the caller should treat the error as handled and
	// move on; the failing message is surfaced to the caller for logging.
	ResponseIgnore Response = iota
	// ResponseRetry means the caller should re-attempt the failing action.
	ResponseRetry
)

func (r Response) String() string {
	switch r {
	case ResponseRetry:
		return "retry"
	default:
		return "ignore"
	}
}

// ErrorInfo describes a recoverable error a worker is asking the external
// observer to resolve.
type ErrorInfo struct {
	Message     string
	Timestamp   time.Time
	RetryNumber int
}

// PhaseCallback is the external, user-facing observer owned outside this
// package (§6 of the design: UI, logger, or any other phase-driving
// collaborator). update_data_processed/update_data_total are non-failing
// and purely additive (deltas may be negative for update_data_total);
// update_status, log_info, and report_error may fail/raise to abort the
// run.
type PhaseCallback interface {
	UpdateDataProcessed(items int, bytes int64)
	UpdateDataTotal(items int, bytes int64)
	UpdateStatus(text string) error
	LogInfo(text string) error
	ReportError(info ErrorInfo) (Response, error)
}

// ItemPath identifies one unit of mass-parallel work: a Device grouping
// key (opaque, supplied by the caller's I/O layer) and a human-readable
// Display string for the item. MassParallelExecute names each device's
// worker pool after its Device key, not after Display.
type ItemPath struct {
	Device  string
	Display string
}

// ParallelContext is handed to a WorkFunc for each submitted work item.
type ParallelContext struct {
	Ctx      context.Context
	Path     ItemPath
	Callback *AsyncCallback
	status   *ThreadStatus
}

// Status returns the per-task registry handle this work item was
// registered under, for use with AsyncCallback.UpdateStatus /
// NewPercentReporter.
func (pc *ParallelContext) Status() *ThreadStatus {
	return pc.status
}

// WorkFunc is a caller-supplied unit of work. It may fail with
// ErrStopRequested (propagated from any blocking or checkpointed
// AsyncCallback operation it calls); any other failure is the work
// function's own responsibility to surface through ReportError/TryReporting.
type WorkFunc func(ctx *ParallelContext) error

// WorkItem pairs a path (used for device grouping and priority ordering)
// with the function that performs the work.
type WorkItem struct {
	Path ItemPath
	Run  WorkFunc
}
