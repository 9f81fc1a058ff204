package progress

import (
	"context"
	"errors"
	"time"
)

// Action is a fallible unit of work driven by TryReporting.
type Action func(ctx context.Context) error

// TryReporting loops a fallible action, consulting the AsyncCallback's
// error resolution on each failure (spec.md §4.6). There is no implicit
// retry cap: the external observer decides via ResponseRetry/ResponseIgnore.
//
// On success it returns ("", nil). On a StopRequested failure (from
// action or from the error-reporting rendezvous itself) it propagates the
// error unchanged. On an ignored failure it returns the failing message
// (so the caller can log it as a "skipped" outcome) and a nil error.
func TryReporting(ctx context.Context, cb *AsyncCallback, action Action) (skippedMessage string, err error) {
	retryNumber := 0
	for {
		actionErr := action(ctx)
		if actionErr == nil {
			return "", nil
		}
		if errors.Is(actionErr, ErrStopRequested) {
			return "", actionErr
		}

		info := ErrorInfo{
			Message:     actionErr.Error(),
			Timestamp:   time.Now(),
			RetryNumber: retryNumber,
		}
		resp, err := cb.ReportError(ctx, info)
		if err != nil {
			return "", err
		}
		if resp == ResponseRetry {
			retryNumber++
			continue
		}
		return info.Message, nil
	}
}
