package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTryReportingSucceedsFirstTry(t *testing.T) {
	cb := NewAsyncCallback(nil)
	ext := &recordingCallback{}

	done := make(chan error, 1)
	go func() { done <- cb.WaitUntilDone(context.Background(), 5*time.Millisecond, ext) }()

	calls := 0
	msg, err := TryReporting(context.Background(), cb, func(ctx context.Context) error {
		calls++
		return nil
	})
	cb.NotifyAllDone()
	<-done

	if err != nil || msg != "" {
		t.Fatalf("TryReporting = (%q, %v), want (\"\", nil)", msg, err)
	}
	if calls != 1 {
		t.Fatalf("action called %d times, want 1", calls)
	}
}

func TestTryReportingRetriesUntilSuccess(t *testing.T) {
	cb := NewAsyncCallback(nil)
	ext := &recordingCallback{respondWith: ResponseRetry}

	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- cb.WaitUntilDone(ctx, 5*time.Millisecond, ext) }()

	calls := 0
	msg, err := TryReporting(context.Background(), cb, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	cb.NotifyAllDone()
	<-done

	if err != nil || msg != "" {
		t.Fatalf("TryReporting = (%q, %v), want (\"\", nil)", msg, err)
	}
	if calls != 3 {
		t.Fatalf("action called %d times, want 3", calls)
	}
}

func TestTryReportingIgnoreReturnsMessage(t *testing.T) {
	cb := NewAsyncCallback(nil)
	ext := &recordingCallback{respondWith: ResponseIgnore}

	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- cb.WaitUntilDone(ctx, 5*time.Millisecond, ext) }()

	msg, err := TryReporting(context.Background(), cb, func(ctx context.Context) error {
		return errors.New("permanent failure")
	})
	cb.NotifyAllDone()
	<-done

	if err != nil {
		t.Fatalf("TryReporting error = %v, want nil", err)
	}
	if msg != "permanent failure" {
		t.Fatalf("TryReporting message = %q, want %q", msg, "permanent failure")
	}
}

func TestTryReportingPropagatesStopRequested(t *testing.T) {
	cb := NewAsyncCallback(nil)

	_, err := TryReporting(context.Background(), cb, func(ctx context.Context) error {
		return ErrStopRequested
	})
	if !errors.Is(err, ErrStopRequested) {
		t.Fatalf("err = %v, want ErrStopRequested", err)
	}
}
