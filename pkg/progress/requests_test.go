package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCondBroadcastWakesWaiters(t *testing.T) {
	c := newCond()
	ch := c.channel()

	done := make(chan struct{})
	go func() {
		<-ch
		close(done)
	}()

	c.broadcast()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast did not wake waiter")
	}
}

func TestRequestChannelLogInfoDrainedByMain(t *testing.T) {
	rc := newRequestChannel()
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- rc.logInfo(ctx, "hello") }()

	deadline := time.Now().Add(time.Second)
	for {
		drained, _, err := rc.drainOnce(noopCallback{})
		if err != nil {
			t.Fatalf("drainOnce error: %v", err)
		}
		if drained {
			break
		}
		if !rc.waitForRequest(deadline) {
			t.Fatal("timed out waiting for logInfo request")
		}
	}

	if err := <-errCh; err != nil {
		t.Fatalf("logInfo returned error: %v", err)
	}
}

func TestRequestChannelReportErrorRoundTrip(t *testing.T) {
	rc := newRequestChannel()
	ctx := context.Background()

	respCh := make(chan Response, 1)
	go func() {
		resp, err := rc.reportError(ctx, ErrorInfo{Message: "boom"})
		if err != nil {
			t.Errorf("reportError error: %v", err)
		}
		respCh <- resp
	}()

	deadline := time.Now().Add(time.Second)
	for {
		drained, _, err := rc.drainOnce(respondRetryCallback{})
		if err != nil {
			t.Fatalf("drainOnce error: %v", err)
		}
		if drained {
			break
		}
		if !rc.waitForRequest(deadline) {
			t.Fatal("timed out waiting for error request")
		}
	}

	select {
	case resp := <-respCh:
		if resp != ResponseRetry {
			t.Fatalf("resp = %v, want ResponseRetry", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestRequestChannelLogInfoInterruptedByContext(t *testing.T) {
	rc := newRequestChannel()
	ctx, cancel := context.WithCancel(context.Background())

	// Fill the single log-info slot so the next call must wait.
	if err := rc.logInfo(context.Background(), "first"); err != nil {
		t.Fatalf("first logInfo failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- rc.logInfo(ctx, "second") }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStopRequested) {
			t.Fatalf("logInfo error = %v, want ErrStopRequested", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interrupted logInfo")
	}
}

func TestRequestChannelNotifyAllDoneIdempotent(t *testing.T) {
	rc := newRequestChannel()
	rc.notifyAllDone()
	rc.notifyAllDone() // must not panic or deadlock

	_, finished, err := rc.drainOnce(noopCallback{})
	if err != nil {
		t.Fatalf("drainOnce error: %v", err)
	}
	if !finished {
		t.Fatal("expected finished=true after notifyAllDone")
	}
}

type noopCallback struct{}

func (noopCallback) UpdateDataProcessed(int, int64)       {}
func (noopCallback) UpdateDataTotal(int, int64)           {}
func (noopCallback) UpdateStatus(string) error            { return nil }
func (noopCallback) LogInfo(string) error                 { return nil }
func (noopCallback) ReportError(ErrorInfo) (Response, error) {
	return ResponseIgnore, nil
}

type respondRetryCallback struct{ noopCallback }

func (respondRetryCallback) ReportError(ErrorInfo) (Response, error) {
	return ResponseRetry, nil
}
