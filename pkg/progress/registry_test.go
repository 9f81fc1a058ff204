package progress

import "testing"

func TestRegistryGetCurrentStatusEmpty(t *testing.T) {
	r := newRegistry()
	if got := r.getCurrentStatus(); got != "" {
		t.Fatalf("getCurrentStatus() = %q, want empty", got)
	}
}

func TestRegistrySingleTaskNoPrefix(t *testing.T) {
	r := newRegistry()
	ts := r.notifyTaskBegin(0)
	r.updateStatus(ts, "scanning")

	if got, want := r.getCurrentStatus(), "scanning"; got != want {
		t.Fatalf("getCurrentStatus() = %q, want %q", got, want)
	}
}

func TestRegistryMultipleTasksGetThreadCountPrefix(t *testing.T) {
	r := newRegistry()
	a := r.notifyTaskBegin(0)
	b := r.notifyTaskBegin(1)
	r.updateStatus(a, "copying a")
	r.updateStatus(b, "copying b")

	got := r.getCurrentStatus()
	if want := "[2 threads] copying a"; got != want {
		t.Fatalf("getCurrentStatus() = %q, want %q", got, want)
	}
}

func TestRegistryPriorityOrderingPicksLowestActiveBucket(t *testing.T) {
	r := newRegistry()
	lo := r.notifyTaskBegin(0)
	r.notifyTaskBegin(5)
	r.updateStatus(lo, "low priority task")

	r.notifyTaskEnd(lo)
	hi := r.notifyTaskBegin(5)
	r.updateStatus(hi, "now the only one")

	if got, want := r.getCurrentStatus(), "now the only one"; got != want {
		t.Fatalf("getCurrentStatus() = %q, want %q", got, want)
	}
}

func TestRegistryTaskEndSwapRemove(t *testing.T) {
	r := newRegistry()
	a := r.notifyTaskBegin(0)
	b := r.notifyTaskBegin(0)
	c := r.notifyTaskBegin(0)

	r.notifyTaskEnd(a)
	if len(r.buckets[0]) != 2 {
		t.Fatalf("bucket length = %d, want 2 after removing one of three", len(r.buckets[0]))
	}
	remaining := map[*ThreadStatus]bool{r.buckets[0][0]: true, r.buckets[0][1]: true}
	if !remaining[b] || !remaining[c] {
		t.Fatalf("expected b and c to remain after removing a")
	}

	r.notifyTaskEnd(b)
	r.notifyTaskEnd(c)
	if !r.bucketsEmpty() {
		t.Fatalf("bucketsEmpty() = false after removing every task")
	}
}

func TestRegistryTaskEndTwiceReleasedPanics(t *testing.T) {
	r := newRegistry()
	ts := r.notifyTaskBegin(0)
	r.notifyTaskEnd(ts)

	defer func() {
		if recover() == nil {
			t.Fatal("expected notifyTaskEnd to panic on double release")
		}
	}()
	r.notifyTaskEnd(ts)
}

func TestRegistryUpdateStatusAfterReleaseIsDropped(t *testing.T) {
	r := newRegistry()
	ts := r.notifyTaskBegin(0)
	r.notifyTaskEnd(ts)

	r.updateStatus(ts, "too late")
	if got := r.getCurrentStatus(); got != "" {
		t.Fatalf("getCurrentStatus() = %q, want empty after stale update", got)
	}
}

func TestRegistryEmitTaskIndexPrefix(t *testing.T) {
	r := newRegistry()
	r.setEmitTaskIndex(true)
	ts := r.notifyTaskBegin(0)
	r.updateStatus(ts, "indexed")

	if got, want := r.getCurrentStatus(), "[#0] indexed"; got != want {
		t.Fatalf("getCurrentStatus() = %q, want %q", got, want)
	}
}
