package progress

import (
	"fmt"
	"sync"
)

// ThreadStatus is the handle a worker receives from NotifyTaskBegin and
// must hand back to UpdateStatus/NotifyTaskEnd. Go has no thread-local
// storage to recover "the calling thread" implicitly the way spec.md §4.2
// describes, so the handle plays that role explicitly; it is otherwise
// opaque to callers.
type ThreadStatus struct {
	message  string
	bucket   int
	index    int
	taskIdx  int
	released bool
}

// registry is the priority-ordered collection of per-worker status slots
// described in spec.md §4.2. A bucket index is a "priority" (e.g. a
// device's position in the mass-parallel executor's insertion order); a
// bucket is "active" iff non-empty. A linear scan over buckets is
// intentional — worker counts are small (tens) and it keeps the lock
// region tiny and avoids a hash table losing priority ordering.
type registry struct {
	mu             sync.Mutex
	buckets        [][]*ThreadStatus
	emitTaskIndex  bool
	nextTaskIdx    int
}

func newRegistry() *registry {
	return &registry{}
}

// setEmitTaskIndex controls whether GetCurrentStatus prefixes the
// representative message with "[#N]" in addition to the "[K threads]"
// prefix. Off by default, per spec.md's open question on the
// commented-out task-index mechanism.
func (r *registry) setEmitTaskIndex(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitTaskIndex = v
}

// notifyTaskBegin appends a new ThreadStatus to buckets[priority],
// growing the bucket vector as needed, and returns its handle.
func (r *registry) notifyTaskBegin(priority int) *ThreadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.buckets) <= priority {
		r.buckets = append(r.buckets, nil)
	}

	ts := &ThreadStatus{bucket: priority, taskIdx: r.nextTaskIdx}
	r.nextTaskIdx++
	r.buckets[priority] = append(r.buckets[priority], ts)
	ts.index = len(r.buckets[priority]) - 1
	return ts
}

// notifyTaskEnd removes ts from its bucket via swap-with-last, pop. It
// panics if ts has already been released or is not present — the
// registration/deregistration pair is expected to be balanced by every
// caller (spec.md testable property 4).
func (r *registry) notifyTaskEnd(ts *ThreadStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ts.released {
		panic("progress: notifyTaskEnd called twice for the same task")
	}
	b := r.buckets[ts.bucket]
	if ts.index >= len(b) || b[ts.index] != ts {
		panic("progress: notifyTaskEnd: handle not present in its bucket")
	}

	last := len(b) - 1
	b[ts.index] = b[last]
	b[ts.index].index = ts.index
	b[last] = nil
	r.buckets[ts.bucket] = b[:last]
	ts.released = true
}

// updateStatus overwrites ts's message. If ts is no longer present in its
// bucket (notifyTaskEnd already ran, a race between a worker's last
// update and its own task-end), the write is silently dropped — this is
// the spec's design choice to avoid races with task-end, not an error.
func (r *registry) updateStatus(ts *ThreadStatus, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ts.released {
		return
	}
	b := r.buckets[ts.bucket]
	if ts.index >= len(b) || b[ts.index] != ts {
		return
	}
	ts.message = msg
}

// getCurrentStatus counts non-empty buckets ("parallel_ops") and returns
// the first non-empty status message found scanning buckets in priority
// order. If parallel_ops >= 2 the message is prefixed with
// "[N threads] ".
func (r *registry) getCurrentStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	parallelOps := 0
	haveFirst := false
	var first string
	var firstTaskIdx int

	for _, bucket := range r.buckets {
		if len(bucket) == 0 {
			continue
		}
		parallelOps++
		if !haveFirst {
			for _, ts := range bucket {
				if ts.message != "" {
					first = ts.message
					firstTaskIdx = ts.taskIdx
					haveFirst = true
					break
				}
			}
		}
	}

	if !haveFirst {
		return ""
	}
	if r.emitTaskIndex {
		first = fmt.Sprintf("[#%d] %s", firstTaskIdx, first)
	}
	if parallelOps >= 2 {
		return fmt.Sprintf("[%d threads] %s", parallelOps, first)
	}
	return first
}

// bucketsEmpty reports whether every bucket is currently empty. Used by
// tests to verify the task registration balance invariant after a
// mass-parallel run completes.
func (r *registry) bucketsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.buckets {
		if len(b) != 0 {
			return false
		}
	}
	return true
}
