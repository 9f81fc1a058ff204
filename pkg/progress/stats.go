package progress

import "sync/atomic"

// statAccumulator holds the four pending-delta counters described in
// spec.md §3/§4.1. All operations are non-blocking and must not fail;
// workers may call UpdateDataProcessed/UpdateDataTotal concurrently from
// any number of goroutines without coordination.
type statAccumulator struct {
	itemsProcessed atomic.Int64
	bytesProcessed atomic.Int64
	itemsTotal     atomic.Int64
	bytesTotal     atomic.Int64
}

func (s *statAccumulator) updateDataProcessed(items int, bytes int64) {
	s.itemsProcessed.Add(int64(items))
	s.bytesProcessed.Add(bytes)
}

func (s *statAccumulator) updateDataTotal(items int, bytes int64) {
	s.itemsTotal.Add(int64(items))
	s.bytesTotal.Add(bytes)
}

// drain reads the current value of each counter and subtracts exactly
// what was read, rather than storing zero, so that any increment a
// worker races in between the read and the subtract is preserved for the
// next drain. This is the load-bearing property from spec.md §4.1: the
// sum of everything ever forwarded to the external callback must equal
// the sum of everything workers ever posted.
func (s *statAccumulator) drain() (items, bytes, totalItems, totalBytes int64) {
	items = drainInt64(&s.itemsProcessed)
	bytes = drainInt64(&s.bytesProcessed)
	totalItems = drainInt64(&s.itemsTotal)
	totalBytes = drainInt64(&s.bytesTotal)
	return
}

func drainInt64(counter *atomic.Int64) int64 {
	v := counter.Load()
	counter.Add(-v)
	return v
}
