package progress

// Unlocker is the subset of sync.Locker this package needs to release a
// caller-held lock around a sub-operation.
type Unlocker interface {
	Lock()
	Unlock()
}

// WithUnlocked temporarily releases l, runs fn, and re-acquires l on every
// exit path including a panic in fn (spec.md §4.8). Callers normally hold
// a single-threading lock (e.g. to serialize access to a log-info choke
// point) and use this to enter a genuinely parallel region without
// deadlocking that choke point.
func WithUnlocked(l Unlocker, fn func() error) error {
	l.Unlock()
	defer l.Lock()
	return fn()
}
