// Package progress implements the rendezvous between many parallel I/O
// worker goroutines and a single user-facing observer (the PhaseCallback).
//
// Workers stream processed-item counters, per-worker status text,
// user-visible log messages, and recoverable-error queries back to a main
// goroutine through an AsyncCallback. The main goroutine drains those on a
// bounded tick, forwards them to an external PhaseCallback, and returns
// retry/ignore decisions for errors.
//
// The package owns none of the concrete I/O, UI, or persistence concerns —
// those are consumed through the narrow PhaseCallback and WorkFunc
// interfaces (see types.go).
package progress
