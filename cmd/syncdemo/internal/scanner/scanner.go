// Package scanner watches a directory tree for filesystem events and turns
// them into progress.WorkItem values, coalescing bursts of repeat events for
// the same path into one work item per quiet period.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/entropycollective/syncprogress/pkg/progress"
)

// FileHandler is called once per coalesced filesystem event. A returned
// error becomes the work item's result, which MassParallelExecute does not
// act on; the scanner does not retry on the handler's behalf (callers
// wanting retry/ignore semantics should drive it through
// progress.TryReporting inside the handler).
type FileHandler func(pc *progress.ParallelContext, path string) error

// Scanner watches a directory tree and emits WorkItems, one per changed
// file, grouped by the file's containing directory so MassParallelExecute
// serializes I/O per directory.
type Scanner struct {
	watcher *fsnotify.Watcher
	root    string
	handle  FileHandler

	debounce time.Duration

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
	inFlight  sync.WaitGroup

	items          chan progress.WorkItem
	closeItemsOnce sync.Once
}

// Config tunes Scanner. The zero value selects a 300ms debounce window.
type Config struct {
	Debounce time.Duration
}

func (c Config) resolve() Config {
	if c.Debounce == 0 {
		c.Debounce = 300 * time.Millisecond
	}
	return c
}

// New creates a Scanner rooted at root. Call Run to start watching and
// Items to consume the resulting work items.
func New(root string, cfg Config, handle FileHandler) (*Scanner, error) {
	cfg = cfg.resolve()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scanner: creating fsnotify watcher: %w", err)
	}

	s := &Scanner{
		watcher:  w,
		root:     root,
		handle:   handle,
		debounce: cfg.Debounce,
		pending:  make(map[string]*time.Timer),
		items:    make(chan progress.WorkItem, 64),
	}
	return s, nil
}

// Run walks root, seeding one work item per pre-existing file and adding
// every directory to the watcher, then processes fsnotify events until ctx
// is cancelled. It blocks; call it from its own goroutine.
func (s *Scanner) Run(ctx context.Context) error {
	defer s.watcher.Close()

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return s.watcher.Add(path)
		}
		// Seed an initial sync for files that already exist before the
		// watcher starts observing events.
		s.emit(path)
		return nil
	})
	if err != nil {
		s.shutdown()
		return fmt.Errorf("scanner: walking %s: %w", s.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				s.shutdown()
				return nil
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				s.shutdown()
				return nil
			}
			s.shutdown()
			return fmt.Errorf("scanner: watcher error: %w", err)
		}
	}
}

// Items returns the channel of work items. It closes once Run has stopped
// every pending debounce timer and waited for any in-flight one to finish
// emitting.
func (s *Scanner) Items() <-chan progress.WorkItem {
	return s.items
}

// shutdown cancels every pending debounce timer (crediting inFlight for
// each one successfully stopped before it fired), waits for any timer
// whose callback was already running to finish, and only then closes
// items — so a debounce callback can never send on a closed channel.
func (s *Scanner) shutdown() {
	s.pendingMu.Lock()
	for name, t := range s.pending {
		if t.Stop() {
			s.inFlight.Done()
		}
		delete(s.pending, name)
	}
	s.pendingMu.Unlock()

	s.inFlight.Wait()
	s.closeItemsOnce.Do(func() { close(s.items) })
}

func (s *Scanner) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if t, ok := s.pending[ev.Name]; ok {
		if t.Stop() {
			s.inFlight.Done()
		}
	}

	s.inFlight.Add(1)
	name := ev.Name
	s.pending[name] = time.AfterFunc(s.debounce, func() {
		defer s.inFlight.Done()
		s.pendingMu.Lock()
		delete(s.pending, name)
		s.pendingMu.Unlock()
		s.emit(name)
	})
}

func (s *Scanner) emit(path string) {
	item := progress.WorkItem{
		Path: progress.ItemPath{Device: filepath.Dir(path), Display: path},
		Run: func(pc *progress.ParallelContext) error {
			return s.handle(pc, path)
		},
	}

	select {
	case s.items <- item:
	default:
		// Channel full: drop silently rather than block fsnotify's event
		// loop. A production watcher would size this generously and/or
		// apply backpressure upstream; this demo keeps the mechanism simple.
	}
}
