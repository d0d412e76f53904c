// Package watcher emits debounced change events for the source trees the
// index scans, so a burst of saves collapses into one rebuild trigger.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is one debounced change to a scanned source file.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Config holds the trees to watch and the exclusion patterns.
type Config struct {
	Roots    []string // frontend and backend roots
	Excludes []string // glob patterns from scan config
	Debounce time.Duration
}

const defaultDebounce = 250 * time.Millisecond

// Watcher watches the configured roots and emits debounced per-path events
// for files the scanners care about.
type Watcher struct {
	cfg      Config
	matcher  *Matcher
	debounce time.Duration

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher over the given roots.
func New(cfg Config) *Watcher {
	d := cfg.Debounce
	if d <= 0 {
		d = defaultDebounce
	}
	return &Watcher{
		cfg:      cfg,
		matcher:  NewMatcher(cfg.Excludes),
		debounce: d,
	}
}

// Start begins watching and returns the event channel. The channel closes
// when the context is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Event, 64)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !info.IsDir() {
			return nil
		}
		if w.matcher.MatchDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)

	// Per-path debounce: a timer resets on every new event for that path.
	type pending struct {
		event Event
		timer *time.Timer
	}
	pendingEvents := make(map[string]*pending)
	var mu sync.Mutex

	emit := func(evt Event) {
		select {
		case out <- evt:
		case <-ctx.Done():
		}
	}

	flushLater := func(path string) *time.Timer {
		return time.AfterFunc(w.debounce, func() {
			mu.Lock()
			p := pendingEvents[path]
			delete(pendingEvents, path)
			mu.Unlock()
			if p != nil {
				emit(p.event)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, p := range pendingEvents {
				p.timer.Stop()
			}
			mu.Unlock()
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}

			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			// New directories join the watch set before filtering, so
			// files created inside them are seen.
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if !w.matcher.MatchDir(fsEvent.Name) {
						_ = w.addRecursive(fsEvent.Name)
					}
					continue
				}
			}

			if w.matcher.MatchFile(fsEvent.Name) {
				continue
			}

			evt := Event{Path: fsEvent.Name, Op: op, Time: time.Now()}

			mu.Lock()
			if p, exists := pendingEvents[fsEvent.Name]; exists {
				p.timer.Stop()
				p.event = evt
				p.timer = flushLater(fsEvent.Name)
			} else {
				pendingEvents[fsEvent.Name] = &pending{event: evt, timer: flushLater(fsEvent.Name)}
			}
			mu.Unlock()

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Keep watching through transient errors.
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
