// Package watch reloads a specification file when it changes on disk.
//
// The parent directory is watched rather than the file itself so editors
// that save by writing a temporary file and renaming it over the original
// are still observed. Rapid bursts of events are coalesced into a single
// callback.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/vizview/internal/logging"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// DefaultDebounce is the delay used to coalesce change bursts.
const DefaultDebounce = 100 * time.Millisecond

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed.
	OpRename
)

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event describes a coalesced change to the watched file.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Handler is called after the watched file settles.
type Handler func(Event)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher observes a single file.
type Watcher struct {
	mu sync.Mutex

	path    string
	watcher *fsnotify.Watcher
	delay   time.Duration
	logger  *logging.Logger

	pending *Event
	timer   *time.Timer

	closed bool
	events int64
}

// New starts watching path. The file must exist.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    abs,
		watcher: fsw,
		delay:   DefaultDebounce,
		logger:  logging.NullLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watch")
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run delivers coalesced change events to fn until ctx is done or the
// watcher is closed. fn runs on a timer goroutine; calls never overlap.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.mu.Unlock()

	var fire sync.Mutex
	deliver := func() {
		w.mu.Lock()
		ev := w.pending
		w.pending = nil
		w.mu.Unlock()
		if ev == nil {
			return
		}
		fire.Lock()
		defer fire.Unlock()
		fn(*ev)
	}

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(fsEvent.Name) != w.path {
				continue
			}
			op := convertOp(fsEvent.Op)
			if op == 0 {
				continue
			}
			w.schedule(op, deliver)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// schedule records op and (re)arms the debounce timer.
func (w *Watcher) schedule(op Op, deliver func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events++
	if w.pending != nil {
		w.pending.Op |= op
		w.pending.Timestamp = time.Now()
		w.timer.Reset(w.delay)
		return
	}
	w.pending = &Event{Path: w.path, Op: op, Timestamp: time.Now()}
	w.timer = time.AfterFunc(w.delay, deliver)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
}

// Events returns the number of raw file events observed.
func (w *Watcher) Events() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.stopTimer()
	return w.watcher.Close()
}

// convertOp converts fsnotify.Op to Op. Chmod is ignored.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
