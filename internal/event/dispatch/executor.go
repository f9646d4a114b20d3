package dispatch

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Result is the outcome of one callback.
type Result struct {
	// Label names the callback, e.g. a signal or event type.
	Label string

	// Error is the returned error, or a *PanicError when Panicked.
	Error    error
	Panicked bool

	// Skipped is set when the context was already done.
	Skipped  bool
	Duration time.Duration
}

// Err returns the failure, or nil when the callback succeeded or was
// skipped.
func (r Result) Err() error {
	if r.Skipped {
		return nil
	}
	return r.Error
}

// PanicHandler observes recovered panics before they are folded into a
// Result.
type PanicHandler func(label string, value any, stack []byte)

// Stats counts executed callbacks.
type Stats struct {
	Calls    uint64
	Failures uint64
	Panics   uint64
	Skipped  uint64
	Total    time.Duration
}

// Executor runs callbacks. It is safe for concurrent use.
type Executor struct {
	onPanic PanicHandler

	calls    atomic.Uint64
	failures atomic.Uint64
	panics   atomic.Uint64
	skipped  atomic.Uint64
	totalNs  atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithPanicHandler sets a hook called for every recovered panic.
func WithPanicHandler(h PanicHandler) Option {
	return func(e *Executor) {
		e.onPanic = h
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteFunc runs fn. A panic in fn is recovered and reported in the
// result; it never propagates. A done ctx skips fn.
func (e *Executor) ExecuteFunc(ctx context.Context, label string, fn func() error) (res Result) {
	res.Label = label
	if ctx.Err() != nil {
		res.Skipped = true
		e.skipped.Add(1)
		return res
	}

	e.calls.Add(1)
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		e.totalNs.Add(int64(res.Duration))

		if r := recover(); r != nil {
			stack := debug.Stack()
			res.Panicked = true
			res.Error = &PanicError{Value: r, Stack: stack}
			e.panics.Add(1)
			if e.onPanic != nil {
				// A panicking hook must not escape either.
				func() {
					defer func() { _ = recover() }()
					e.onPanic(label, r, stack)
				}()
			}
		}
		if res.Error != nil {
			e.failures.Add(1)
		}
	}()

	res.Error = fn()
	return res
}

// Stats returns a snapshot of the counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Calls:    e.calls.Load(),
		Failures: e.failures.Load(),
		Panics:   e.panics.Load(),
		Skipped:  e.skipped.Load(),
		Total:    time.Duration(e.totalNs.Load()),
	}
}
