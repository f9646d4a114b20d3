// Package dataflow implements a rank-ordered reactive operator graph.
//
// Operators are added with their dependencies; each gets a rank one higher
// than its highest dependency. Updating or touching an operator schedules
// it for the next Evaluate, which pulls scheduled operators off a priority
// queue in rank order so each is evaluated at most once per run and only
// after everything it depends on.
//
// A Dataflow is not safe for concurrent use. Callers that share one across
// goroutines must serialise access.
package dataflow

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/dshills/vizview/internal/logging"
)

// ErrReentrantRun is returned when Evaluate is called from inside an
// operator update or listener.
var ErrReentrantRun = errors.New("dataflow: evaluation already in progress")

// ErrDuplicateName is returned when a named operator already exists.
var ErrDuplicateName = errors.New("dataflow: duplicate operator name")

// OperatorError wraps a failure raised by an operator update function.
type OperatorError struct {
	Operator string
	Err      error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator %s: %v", e.Operator, e.Err)
}

func (e *OperatorError) Unwrap() error {
	return e.Err
}

// Option configures a Dataflow.
type Option func(*Dataflow)

// WithLogger sets the logger used for evaluation tracing.
func WithLogger(l *logging.Logger) Option {
	return func(df *Dataflow) {
		if l != nil {
			df.logger = l
		}
	}
}

// WithErrorFunc sets the function that receives operator failures. The
// default logs them.
func WithErrorFunc(fn func(error)) Option {
	return func(df *Dataflow) {
		df.onError = fn
	}
}

// Dataflow is a reactive operator graph.
type Dataflow struct {
	clock   int
	nextID  int
	named   map[string]*Operator
	touched []*Operator
	running bool

	postRun []func()

	evaluated int
	onError   func(error)
	logger    *logging.Logger
}

// New creates an empty dataflow.
func New(opts ...Option) *Dataflow {
	df := &Dataflow{
		named:  make(map[string]*Operator),
		logger: logging.NullLogger(),
	}
	for _, opt := range opts {
		opt(df)
	}
	return df
}

// Add creates an operator computed by fn from deps and schedules it for
// the next evaluation. An empty name makes the operator anonymous.
func (df *Dataflow) Add(name string, init any, fn UpdateFunc, deps ...*Operator) (*Operator, error) {
	if name != "" {
		if _, exists := df.named[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}

	df.nextID++
	op := &Operator{
		id:     df.nextID,
		name:   name,
		value:  init,
		update: fn,
		deps:   append([]*Operator(nil), deps...),
	}
	for _, d := range deps {
		if d.rank >= op.rank {
			op.rank = d.rank + 1
		}
		d.targets = append(d.targets, op)
	}
	if name != "" {
		df.named[name] = op
	}

	df.Touch(op)
	return op, nil
}

// Signal creates a named source operator holding value.
func (df *Dataflow) Signal(name string, value any) (*Operator, error) {
	return df.Add(name, value, nil)
}

// Lookup returns the named operator.
func (df *Dataflow) Lookup(name string) (*Operator, bool) {
	op, ok := df.named[name]
	return op, ok
}

// Len returns the number of named operators.
func (df *Dataflow) Len() int {
	return len(df.named)
}

// On attaches a listener operator to source. fn is called with the
// source's value each time the source changes during an evaluation. key
// is stored on the listener operator for later lookup through Targets.
func (df *Dataflow) On(source *Operator, key any, fn func(value any) error) *Operator {
	df.nextID++
	op := &Operator{
		id:   df.nextID,
		rank: source.rank + 1,
		deps: []*Operator{source},
		key:  key,
		update: func(deps []any) (any, error) {
			return nil, fn(deps[0])
		},
	}
	source.targets = append(source.targets, op)
	return op
}

// UpdateOption adjusts how Update schedules an operator.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	skip  bool
	force bool
}

// Skip keeps the new value by skipping the operator's own update function
// on the next evaluation.
func Skip() UpdateOption {
	return func(c *updateConfig) { c.skip = true }
}

// Force schedules the operator even when the value is unchanged.
func Force() UpdateOption {
	return func(c *updateConfig) { c.force = true }
}

// Update sets op's value and schedules it when the value changed or Force
// is given. Returns whether the operator was scheduled.
func (df *Dataflow) Update(op *Operator, value any, opts ...UpdateOption) bool {
	var cfg updateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	changed := op.set(value)
	if !changed && !cfg.force {
		return false
	}
	if cfg.skip {
		op.skip = true
	}
	df.Touch(op)
	return true
}

// Touch schedules op for the next evaluation without changing its value.
func (df *Dataflow) Touch(op *Operator) {
	df.touched = append(df.touched, op)
}

// Pending reports whether any operator is scheduled.
func (df *Dataflow) Pending() bool {
	return len(df.touched) > 0
}

// Clock returns the number of evaluations started.
func (df *Dataflow) Clock() int {
	return df.clock
}

// Evaluated returns the number of operators evaluated by the last run.
func (df *Dataflow) Evaluated() int {
	return df.evaluated
}

// Running reports whether an evaluation is in progress.
func (df *Dataflow) Running() bool {
	return df.running
}

// Evaluate propagates all scheduled changes. Operator failures are passed
// to the error function and stop propagation along that path only. A
// cancelled context stops the run and returns the context error; operators
// not yet evaluated stay scheduled for the next run.
func (df *Dataflow) Evaluate(ctx context.Context) error {
	if df.running {
		return ErrReentrantRun
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	df.running = true
	defer func() { df.running = false }()

	df.clock++
	df.evaluated = 0

	q := &rankQueue{}
	queued := make(map[*Operator]bool, len(df.touched))
	for _, op := range df.touched {
		if !queued[op] {
			queued[op] = true
			heap.Push(q, op)
		}
	}
	df.touched = nil

	for q.Len() > 0 {
		if err := ctx.Err(); err != nil {
			df.touched = append(df.touched, (*q)...)
			return err
		}

		op := heap.Pop(q).(*Operator)
		changed := true

		if op.skip {
			op.skip = false
		} else if op.update != nil {
			v, err := op.update(op.depValues())
			if err != nil {
				df.error(&OperatorError{Operator: op.String(), Err: err})
				op.stamp = df.clock
				df.evaluated++
				continue
			}
			changed = op.set(v) || op.stamp == 0
		}

		op.stamp = df.clock
		df.evaluated++

		if !changed {
			continue
		}
		for _, t := range op.targets {
			if !queued[t] {
				queued[t] = true
				heap.Push(q, t)
			}
		}
	}

	df.logger.Debug("evaluated %d operators (clock %d)", df.evaluated, df.clock)
	return nil
}

// RunAfter queues fn to run once the current or next Run completes.
func (df *Dataflow) RunAfter(fn func()) {
	df.postRun = append(df.postRun, fn)
}

// FlushPostRun invokes queued RunAfter callbacks in order. Callbacks queued
// while flushing run in the same flush.
func (df *Dataflow) FlushPostRun() {
	for len(df.postRun) > 0 {
		cbs := df.postRun
		df.postRun = nil
		for _, cb := range cbs {
			cb()
		}
	}
}

// Run evaluates and then flushes RunAfter callbacks.
func (df *Dataflow) Run(ctx context.Context) error {
	if err := df.Evaluate(ctx); err != nil {
		return err
	}
	df.FlushPostRun()
	return nil
}

func (df *Dataflow) error(err error) {
	if df.onError != nil {
		df.onError(err)
		return
	}
	df.logger.Error("%v", err)
}

// rankQueue orders operators by rank, then creation order.
type rankQueue []*Operator

func (q rankQueue) Len() int { return len(q) }

func (q rankQueue) Less(i, j int) bool {
	if q[i].rank != q[j].rank {
		return q[i].rank < q[j].rank
	}
	return q[i].id < q[j].id
}

func (q rankQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *rankQueue) Push(x any) { *q = append(*q, x.(*Operator)) }

func (q *rankQueue) Pop() any {
	old := *q
	n := len(old)
	op := old[n-1]
	*q = old[:n-1]
	return op
}
