package view

import (
	"context"

	"github.com/google/uuid"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/scene"
)

// Token identifies a listener registration.
type Token string

// EventListener handles input events. Registrations are matched by
// pointer, so keep the pointer to remove it later.
type EventListener struct {
	Fn func(e *event.Event, item *scene.Item) error
}

// NewEventListener wraps fn.
func NewEventListener(fn func(e *event.Event, item *scene.Item) error) *EventListener {
	return &EventListener{Fn: fn}
}

// SignalListener is called with the signal's name and new value after it
// changes.
type SignalListener struct {
	Fn func(name string, value any) error
}

// NewSignalListener wraps fn.
func NewSignalListener(fn func(name string, value any) error) *SignalListener {
	return &SignalListener{Fn: fn}
}

// ResizeListener is called with the new surface size after a resize.
type ResizeListener struct {
	Fn func(width, height float64) error
}

// NewResizeListener wraps fn.
func NewResizeListener(fn func(width, height float64) error) *ResizeListener {
	return &ResizeListener{Fn: fn}
}

type listenerConfig struct {
	trap bool
}

// ListenerOption configures an event listener registration.
type ListenerOption func(*listenerConfig)

// WithTrap controls error trapping. Trapped listeners (the default)
// report failures and panics to the error channel; untrapped listeners
// return their errors from Dispatch and may panic through it.
func WithTrap(trap bool) ListenerOption {
	return func(c *listenerConfig) {
		c.trap = trap
	}
}

// signalRegistration is one signal listener adapter.
type signalRegistration struct {
	name    string
	source  *dataflow.Operator
	adapter *dataflow.Operator
}

// AddEventListener registers l for events of type t and returns its token.
func (v *View) AddEventListener(t event.Type, l *EventListener, opts ...ListenerOption) (Token, error) {
	if l == nil || l.Fn == nil {
		return "", ErrNilListener
	}
	cfg := listenerConfig{trap: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	wrapped := event.Listener(l.Fn)
	if cfg.trap {
		wrapped = func(e *event.Event, item *scene.Item) error {
			v.trap(KindEvent, string(e.Type), func() error { return l.Fn(e, item) })
			return nil
		}
	}

	reg, err := v.handler.On(t, wrapped, l)
	if err != nil {
		return "", err
	}
	return Token(reg.ID), nil
}

// RemoveEventListener removes the most recent registration of l for t.
// Earlier duplicate registrations stay in place. Returns whether one was
// removed.
func (v *View) RemoveEventListener(t event.Type, l *EventListener) bool {
	regs := v.handler.Listeners(t)
	for i := len(regs) - 1; i >= 0; i-- {
		if raw, ok := regs[i].Raw.(*EventListener); ok && raw == l {
			return v.handler.Off(regs[i].ID)
		}
	}
	return false
}

// EventListeners returns how many listeners l has registered for t.
func (v *View) EventListeners(t event.Type, l *EventListener) int {
	n := 0
	for _, reg := range v.handler.Listeners(t) {
		if raw, ok := reg.Raw.(*EventListener); ok && raw == l {
			n++
		}
	}
	return n
}

// RemoveListener removes an event or signal listener by token.
func (v *View) RemoveListener(tok Token) bool {
	if reg, ok := v.signalRegs[tok]; ok {
		reg.source.RemoveTarget(reg.adapter)
		delete(v.signalRegs, tok)
		return true
	}
	return v.handler.Off(string(tok))
}

// AddResizeListener registers l. Adding the same listener twice has no
// effect.
func (v *View) AddResizeListener(l *ResizeListener) {
	if l == nil {
		return
	}
	for _, x := range v.resizeListeners {
		if x == l {
			return
		}
	}
	v.resizeListeners = append(v.resizeListeners, l)
}

// RemoveResizeListener removes l if registered.
func (v *View) RemoveResizeListener(l *ResizeListener) {
	for i, x := range v.resizeListeners {
		if x == l {
			v.resizeListeners = append(v.resizeListeners[:i:i], v.resizeListeners[i+1:]...)
			return
		}
	}
}

// ResizeListeners returns the number of registered resize listeners.
func (v *View) ResizeListeners() int {
	return len(v.resizeListeners)
}

// AddSignalListener calls l whenever the named signal changes. A listener
// already attached to the signal is not attached again; its original
// token is returned.
func (v *View) AddSignalListener(name string, l *SignalListener) (Token, error) {
	op, err := v.lookupSignal(name)
	if err != nil {
		return "", err
	}
	if l == nil || l.Fn == nil {
		return "", ErrNilListener
	}

	if adapter := findAdapter(op, l); adapter != nil {
		for tok, reg := range v.signalRegs {
			if reg.adapter == adapter {
				return tok, nil
			}
		}
	}

	adapter := v.df.On(op, l, func(value any) error {
		v.trap(KindSignal, name, func() error { return l.Fn(name, value) })
		return nil
	})
	tok := Token(uuid.NewString())
	v.signalRegs[tok] = signalRegistration{name: name, source: op, adapter: adapter}
	return tok, nil
}

// RemoveSignalListener detaches l from the named signal. Removing a
// listener that is not attached is a no-op.
func (v *View) RemoveSignalListener(name string, l *SignalListener) error {
	op, err := v.lookupSignal(name)
	if err != nil {
		return err
	}
	adapter := findAdapter(op, l)
	if adapter == nil {
		return nil
	}
	op.RemoveTarget(adapter)
	for tok, reg := range v.signalRegs {
		if reg.adapter == adapter {
			delete(v.signalRegs, tok)
		}
	}
	return nil
}

// SignalListeners returns the number of listener adapters on a signal.
func (v *View) SignalListeners(name string) (int, error) {
	op, err := v.lookupSignal(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range op.Targets() {
		if _, ok := t.Key().(*SignalListener); ok {
			n++
		}
	}
	return n, nil
}

// findAdapter returns the listener operator on op bound to l.
func findAdapter(op *dataflow.Operator, l *SignalListener) *dataflow.Operator {
	for _, t := range op.Targets() {
		if key, ok := t.Key().(*SignalListener); ok && key == l {
			return t
		}
	}
	return nil
}

// trap runs fn, reporting a returned error or recovered panic once.
func (v *View) trap(kind ListenerKind, name string, fn func() error) {
	res := v.exec.ExecuteFunc(context.Background(), name, fn)
	if err := res.Err(); err != nil {
		v.stats.ListenerErrors++
		v.report(&ListenerError{Kind: kind, Name: name, Err: err})
	}
}

// report sends a contained failure to the error channel.
func (v *View) report(err error) {
	v.logger.Error("%v", err)
	if v.onError != nil {
		v.onError(err)
	}
}
