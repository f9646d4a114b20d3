package view

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/expr"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

// buildStreams registers a listener for every signal event stream.
// Streams on event types the event configuration forbids are skipped.
func (v *View) buildStreams() error {
	for _, decl := range v.spec.Signals {
		for j, st := range decl.On {
			sel, err := spec.ParseSelector(st.Events)
			if err != nil {
				return fmt.Errorf("signal %q on[%d]: %w", decl.Name, j, err)
			}
			e, err := expr.Compile(st.Update)
			if err != nil {
				return fmt.Errorf("signal %q on[%d]: %w", decl.Name, j, err)
			}
			l := v.streamListener(decl.Name, sel, e, st.Force)
			if _, err := v.handler.On(event.Type(sel.Type), l, nil); err != nil {
				if errors.Is(err, event.ErrTypeNotAllowed) {
					v.logger.Warn("signal %s: %v", decl.Name, err)
					continue
				}
				return err
			}
		}
	}
	return nil
}

// streamListener evaluates update for matching events and stores the
// result in the signal.
func (v *View) streamListener(name string, sel spec.Selector, update *expr.Expr, force bool) event.Listener {
	return func(e *event.Event, item *scene.Item) error {
		if !sel.Matches(item) {
			return nil
		}
		v.trap(KindSignal, name, func() error {
			env := make(expr.Env, len(v.signals)+2)
			for n, op := range v.signals {
				env[n] = op.Value()
			}
			env["event"] = eventValue(e)
			env["datum"] = nil
			if item != nil {
				env["datum"] = item.Datum
				env["item"] = itemValue(item)
			}
			val, err := v.eval.Eval(update, env)
			if err != nil {
				return err
			}
			var opts []dataflow.UpdateOption
			if force {
				opts = append(opts, dataflow.Force())
			}
			return v.SetSignal(name, val, opts...)
		})
		return nil
	}
}

// eventValue is the expression form of an event.
func eventValue(e *event.Event) map[string]any {
	return map[string]any{
		"type":   string(e.Type),
		"x":      e.X,
		"y":      e.Y,
		"button": float64(e.Button),
		"deltaX": e.DeltaX,
		"deltaY": e.DeltaY,
		"key":    e.Key,
		"shift":  e.Modifiers.Has(event.ModShift),
		"ctrl":   e.Modifiers.Has(event.ModCtrl),
		"alt":    e.Modifiers.Has(event.ModAlt),
		"meta":   e.Modifiers.Has(event.ModMeta),
		"width":  float64(e.Width),
		"height": float64(e.Height),
	}
}

// eventBuffer is the capacity of channels returned by Events.
const eventBuffer = 16

// Events returns a channel receiving events of type t that pass filter,
// and a function that stops delivery and closes the channel. A nil filter
// accepts everything. Events are dropped when the channel is full.
func (v *View) Events(t event.Type, filter func(*event.Event) bool) (<-chan *event.Event, func(), error) {
	ch := make(chan *event.Event, eventBuffer)
	reg, err := v.handler.On(t, func(e *event.Event, _ *scene.Item) error {
		if filter != nil && !filter(e) {
			return nil
		}
		select {
		case ch <- e:
		default:
			v.logger.Debug("events %s: buffer full, dropping", t)
		}
		return nil
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.handler.Off(reg.ID)
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Timer calls fn repeatedly at the given interval until stopped.
type Timer struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Timer starts calling fn every delay with the time elapsed since the
// timer started. fn runs on its own goroutine; it must not touch the view
// directly but hand work to the goroutine that owns it. Finalize stops
// every timer.
func (v *View) Timer(fn func(elapsed time.Duration), delay time.Duration) *Timer {
	if delay <= 0 {
		delay = time.Millisecond
	}
	t := &Timer{stop: make(chan struct{}), done: make(chan struct{})}
	start := time.Now()
	ticker := time.NewTicker(delay)
	go func() {
		defer close(t.done)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				fn(now.Sub(start))
			}
		}
	}()
	v.timers = append(v.timers, t)
	return t
}

// Stop halts the timer and waits for a running callback to return.
func (t *Timer) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
