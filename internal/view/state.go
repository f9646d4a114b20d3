package view

import (
	"context"

	"github.com/dshills/vizview/internal/spec"
	"github.com/dshills/vizview/internal/state"
)

// stateAdapter exposes the view to the state package.
type stateAdapter struct {
	v *View
}

func (a stateAdapter) SignalNames() []string {
	return a.v.SignalNames()
}

func (a stateAdapter) Signal(name string) (any, error) {
	return a.v.Signal(name)
}

func (a stateAdapter) DataNames() []string {
	return a.v.DataNames()
}

func (a stateAdapter) Data(name string) ([]any, error) {
	return a.v.Data(name)
}

func (a stateAdapter) SetSignal(name string, value any) error {
	return a.v.SetSignal(name, value)
}

func (a stateAdapter) SetData(name string, values []any) error {
	return a.v.SetData(name, values)
}

// GetState serialises signal values and data sets as a JSON document.
func (v *View) GetState(opts ...state.Option) (string, error) {
	return state.Get(stateAdapter{v}, opts...)
}

// SetState restores a document produced by GetState and runs the view.
func (v *View) SetState(ctx context.Context, doc string) error {
	if err := state.Set(stateAdapter{v}, doc); err != nil {
		return err
	}
	return v.Run(ctx)
}

// Binding is a signal with an input control and its current value.
type Binding struct {
	Signal string
	Bind   spec.Bind
	Value  any
}

// Bindings returns the bound signals in declaration order.
func (v *View) Bindings() []Binding {
	var out []Binding
	for _, decl := range v.spec.Bindings() {
		b := Binding{Signal: decl.Name, Bind: *decl.Bind}
		if op, ok := v.signals[decl.Name]; ok {
			b.Value = op.Value()
		}
		out = append(out, b)
	}
	return out
}
