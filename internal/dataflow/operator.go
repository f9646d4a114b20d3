package dataflow

import (
	"fmt"
	"reflect"
)

// UpdateFunc computes an operator's value from its dependencies' values,
// in the order the dependencies were declared.
type UpdateFunc func(deps []any) (any, error)

// Operator is a node of the dataflow graph.
type Operator struct {
	id    int
	name  string
	value any
	rank  int
	stamp int

	deps    []*Operator
	targets []*Operator
	update  UpdateFunc

	// key is an opaque back-reference set by whoever created a listener
	// operator, so it can be found again among its source's targets.
	key any

	skip  bool
	pulse *Pulse
}

// ID returns the operator's unique id within its dataflow.
func (op *Operator) ID() int {
	return op.id
}

// Name returns the operator's name, empty for anonymous operators.
func (op *Operator) Name() string {
	return op.name
}

// Value returns the current value.
func (op *Operator) Value() any {
	return op.value
}

// Rank returns the topological rank. Dependencies always rank lower.
func (op *Operator) Rank() int {
	return op.rank
}

// Stamp returns the clock value of the last run that evaluated this operator.
func (op *Operator) Stamp() int {
	return op.stamp
}

// Key returns the back-reference attached by On.
func (op *Operator) Key() any {
	return op.key
}

// Targets returns a copy of the operators that depend on this one, in
// registration order.
func (op *Operator) Targets() []*Operator {
	out := make([]*Operator, len(op.targets))
	copy(out, op.targets)
	return out
}

// Deps returns a copy of this operator's dependencies.
func (op *Operator) Deps() []*Operator {
	out := make([]*Operator, len(op.deps))
	copy(out, op.deps)
	return out
}

// RemoveTarget detaches t from this operator. Returns false if t was not
// a target.
func (op *Operator) RemoveTarget(t *Operator) bool {
	for i, x := range op.targets {
		if x == t {
			op.targets = append(op.targets[:i], op.targets[i+1:]...)
			for j, d := range t.deps {
				if d == op {
					t.deps = append(t.deps[:j], t.deps[j+1:]...)
					break
				}
			}
			return true
		}
	}
	return false
}

// Pulse returns the last change batch applied to a dataset operator.
func (op *Operator) Pulse() *Pulse {
	return op.pulse
}

// Skip marks the operator so its update function is not run on the next
// evaluation; its current value is kept and still propagates.
func (op *Operator) Skip(skip bool) {
	op.skip = skip
}

// set stores v and reports whether the value changed.
func (op *Operator) set(v any) bool {
	if sameValue(op.value, v) {
		return false
	}
	op.value = v
	return true
}

func (op *Operator) depValues() []any {
	vals := make([]any, len(op.deps))
	for i, d := range op.deps {
		vals[i] = d.value
	}
	return vals
}

func (op *Operator) String() string {
	if op.name != "" {
		return fmt.Sprintf("op(%d:%s)", op.id, op.name)
	}
	return fmt.Sprintf("op(%d)", op.id)
}

// sameValue compares scalars with == and composite values structurally.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		switch ta.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Struct, reflect.Array:
			return reflect.DeepEqual(a, b)
		}
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
