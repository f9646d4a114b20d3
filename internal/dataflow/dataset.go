package dataflow

// Tuple is one data record.
type Tuple = map[string]any

// Pulse describes the tuples a changeset added, removed and modified.
type Pulse struct {
	Stamp int
	Add   []any
	Rem   []any
	Mod   []any
}

// Changed reports whether the pulse carries any change.
func (p *Pulse) Changed() bool {
	return p != nil && (len(p.Add) > 0 || len(p.Rem) > 0 || len(p.Mod) > 0)
}

type modification struct {
	match func(any) bool
	field string
	value any
}

// Changeset is a batch of inserts, removals and field modifications to
// apply to a dataset. Removals apply before inserts, modifications last.
type Changeset struct {
	insert    []any
	remove    []func(any) bool
	removeAll bool
	modify    []modification
}

// NewChangeset creates an empty changeset.
func NewChangeset() *Changeset {
	return &Changeset{}
}

// Insert adds tuples.
func (c *Changeset) Insert(values ...any) *Changeset {
	c.insert = append(c.insert, values...)
	return c
}

// Remove removes tuples matching pred.
func (c *Changeset) Remove(pred func(any) bool) *Changeset {
	c.remove = append(c.remove, pred)
	return c
}

// RemoveValues removes the given tuples, compared structurally.
func (c *Changeset) RemoveValues(values ...any) *Changeset {
	for _, v := range values {
		v := v
		c.remove = append(c.remove, func(t any) bool { return sameValue(t, v) })
	}
	return c
}

// RemoveAll removes every existing tuple.
func (c *Changeset) RemoveAll() *Changeset {
	c.removeAll = true
	return c
}

// Modify sets field to value on every map tuple matching pred.
func (c *Changeset) Modify(pred func(any) bool, field string, value any) *Changeset {
	c.modify = append(c.modify, modification{match: pred, field: field, value: value})
	return c
}

// Empty reports whether the changeset does nothing.
func (c *Changeset) Empty() bool {
	return len(c.insert) == 0 && len(c.remove) == 0 && !c.removeAll && len(c.modify) == 0
}

// apply returns the new tuple slice and the pulse describing the change.
// The input slice is not mutated; modified map tuples are copied.
func (c *Changeset) apply(values []any) ([]any, *Pulse) {
	p := &Pulse{}
	out := make([]any, 0, len(values)+len(c.insert))

	for _, t := range values {
		if c.removeAll || c.removes(t) {
			p.Rem = append(p.Rem, t)
			continue
		}
		out = append(out, t)
	}

	out = append(out, c.insert...)
	p.Add = append(p.Add, c.insert...)

	for _, m := range c.modify {
		for i, t := range out {
			tuple, ok := t.(Tuple)
			if !ok || !m.match(t) {
				continue
			}
			cp := make(Tuple, len(tuple))
			for k, v := range tuple {
				cp[k] = v
			}
			cp[m.field] = m.value
			out[i] = cp
			p.Mod = append(p.Mod, cp)
		}
	}

	return out, p
}

func (c *Changeset) removes(t any) bool {
	for _, pred := range c.remove {
		if pred(t) {
			return true
		}
	}
	return false
}

// Dataset creates a named source operator holding a tuple collection.
func (df *Dataflow) Dataset(name string, values []any) (*Operator, error) {
	if values == nil {
		values = []any{}
	}
	op, err := df.Add(name, values, nil)
	if err != nil {
		return nil, err
	}
	op.pulse = &Pulse{Add: append([]any(nil), values...)}
	return op, nil
}

// Pulse applies a changeset to a dataset operator and schedules it when
// anything changed.
func (df *Dataflow) Pulse(op *Operator, cs *Changeset) *Pulse {
	current, _ := op.value.([]any)
	next, p := cs.apply(current)
	p.Stamp = df.clock + 1
	op.pulse = p
	if !p.Changed() {
		return p
	}
	op.value = next
	df.Touch(op)
	return p
}

// Values returns a dataset operator's tuples.
func Values(op *Operator) []any {
	v, _ := op.Value().([]any)
	return v
}
