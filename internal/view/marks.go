package view

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/expr"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

// Encoding set names.
const (
	EncodeEnter  = "enter"
	EncodeUpdate = "update"
	EncodeHover  = "hover"
)

// channel is one compiled encoding channel.
type channel struct {
	name string
	ref  spec.ValueRef
	expr *expr.Expr
}

// markNode builds the items of one mark into its container group.
type markNode struct {
	mark     spec.Mark
	typ      scene.MarkType
	box      *scene.Item
	sets     map[string][]channel
	children []*markNode
}

// buildMarks creates a container and an operator for each top-level
// mark. A group mark's operator rebuilds its nested marks too.
func (v *View) buildMarks() error {
	for i, m := range v.spec.Marks {
		node, err := v.compileMark(m)
		if err != nil {
			return fmt.Errorf("marks[%d]: %w", i, err)
		}
		v.graph.Root.Add(node.box)
		v.markByBox[node.box] = node
		v.marks = append(v.marks, node)

		var deps []*dataflow.Operator
		seen := make(map[*dataflow.Operator]bool)
		node.collectDeps(v, func(op *dataflow.Operator) {
			if !seen[op] {
				seen[op] = true
				deps = append(deps, op)
			}
		})
		name := ""
		if m.Name != "" {
			name = "mark:" + m.Name
		}
		n := node
		if _, err := v.df.Add(name, nil, func([]any) (any, error) {
			return nil, v.buildItems(n, n.box, nil)
		}, deps...); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) compileMark(m spec.Mark) (*markNode, error) {
	node := &markNode{
		mark: m,
		typ:  scene.MarkType(m.Type),
		box:  scene.NewGroup(m.Name),
		sets: make(map[string][]channel),
	}
	for set, refs := range map[string]map[string]spec.ValueRef{
		EncodeEnter:  m.Encode.Enter,
		EncodeUpdate: m.Encode.Update,
		EncodeHover:  m.Encode.Hover,
	} {
		keys := make([]string, 0, len(refs))
		for k := range refs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ch := channel{name: k, ref: refs[k]}
			if src := ch.ref.Signal; src != "" {
				e, err := expr.Compile(src)
				if err != nil {
					return nil, fmt.Errorf("encode.%s.%s: %w", set, k, err)
				}
				ch.expr = e
			}
			node.sets[set] = append(node.sets[set], ch)
		}
	}
	for i, child := range m.Marks {
		c, err := v.compileMark(child)
		if err != nil {
			return nil, fmt.Errorf("marks[%d]: %w", i, err)
		}
		node.children = append(node.children, c)
	}
	return node, nil
}

// collectDeps reports the data set and signal operators the mark and its
// children read.
func (n *markNode) collectDeps(v *View, add func(*dataflow.Operator)) {
	if n.mark.From != nil {
		if op, ok := v.datasets[n.mark.From.Data]; ok {
			add(op)
		}
	}
	for _, chans := range n.sets {
		for _, ch := range chans {
			if ch.expr == nil {
				continue
			}
			for _, ref := range ch.expr.Refs() {
				if op, ok := v.signals[ref]; ok {
					add(op)
				}
			}
		}
	}
	for _, c := range n.children {
		c.collectDeps(v, add)
	}
}

// buildItems replaces the items in box with one item per datum. parent
// is the enclosing group's datum, used when the mark has no data source.
func (v *View) buildItems(n *markNode, box *scene.Item, parent any) error {
	if descendant(v.handler.Active(), box) {
		v.handler.Reset()
	}
	for _, old := range box.Items {
		v.forget(old)
		v.Dirty(old)
	}
	box.Clear()

	data := []any{parent}
	if n.mark.From != nil {
		data = dataflow.Values(v.datasets[n.mark.From.Data])
	}

	for _, datum := range data {
		item := scene.NewItem(n.typ)
		item.Name = n.mark.Name
		item.Datum = datum
		box.Add(item)
		if err := v.encode(n, item, EncodeEnter); err != nil {
			return err
		}
		if err := v.encode(n, item, EncodeUpdate); err != nil {
			return err
		}
		for _, c := range n.children {
			cbox := scene.NewGroup(c.mark.Name)
			item.Add(cbox)
			v.markByBox[cbox] = c
			if err := v.buildItems(c, cbox, datum); err != nil {
				return err
			}
		}
		v.Dirty(item)
	}
	return nil
}

// descendant reports whether it sits below box in the scene.
func descendant(it, box *scene.Item) bool {
	if it == nil {
		return false
	}
	for p := it.Parent; p != nil; p = p.Parent {
		if p == box {
			return true
		}
	}
	return false
}

// forget drops nested container registrations below a removed item.
func (v *View) forget(it *scene.Item) {
	for _, c := range it.Items {
		delete(v.markByBox, c)
		v.forget(c)
	}
}

// encode applies an encoding set to item.
func (v *View) encode(n *markNode, item *scene.Item, set string) error {
	chans := n.sets[set]
	if len(chans) == 0 {
		return nil
	}
	env := v.encodeEnv(item)
	for _, ch := range chans {
		val, err := v.resolve(ch, item.Datum, env)
		if err != nil {
			return fmt.Errorf("mark %q encode.%s.%s: %w", n.mark.Name, set, ch.name, err)
		}
		if err := applyChannel(item, ch.name, val); err != nil {
			return fmt.Errorf("mark %q encode.%s.%s: %w", n.mark.Name, set, ch.name, err)
		}
	}
	return nil
}

// encodeEnv binds every signal plus the item's datum.
func (v *View) encodeEnv(item *scene.Item) expr.Env {
	env := make(expr.Env, len(v.signals)+2)
	for name, op := range v.signals {
		env[name] = op.Value()
	}
	env["datum"] = item.Datum
	env["item"] = itemValue(item)
	return env
}

// resolve computes a channel's value for one datum.
func (v *View) resolve(ch channel, datum any, env expr.Env) (any, error) {
	var val any
	switch {
	case ch.expr != nil:
		out, err := v.eval.Eval(ch.expr, env)
		if err != nil {
			return nil, err
		}
		val = out
	case ch.ref.Field != "":
		val = fieldValue(datum, ch.ref.Field)
	default:
		val = ch.ref.Value
	}

	if ch.ref.Mult == 0 && ch.ref.Offset == 0 {
		return val, nil
	}
	f, ok := spec.Normalize(val).(float64)
	if !ok {
		return val, nil
	}
	if ch.ref.Mult != 0 {
		f *= ch.ref.Mult
	}
	return f + ch.ref.Offset, nil
}

// fieldValue reads a dot separated path from a datum.
func fieldValue(datum any, path string) any {
	cur := datum
	for _, part := range strings.Split(path, ".") {
		switch x := cur.(type) {
		case map[string]any:
			cur = x[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(x) {
				return nil
			}
			cur = x[i]
		default:
			return nil
		}
	}
	return cur
}

// applyChannel stores a resolved value on the item.
func applyChannel(item *scene.Item, name string, val any) error {
	num := func() float64 { return toFloat(val) }
	str := func() string {
		switch x := spec.Normalize(val).(type) {
		case nil:
			return ""
		case string:
			return x
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		default:
			return fmt.Sprint(x)
		}
	}

	switch name {
	case "x":
		item.X = num()
	case "y":
		item.Y = num()
	case "x2":
		item.X2 = num()
	case "y2":
		item.Y2 = num()
	case "width":
		item.Width = num()
	case "height":
		item.Height = num()
	case "size":
		item.Size = num()
	case "fill":
		item.Fill = str()
	case "stroke":
		item.Stroke = str()
	case "strokeWidth":
		item.StrokeWidth = num()
	case "opacity":
		item.Opacity = num()
	case "text":
		item.Text = str()
	case "fontSize":
		item.FontSize = num()
	case "href":
		item.Href = str()
	case "tooltip":
		item.Tooltip = val
	default:
		return fmt.Errorf("unknown channel %q", name)
	}
	return nil
}

// itemValue is the expression form of an item.
func itemValue(it *scene.Item) map[string]any {
	return map[string]any{
		"mark":    string(it.Mark),
		"name":    it.Name,
		"x":       it.X,
		"y":       it.Y,
		"width":   it.Width,
		"height":  it.Height,
		"fill":    it.Fill,
		"opacity": it.Opacity,
		"hover":   it.Hover,
	}
}

// Hover applies hoverSet to items as the pointer enters them and
// leaveSet as it leaves. Empty names default to "hover" and "update".
// Calling it again has no effect.
func (v *View) Hover(hoverSet, leaveSet string) error {
	if v.hovering {
		return nil
	}
	if hoverSet == "" {
		hoverSet = EncodeHover
	}
	if leaveSet == "" {
		leaveSet = EncodeUpdate
	}

	apply := func(set string) event.Listener {
		return func(e *event.Event, item *scene.Item) error {
			if item == nil {
				return nil
			}
			n, ok := v.markByBox[item.Parent]
			if !ok {
				return nil
			}
			v.trap(KindEvent, string(e.Type), func() error {
				return v.encode(n, item, set)
			})
			v.Dirty(item)
			return nil
		}
	}
	if _, err := v.handler.On(event.MouseOver, apply(hoverSet), nil); err != nil {
		return err
	}
	if _, err := v.handler.On(event.MouseOut, apply(leaveSet), nil); err != nil {
		return err
	}
	v.hovering = true
	return nil
}
