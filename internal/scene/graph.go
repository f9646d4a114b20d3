package scene

import (
	"fmt"
	"io"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// Graph is the scene graph owned by a view.
type Graph struct {
	Root *Item
}

// NewGraph creates a graph with an empty root group.
func NewGraph() *Graph {
	return &Graph{Root: NewGroup("root")}
}

// Walk visits items depth-first in paint order. Returning false from fn
// skips the item's children.
func (g *Graph) Walk(fn func(*Item) bool) {
	walk(g.Root, fn)
}

func walk(it *Item, fn func(*Item) bool) {
	if it == nil || !fn(it) {
		return
	}
	for _, c := range it.Items {
		walk(c, fn)
	}
}

// Bounds returns the absolute bounds of all content below the root.
func (g *Graph) Bounds() Bounds {
	var b Bounds
	for _, c := range g.Root.Items {
		b = b.Union(c.LocalBounds())
	}
	return b.Translate(g.Root.X, g.Root.Y)
}

// Find returns the first group with the given name.
func (g *Graph) Find(name string) *Item {
	var found *Item
	g.Walk(func(it *Item) bool {
		if found != nil {
			return false
		}
		if it.Name == name {
			found = it
			return false
		}
		return true
	})
	return found
}

// Pick returns the topmost non-group item containing the point, or nil.
// Later items paint over earlier ones, so the search runs back to front.
func (g *Graph) Pick(x, y float64) *Item {
	return pick(g.Root, x, y)
}

func pick(it *Item, x, y float64) *Item {
	if it.Mark == MarkGroup {
		lx, ly := x-it.X, y-it.Y
		for i := len(it.Items) - 1; i >= 0; i-- {
			if hit := pick(it.Items[i], lx, ly); hit != nil {
				return hit
			}
		}
		return nil
	}
	if it.LocalBounds().Contains(x, y) {
		return it
	}
	return nil
}

// Dump writes an ASCII drawing of the graph structure.
func (g *Graph) Dump(w io.Writer) error {
	t := tree.NewTree(tree.NodeString(label(g.Root)))
	addChildren(t, g.Root)
	_, err := fmt.Fprintln(w, t)
	return err
}

func addChildren(t *tree.Tree, it *Item) {
	for _, c := range it.Items {
		child := t.AddChild(tree.NodeString(label(c)))
		addChildren(child, c)
	}
}

func label(it *Item) string {
	var b strings.Builder
	b.WriteString(string(it.Mark))
	if it.Name != "" {
		b.WriteString(":")
		b.WriteString(it.Name)
	}
	if it.Mark == MarkGroup {
		fmt.Fprintf(&b, " (%d)", len(it.Items))
	}
	return b.String()
}
