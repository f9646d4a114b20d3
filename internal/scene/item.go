// Package scene models the tree of drawable items a renderer paints.
//
// Items are positioned in the coordinate space of their parent group. A
// group translates its children by its own X and Y.
package scene

import (
	"math"
	"sync/atomic"
)

// MarkType identifies how an item is drawn.
type MarkType string

const (
	MarkGroup  MarkType = "group"
	MarkRect   MarkType = "rect"
	MarkSymbol MarkType = "symbol"
	MarkRule   MarkType = "rule"
	MarkText   MarkType = "text"
	MarkImage  MarkType = "image"
)

// Valid reports whether the mark type is known.
func (m MarkType) Valid() bool {
	switch m {
	case MarkGroup, MarkRect, MarkSymbol, MarkRule, MarkText, MarkImage:
		return true
	}
	return false
}

var itemIDs atomic.Int64

// Item is a single node of the scene graph.
type Item struct {
	ID   int64
	Mark MarkType
	Name string

	X, Y          float64
	X2, Y2        float64 // rule end point
	Width, Height float64
	Size          float64 // symbol area in square pixels

	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64

	Text     string
	FontSize float64
	Href     string // image source, resolved through the loader

	Tooltip any
	Datum   any
	Hover   bool

	Items  []*Item
	Parent *Item
}

// NewItem creates an item of the given mark type with a fresh ID.
func NewItem(mark MarkType) *Item {
	return &Item{
		ID:      itemIDs.Add(1),
		Mark:    mark,
		Opacity: 1,
	}
}

// NewGroup creates a named group item.
func NewGroup(name string) *Item {
	g := NewItem(MarkGroup)
	g.Name = name
	return g
}

// Add appends children and sets their parent.
func (it *Item) Add(children ...*Item) {
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Parent != nil && c.Parent != it {
			c.Parent.Remove(c)
		}
		c.Parent = it
		it.Items = append(it.Items, c)
	}
}

// Remove detaches a child. Returns false if it was not a child.
func (it *Item) Remove(child *Item) bool {
	for i, c := range it.Items {
		if c == child {
			it.Items = append(it.Items[:i], it.Items[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// Clear detaches every child.
func (it *Item) Clear() {
	for _, c := range it.Items {
		c.Parent = nil
	}
	it.Items = nil
}

// Offset returns the absolute translation applied to this item's
// coordinates by its ancestor groups.
func (it *Item) Offset() Point {
	var p Point
	for g := it.Parent; g != nil; g = g.Parent {
		p.X += g.X
		p.Y += g.Y
	}
	return p
}

// LocalBounds returns the item's bounds in its parent's coordinate space.
func (it *Item) LocalBounds() Bounds {
	var b Bounds
	switch it.Mark {
	case MarkGroup:
		for _, c := range it.Items {
			b = b.Union(c.LocalBounds())
		}
		if it.Width > 0 || it.Height > 0 {
			b = b.Union(NewBounds(0, 0, it.Width, it.Height))
		}
		b = b.Translate(it.X, it.Y)
	case MarkRect, MarkImage:
		b = NewBounds(it.X, it.Y, it.X+it.Width, it.Y+it.Height)
	case MarkSymbol:
		r := it.SymbolRadius()
		b = NewBounds(it.X-r, it.Y-r, it.X+r, it.Y+r)
	case MarkRule:
		b = NewBounds(it.X, it.Y, it.X2, it.Y2)
	case MarkText:
		w, h := TextExtent(it.Text, it.fontSize())
		b = NewBounds(it.X, it.Y-h, it.X+w, it.Y)
	}
	if it.Stroke != "" && it.StrokeWidth > 0 && it.Mark != MarkGroup {
		b = b.Expand(it.StrokeWidth / 2)
	}
	return b
}

// Bounds returns the item's bounds in absolute view coordinates.
func (it *Item) Bounds() Bounds {
	off := it.Offset()
	return it.LocalBounds().Translate(off.X, off.Y)
}

func (it *Item) symbolSize() float64 {
	if it.Size <= 0 {
		return 64
	}
	return it.Size
}

func (it *Item) fontSize() float64 {
	if it.FontSize <= 0 {
		return 11
	}
	return it.FontSize
}

// SymbolRadius returns the radius of a symbol's circle.
func (it *Item) SymbolRadius() float64 {
	return math.Sqrt(it.symbolSize() / math.Pi)
}

// EffectiveFontSize returns the font size with the default applied.
func (it *Item) EffectiveFontSize() float64 {
	return it.fontSize()
}

// TextExtent estimates the size of a single line of text. Glyphs are
// assumed to be 0.6em wide.
func TextExtent(text string, fontSize float64) (width, height float64) {
	n := 0
	for range text {
		n++
	}
	return float64(n) * fontSize * 0.6, fontSize
}
