package scene

import "math"

// Point is a position in view coordinates.
type Point struct {
	X, Y float64
}

// Padding is the space reserved around the plotting area.
type Padding struct {
	Top, Bottom, Left, Right float64
}

// UniformPadding returns padding with the same value on every side.
func UniformPadding(v float64) Padding {
	return Padding{Top: v, Bottom: v, Left: v, Right: v}
}

// Bounds is an axis-aligned bounding box. The zero value is empty.
type Bounds struct {
	X1, Y1, X2, Y2 float64
	set            bool
}

// NewBounds creates bounds from two corners in any order.
func NewBounds(x1, y1, x2, y2 float64) Bounds {
	return Bounds{
		X1:  math.Min(x1, x2),
		Y1:  math.Min(y1, y2),
		X2:  math.Max(x1, x2),
		Y2:  math.Max(y1, y2),
		set: true,
	}
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return !b.set
}

// Width returns the horizontal extent, zero when empty.
func (b Bounds) Width() float64 {
	if !b.set {
		return 0
	}
	return b.X2 - b.X1
}

// Height returns the vertical extent, zero when empty.
func (b Bounds) Height() float64 {
	if !b.set {
		return 0
	}
	return b.Y2 - b.Y1
}

// Union returns the smallest bounds containing both.
func (b Bounds) Union(o Bounds) Bounds {
	switch {
	case !o.set:
		return b
	case !b.set:
		return o
	}
	return NewBounds(
		math.Min(b.X1, o.X1), math.Min(b.Y1, o.Y1),
		math.Max(b.X2, o.X2), math.Max(b.Y2, o.Y2),
	)
}

// Translate offsets the bounds.
func (b Bounds) Translate(dx, dy float64) Bounds {
	if !b.set {
		return b
	}
	return NewBounds(b.X1+dx, b.Y1+dy, b.X2+dx, b.Y2+dy)
}

// Expand grows the bounds by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	if !b.set {
		return b
	}
	return NewBounds(b.X1-d, b.Y1-d, b.X2+d, b.Y2+d)
}

// Contains reports whether the point lies inside the bounds.
func (b Bounds) Contains(x, y float64) bool {
	return b.set && x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// Intersects reports whether the two bounds overlap or touch.
func (b Bounds) Intersects(o Bounds) bool {
	return b.set && o.set && b.X1 <= o.X2 && o.X1 <= b.X2 && b.Y1 <= o.Y2 && o.Y1 <= b.Y2
}

// Area returns width times height.
func (b Bounds) Area() float64 {
	return b.Width() * b.Height()
}
