package event

import (
	"time"

	"github.com/dshills/vizview/internal/scene"
)

// Type names an input event.
type Type string

// Event types.
const (
	Click       Type = "click"
	DblClick    Type = "dblclick"
	PointerDown Type = "pointerdown"
	PointerUp   Type = "pointerup"
	PointerMove Type = "pointermove"
	MouseOver   Type = "mouseover"
	MouseOut    Type = "mouseout"
	Wheel       Type = "wheel"
	KeyDown     Type = "keydown"
	KeyUp       Type = "keyup"
	Resize      Type = "resize"
	Timer       Type = "timer"
)

// Pointer reports whether the type carries a pointer position.
func (t Type) Pointer() bool {
	switch t {
	case Click, DblClick, PointerDown, PointerUp, PointerMove, MouseOver, MouseOut, Wheel:
		return true
	}
	return false
}

// Mod is a set of modifier keys.
type Mod int

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether m includes mod.
func (m Mod) Has(mod Mod) bool {
	return m&mod != 0
}

// Event is one input occurrence.
type Event struct {
	Type Type
	Time time.Time

	// X and Y are in container coordinates.
	X, Y float64

	Button int
	DeltaX float64
	DeltaY float64

	Key       string
	Rune      rune
	Modifiers Mod

	// Width and Height are set for resize events.
	Width, Height int

	// Item is the topmost scene item under the pointer, set by the handler.
	Item *scene.Item

	defaultPrevented bool
}

// New creates an event of the given type at a position.
func New(t Type, x, y float64) *Event {
	return &Event{Type: t, X: x, Y: y, Time: time.Now()}
}

// PreventDefault marks the event so the host skips its default action.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Listener handles an event. item is the event's target item, nil when the
// pointer is over empty space.
type Listener func(e *Event, item *scene.Item) error
