package event

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// TcellTranslator converts tcell events to Events. It keeps button state
// across calls so presses and releases can be turned into clicks.
type TcellTranslator struct {
	// CellWidth and CellHeight map cells to view pixels. A pointer lands in
	// the centre of its cell.
	CellWidth  float64
	CellHeight float64

	buttons tcell.ButtonMask
	lastX   float64
	lastY   float64
	moved   bool
}

// NewTcellTranslator creates a translator for the given cell size.
func NewTcellTranslator(cellWidth, cellHeight float64) *TcellTranslator {
	return &TcellTranslator{CellWidth: cellWidth, CellHeight: cellHeight}
}

// Translate converts ev. It returns nil for events with no equivalent.
func (t *TcellTranslator) Translate(ev tcell.Event) []*Event {
	switch e := ev.(type) {
	case *tcell.EventMouse:
		return t.mouse(e)
	case *tcell.EventKey:
		return []*Event{{
			Type:      KeyDown,
			Time:      e.When(),
			Key:       e.Name(),
			Rune:      e.Rune(),
			Modifiers: convertMod(e.Modifiers()),
		}}
	case *tcell.EventResize:
		w, h := e.Size()
		return []*Event{{
			Type:   Resize,
			Time:   e.When(),
			Width:  int(float64(w) * t.CellWidth),
			Height: int(float64(h) * t.CellHeight),
		}}
	}
	return nil
}

func (t *TcellTranslator) mouse(e *tcell.EventMouse) []*Event {
	cx, cy := e.Position()
	x := (float64(cx) + 0.5) * t.CellWidth
	y := (float64(cy) + 0.5) * t.CellHeight
	mod := convertMod(e.Modifiers())
	when := e.When()
	if when.IsZero() {
		when = time.Now()
	}

	mk := func(typ Type) *Event {
		return &Event{Type: typ, Time: when, X: x, Y: y, Modifiers: mod}
	}

	btn := e.Buttons()
	var out []*Event

	if wheel := btn & (tcell.WheelUp | tcell.WheelDown | tcell.WheelLeft | tcell.WheelRight); wheel != 0 {
		w := mk(Wheel)
		switch {
		case wheel&tcell.WheelUp != 0:
			w.DeltaY = -1
		case wheel&tcell.WheelDown != 0:
			w.DeltaY = 1
		case wheel&tcell.WheelLeft != 0:
			w.DeltaX = -1
		case wheel&tcell.WheelRight != 0:
			w.DeltaX = 1
		}
		out = append(out, w)
		btn &^= wheel
	}

	if x != t.lastX || y != t.lastY || !t.moved {
		out = append(out, mk(PointerMove))
		t.lastX, t.lastY, t.moved = x, y, true
	}

	pressed := btn &^ t.buttons
	released := t.buttons &^ btn
	if pressed != 0 {
		d := mk(PointerDown)
		d.Button = buttonIndex(pressed)
		out = append(out, d)
	}
	if released != 0 {
		u := mk(PointerUp)
		u.Button = buttonIndex(released)
		c := mk(Click)
		c.Button = u.Button
		out = append(out, u, c)
	}
	t.buttons = btn
	return out
}

func buttonIndex(m tcell.ButtonMask) int {
	switch {
	case m&tcell.Button1 != 0:
		return 0
	case m&tcell.Button3 != 0:
		return 1
	case m&tcell.Button2 != 0:
		return 2
	}
	return 0
}

func convertMod(m tcell.ModMask) Mod {
	var out Mod
	if m&tcell.ModShift != 0 {
		out |= ModShift
	}
	if m&tcell.ModCtrl != 0 {
		out |= ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		out |= ModAlt
	}
	if m&tcell.ModMeta != 0 {
		out |= ModMeta
	}
	return out
}
