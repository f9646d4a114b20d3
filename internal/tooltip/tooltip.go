// Package tooltip defines how hovered items surface their tooltip values.
package tooltip

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/vizview/internal/scene"
)

// Handler is told when the hovered item's tooltip changes. A nil value
// means the tooltip should be hidden.
type Handler interface {
	Update(item *scene.Item, x, y float64, value any)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(item *scene.Item, x, y float64, value any)

// Update calls f.
func (f HandlerFunc) Update(item *scene.Item, x, y float64, value any) {
	f(item, x, y, value)
}

// State is the tooltip currently displayed.
type State struct {
	Visible bool
	X, Y    float64
	Text    string
	Item    *scene.Item
}

// Default keeps the current tooltip as formatted text. Hosts read it with
// Current and draw it however suits them.
type Default struct {
	mu      sync.Mutex
	state   State
	updates int
}

// NewDefault creates the default handler.
func NewDefault() *Default {
	return &Default{}
}

// Update records the tooltip.
func (d *Default) Update(item *scene.Item, x, y float64, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.updates++
	if value == nil {
		d.state = State{}
		return
	}
	d.state = State{
		Visible: true,
		X:       x,
		Y:       y,
		Text:    Format(value),
		Item:    item,
	}
}

// Current returns the displayed tooltip.
func (d *Default) Current() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Updates returns how many times Update was called.
func (d *Default) Updates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updates
}

// Format renders a tooltip value. Maps become sorted "key: value" lines,
// slices are comma separated, everything else uses fmt.
func Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = k + ": " + Format(v[k])
		}
		return strings.Join(lines, "\n")
	case []any:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = Format(x)
		}
		return strings.Join(parts, ", ")
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
	default:
		return fmt.Sprint(v)
	}
}
