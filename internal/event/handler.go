package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/tooltip"
)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithConfig sets the event configuration.
func WithConfig(c Config) HandlerOption {
	return func(h *Handler) {
		h.config = c
	}
}

// WithTooltip sets the tooltip handler.
func WithTooltip(t tooltip.Handler) HandlerOption {
	return func(h *Handler) {
		h.tooltip = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// Handler routes input events to listeners.
type Handler struct {
	mu sync.Mutex

	registry *Registry
	graph    *scene.Graph
	origin   scene.Point
	config   Config
	prevent  bool
	tooltip  tooltip.Handler
	logger   *logging.Logger

	// active is the item currently under the pointer.
	active *scene.Item

	dispatched int
}

// NewHandler creates a handler over a scene graph.
func NewHandler(g *scene.Graph, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: NewRegistry(),
		graph:    g,
		logger:   logging.NullLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// On registers l for t. raw is stored on the registration as a
// back-reference. Returns the registration.
func (h *Handler) On(t Type, l Listener, raw any) (*Registration, error) {
	if t == "" {
		return nil, ErrEmptyType
	}
	if l == nil {
		return nil, ErrNilListener
	}

	h.mu.Lock()
	allowed := h.config.Allowed(t)
	h.mu.Unlock()
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotAllowed, t)
	}

	reg := h.registry.Add(t, l, raw)
	h.logger.Debug("listener %s added for %s", reg.ID, t)
	return reg, nil
}

// Off removes a registration by ID.
func (h *Handler) Off(id string) bool {
	return h.registry.Remove(id)
}

// Listeners returns the registrations for t in registration order.
func (h *Handler) Listeners(t Type) []*Registration {
	return h.registry.ByType(t)
}

// Registry exposes the listener registry.
func (h *Handler) Registry() *Registry {
	return h.registry
}

// SetOrigin sets the translation between container and scene coordinates.
func (h *Handler) SetOrigin(p scene.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origin = p
}

// Origin returns the current origin.
func (h *Handler) Origin() scene.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.origin
}

// SetTooltip replaces the tooltip handler.
func (h *Handler) SetTooltip(t tooltip.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tooltip = t
}

// SetPreventDefault sets the fallback prevent-default policy.
func (h *Handler) SetPreventDefault(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prevent = v
}

// PreventDefault returns the fallback prevent-default policy.
func (h *Handler) PreventDefault() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prevent
}

// Config returns the event configuration.
func (h *Handler) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// Dispatched returns the number of events dispatched.
func (h *Handler) Dispatched() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dispatched
}

// Dispatch delivers e. Pointer events are hit-tested against the scene;
// moving onto a different item first dispatches mouseout and mouseover.
// Listener errors are wrapped in *ListenerError and joined.
func (h *Handler) Dispatch(ctx context.Context, e *Event) error {
	if e == nil {
		return nil
	}

	var errs []error
	if e.Type.Pointer() && h.graph != nil {
		h.mu.Lock()
		origin := h.origin
		h.mu.Unlock()

		item := h.graph.Pick(e.X-origin.X, e.Y-origin.Y)
		e.Item = item
		if e.Type == PointerMove || e.Type == MouseOver || e.Type == MouseOut {
			errs = append(errs, h.hover(ctx, e, item)...)
		}
	}

	if err := h.deliver(ctx, e); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// hover updates the active item and tooltip when the pointer changes
// items.
func (h *Handler) hover(ctx context.Context, e *Event, item *scene.Item) []error {
	h.mu.Lock()
	prev := h.active
	if prev == item {
		h.mu.Unlock()
		return nil
	}
	h.active = item
	tip := h.tooltip
	h.mu.Unlock()

	var errs []error
	if prev != nil {
		prev.Hover = false
		out := &Event{Type: MouseOut, Time: e.Time, X: e.X, Y: e.Y, Item: prev, Modifiers: e.Modifiers}
		if err := h.deliver(ctx, out); err != nil {
			errs = append(errs, err)
		}
	}
	if item != nil {
		item.Hover = true
		over := &Event{Type: MouseOver, Time: e.Time, X: e.X, Y: e.Y, Item: item, Modifiers: e.Modifiers}
		if err := h.deliver(ctx, over); err != nil {
			errs = append(errs, err)
		}
	}

	if tip != nil {
		var value any
		if item != nil {
			value = item.Tooltip
		}
		tip.Update(item, e.X, e.Y, value)
	}
	return errs
}

func (h *Handler) deliver(ctx context.Context, e *Event) error {
	h.mu.Lock()
	h.dispatched++
	prevent := h.config.ShouldPrevent(e.Type, h.prevent)
	h.mu.Unlock()

	if prevent {
		e.PreventDefault()
	}

	var errs []error
	for _, reg := range h.registry.ByType(e.Type) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := reg.Listener(e, e.Item); err != nil {
			errs = append(errs, &ListenerError{ID: reg.ID, Type: e.Type, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Active returns the item under the pointer.
func (h *Handler) Active() *scene.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Reset forgets hover state, for example after the scene is rebuilt. No
// mouseout is delivered for the forgotten item and its tooltip is hidden.
func (h *Handler) Reset() {
	h.mu.Lock()
	prev := h.active
	h.active = nil
	tip := h.tooltip
	h.mu.Unlock()

	if prev == nil {
		return
	}
	prev.Hover = false
	if tip != nil {
		tip.Update(nil, 0, 0, nil)
	}
}
