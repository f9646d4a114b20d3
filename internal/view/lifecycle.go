package view

import (
	"reflect"

	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/render/canvas"
	"github.com/dshills/vizview/internal/render/svg"
	"github.com/dshills/vizview/internal/render/term"
	"github.com/dshills/vizview/internal/tooltip"
)

// DefaultRegistry returns a registry with the canvas, svg, headless
// image and terminal renderers.
func DefaultRegistry() *render.Registry {
	r := render.NewRegistry()
	r.Register(render.TypeCanvas, canvas.New)
	r.Register(render.TypeSVG, svg.New)
	r.Register(render.TypeNone, canvas.NewHeadless)
	r.Register(render.TypeTerminal, term.New)
	return r
}

// rendererConfig is everything a renderer instance is built from.
type rendererConfig struct {
	typ     string
	tooltip tooltip.Handler
	loader  loader.Loader
}

// transition installs next and replaces the renderer so it never serves
// a stale configuration.
func (v *View) transition(next rendererConfig) error {
	v.config = next
	v.handler.SetTooltip(next.tooltip)
	if v.renderer != nil {
		v.renderer.Shutdown()
		v.renderer = nil
	}
	return v.initRenderer()
}

// initRenderer creates and initializes a renderer for the current
// container. It is a no-op without a container.
func (v *View) initRenderer() error {
	if v.container == nil {
		return nil
	}
	factory, ok := v.registry.Lookup(v.config.typ)
	if !ok {
		return &RendererError{Type: v.config.typ}
	}
	r := factory(render.Options{
		Loader: v.config.loader,
		Logger: v.logger.WithComponent("render"),
	})
	w, h := v.layout.surface(v.Padding())
	if err := r.Initialize(v.container, w, h, v.layout.Origin, 1); err != nil {
		r.Shutdown()
		return err
	}
	r.SetBackground(v.background)
	v.renderer = r
	v.handler.SetOrigin(v.layout.Origin)
	v.redraw = true
	v.logger.Debug("renderer %s initialized at %dx%d", v.config.typ, w, h)
	return nil
}

// Initialize binds the view to a container and creates the renderer.
func (v *View) Initialize(c render.Container) error {
	if v.finalized {
		return ErrFinalized
	}
	if v.renderer != nil {
		v.renderer.Shutdown()
		v.renderer = nil
	}
	v.container = c
	return v.initRenderer()
}

// Finalize stops timers, removes every listener and releases the
// renderer. The view cannot be used afterwards.
func (v *View) Finalize() {
	if v.finalized {
		return
	}
	v.finalized = true
	for _, t := range v.timers {
		t.Stop()
	}
	v.timers = nil
	v.handler.Registry().Clear()
	v.handler.Reset()
	for tok, reg := range v.signalRegs {
		reg.source.RemoveTarget(reg.adapter)
		delete(v.signalRegs, tok)
	}
	v.resizeListeners = nil
	if v.renderer != nil {
		v.renderer.Shutdown()
		v.renderer = nil
	}
	v.eval.Close()
}

// Renderer returns the renderer type.
func (v *View) Renderer() string {
	return v.config.typ
}

// RendererInstance returns the active renderer, nil before Initialize.
func (v *View) RendererInstance() render.Renderer {
	return v.renderer
}

// SetRenderer switches the renderer type. An unknown type is rejected
// and the current renderer kept.
func (v *View) SetRenderer(typ string) error {
	if !v.registry.Has(typ) {
		return &RendererError{Type: typ}
	}
	if typ == v.config.typ {
		return nil
	}
	next := v.config
	next.typ = typ
	return v.transition(next)
}

// Tooltip returns the tooltip handler.
func (v *View) Tooltip() tooltip.Handler {
	return v.config.tooltip
}

// SetTooltip replaces the tooltip handler.
func (v *View) SetTooltip(h tooltip.Handler) error {
	if sameRef(h, v.config.tooltip) {
		return nil
	}
	next := v.config
	next.tooltip = h
	return v.transition(next)
}

// Loader returns the resource loader.
func (v *View) Loader() loader.Loader {
	return v.config.loader
}

// SetLoader replaces the resource loader.
func (v *View) SetLoader(l loader.Loader) error {
	if sameRef(l, v.config.loader) {
		return nil
	}
	next := v.config
	next.loader = l
	return v.transition(next)
}

// sameRef reports whether a and b refer to the same value. Functions
// never compare equal. Uncomparable dynamic types compare by pointer
// where one exists.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return false
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}
