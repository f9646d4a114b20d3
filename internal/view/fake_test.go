package view

import (
	"context"
	"testing"

	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

// fakeRenderer records every call made by the view.
type fakeRenderer struct {
	typ string

	inits      int
	renders    int
	resizes    int
	dirty      int
	dirtied    []*scene.Item
	shutdown   bool
	background string
	width      int
	height     int
	origin     scene.Point

	err      error
	panicMsg string
}

func (r *fakeRenderer) Initialize(c render.Container, width, height int, origin scene.Point, scale float64) error {
	r.inits++
	r.width, r.height, r.origin = width, height, origin
	return nil
}

func (r *fakeRenderer) Resize(width, height int, origin scene.Point, scale float64) error {
	r.resizes++
	r.width, r.height, r.origin = width, height, origin
	return nil
}

func (r *fakeRenderer) SetBackground(color string) {
	r.background = color
}

func (r *fakeRenderer) Render(ctx context.Context, root *scene.Item) error {
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.err != nil {
		return r.err
	}
	r.renders++
	return nil
}

func (r *fakeRenderer) Dirty(item *scene.Item) {
	r.dirty++
	r.dirtied = append(r.dirtied, item)
}

func (r *fakeRenderer) Frame() render.Frame {
	return render.Frame{}
}

func (r *fakeRenderer) Shutdown() {
	r.shutdown = true
}

// fakeModules creates fake renderers and remembers every instance.
type fakeModules struct {
	created  []*fakeRenderer
	err      error
	panicMsg string
}

func (m *fakeModules) factory(typ string) render.Factory {
	return func(render.Options) render.Renderer {
		r := &fakeRenderer{typ: typ, err: m.err, panicMsg: m.panicMsg}
		m.created = append(m.created, r)
		return r
	}
}

func (m *fakeModules) registry() *render.Registry {
	reg := render.NewRegistry()
	reg.Register("fake", m.factory("fake"))
	reg.Register("other", m.factory("other"))
	return reg
}

// last returns the most recently created renderer.
func (m *fakeModules) last() *fakeRenderer {
	if len(m.created) == 0 {
		return nil
	}
	return m.created[len(m.created)-1]
}

type harness struct {
	view    *View
	modules *fakeModules
	errs    []error
}

// newHarness builds a view bound to a buffer container with fake
// renderers, collecting reported errors.
func newHarness(t *testing.T, s *spec.Spec, opts ...Option) *harness {
	t.Helper()
	h := &harness{modules: &fakeModules{}}
	base := []Option{
		WithRegistry(h.modules.registry()),
		WithRenderer("fake"),
		WithLogger(logging.NullLogger()),
		WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
		WithContainer(&render.Buffer{}),
	}
	v, err := New(s, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(v.Finalize)
	h.view = v
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	if err := h.view.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
