package view

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/vizview/internal/config"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/event/dispatch"
	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
	"github.com/dshills/vizview/internal/tooltip"
)

func TestSignal_WidthScenario(t *testing.T) {
	s := &spec.Spec{Signals: []spec.Signal{{Name: "width", Value: 200.0}}}
	h := newHarness(t, s)
	v := h.view

	got, err := v.Signal("width")
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if got != 200.0 {
		t.Errorf("width = %#v, want 200", got)
	}

	h.run(t)
	r := h.modules.last()
	before := r.renders

	if err := v.SetSignal("width", 400); err != nil {
		t.Fatalf("SetSignal: %v", err)
	}
	if got, _ := v.Signal("width"); got != 400.0 {
		t.Errorf("width before run = %#v, want 400", got)
	}
	h.run(t)

	if got, _ := v.Signal("width"); got != 400.0 {
		t.Errorf("width after run = %#v, want 400", got)
	}
	if r.renders != before+1 {
		t.Errorf("renders = %d, want %d", r.renders, before+1)
	}
	if r.width != 400 {
		t.Errorf("renderer width = %d, want 400", r.width)
	}
}

func TestSignal_Unknown(t *testing.T) {
	v := newHarness(t, nil).view
	l := NewSignalListener(func(string, any) error { return nil })

	checks := map[string]error{}
	_, checks["Signal"] = v.Signal("nope")
	checks["SetSignal"] = v.SetSignal("nope", 1)
	_, checks["AddSignalListener"] = v.AddSignalListener("nope", l)
	checks["RemoveSignalListener"] = v.RemoveSignalListener("nope", l)

	for op, err := range checks {
		if !errors.Is(err, ErrUnknownSignal) {
			t.Errorf("%s: expected ErrUnknownSignal, got %v", op, err)
			continue
		}
		var se *SignalError
		if !errors.As(err, &se) || se.Name != "nope" {
			t.Errorf("%s: error does not name the signal: %v", op, err)
		}
	}
}

func TestSignal_BuiltinsAlwaysPresent(t *testing.T) {
	v := newHarness(t, nil).view
	for _, name := range []string{SignalWidth, SignalHeight, SignalPadding, SignalAutosize, SignalBackground} {
		if _, err := v.Signal(name); err != nil {
			t.Errorf("Signal(%q): %v", name, err)
		}
	}
}

func TestRun_NoRenderWithoutChanges(t *testing.T) {
	h := newHarness(t, &spec.Spec{Width: 100, Height: 50})
	h.run(t)
	r := h.modules.last()
	if r.renders != 1 {
		t.Fatalf("first run renders = %d, want 1", r.renders)
	}

	h.run(t)
	h.run(t)
	if r.renders != 1 {
		t.Errorf("renders after idle runs = %d, want 1", r.renders)
	}
}

func TestRender_WithoutRenderer(t *testing.T) {
	v, err := New(&spec.Spec{Width: 10}, WithLogger(logging.NullLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Finalize()

	if err := v.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.redraw {
		t.Error("redraw should be cleared without a renderer")
	}
	if !v.resize {
		t.Error("resize should stay pending until a renderer exists")
	}
	if v.RendererInstance() != nil {
		t.Error("renderer created without a container")
	}
}

func TestRun_RenderFailureReported(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		panicMsg  string
		wantPanic bool
	}{
		{name: "error", err: errors.New("paint failed")},
		{name: "panic", panicMsg: "surface lost", wantPanic: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &harness{modules: &fakeModules{err: tt.err, panicMsg: tt.panicMsg}}
			v, err := New(nil,
				WithRegistry(h.modules.registry()),
				WithRenderer("fake"),
				WithLogger(logging.NullLogger()),
				WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
				WithContainer(&render.Buffer{}),
			)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer v.Finalize()

			if err := v.Run(context.Background()); err != nil {
				t.Fatalf("Run returned %v, want nil", err)
			}
			if len(h.errs) != 1 {
				t.Fatalf("reported %d errors, want 1: %v", len(h.errs), h.errs)
			}
			var re *RenderError
			if !errors.As(h.errs[0], &re) {
				t.Fatalf("expected *RenderError, got %T", h.errs[0])
			}
			if tt.err != nil && !errors.Is(re, tt.err) {
				t.Errorf("cause = %v, want %v", re.Err, tt.err)
			}
			if tt.wantPanic && !errors.Is(re, dispatch.ErrHandlerPanic) {
				t.Errorf("panic not converted: %v", re.Err)
			}
			if v.redraw {
				t.Error("redraw should be cleared after a failed render")
			}
			if v.Stats().RenderErrors != 1 {
				t.Errorf("RenderErrors = %d", v.Stats().RenderErrors)
			}
		})
	}
}

func TestDirty(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)
	r := h.modules.last()

	item := scene.NewItem(scene.MarkRect)
	h.view.Dirty(item)
	if r.dirty == 0 {
		t.Error("dirty notification not forwarded")
	}
	h.run(t)
	if r.renders != 2 {
		t.Errorf("renders = %d, want 2", r.renders)
	}
}

func TestSetRenderer(t *testing.T) {
	h := newHarness(t, nil)
	v := h.view
	first := h.modules.last()
	if first == nil || first.typ != "fake" || first.inits != 1 {
		t.Fatalf("initial renderer = %+v", first)
	}

	if err := v.SetRenderer("other"); err != nil {
		t.Fatalf("SetRenderer: %v", err)
	}
	second := h.modules.last()
	if len(h.modules.created) != 2 || second.typ != "other" || second.inits != 1 {
		t.Fatalf("switch did not create a fresh renderer: %+v", h.modules.created)
	}
	if !first.shutdown {
		t.Error("old renderer not shut down")
	}

	if err := v.SetRenderer("other"); err != nil {
		t.Fatalf("SetRenderer same type: %v", err)
	}
	if len(h.modules.created) != 2 {
		t.Error("same type created a new renderer")
	}

	err := v.SetRenderer("bogus-type")
	if !errors.Is(err, ErrUnknownRenderer) {
		t.Fatalf("expected ErrUnknownRenderer, got %v", err)
	}
	var re *RendererError
	if !errors.As(err, &re) || re.Type != "bogus-type" {
		t.Errorf("error does not name the type: %v", err)
	}
	if v.Renderer() != "other" || v.RendererInstance() != render.Renderer(second) || second.shutdown {
		t.Error("unknown type changed the current renderer")
	}
}

func TestNew_UnknownRenderer(t *testing.T) {
	_, err := New(nil, WithRenderer("bogus"), WithLogger(logging.NullLogger()))
	if !errors.Is(err, ErrUnknownRenderer) {
		t.Errorf("expected ErrUnknownRenderer, got %v", err)
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(&spec.Spec{Width: -1}, WithLogger(logging.NullLogger()))
	if !errors.Is(err, spec.ErrInvalidSpec) {
		t.Errorf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestSetTooltipAndLoader(t *testing.T) {
	h := newHarness(t, nil)
	v := h.view

	tip := tooltip.NewDefault()
	if err := v.SetTooltip(tip); err != nil {
		t.Fatal(err)
	}
	if len(h.modules.created) != 2 {
		t.Fatalf("tooltip change created %d renderers, want 2", len(h.modules.created))
	}
	if err := v.SetTooltip(tip); err != nil {
		t.Fatal(err)
	}
	if len(h.modules.created) != 2 {
		t.Error("same tooltip reset the renderer")
	}
	if v.Tooltip() != tooltip.Handler(tip) {
		t.Error("tooltip not stored")
	}

	l, err := loader.New()
	if err != nil {
		t.Fatal(err)
	}
	if err := v.SetLoader(l); err != nil {
		t.Fatal(err)
	}
	if len(h.modules.created) != 3 {
		t.Fatalf("loader change created %d renderers, want 3", len(h.modules.created))
	}
	if err := v.SetLoader(l); err != nil {
		t.Fatal(err)
	}
	if len(h.modules.created) != 3 {
		t.Error("same loader reset the renderer")
	}
	for _, r := range h.modules.created[:2] {
		if !r.shutdown {
			t.Error("replaced renderer not shut down")
		}
	}
}

func TestSameRef(t *testing.T) {
	d := tooltip.NewDefault()
	fn := tooltip.HandlerFunc(func(*scene.Item, float64, float64, any) {})
	m := map[string]int{}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", d, nil, false},
		{"same pointer", d, d, true},
		{"different pointers", d, tooltip.NewDefault(), false},
		{"funcs never equal", fn, fn, false},
		{"same map", m, m, true},
		{"different types", d, "x", false},
		{"comparable values", "a", "a", true},
		{"slices", []int{1}, []int{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameRef(tt.a, tt.b); got != tt.want {
				t.Errorf("sameRef = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetBackground(t *testing.T) {
	h := newHarness(t, &spec.Spec{Background: "white"})
	h.run(t)
	r := h.modules.last()
	if r.background != "white" {
		t.Errorf("background = %q", r.background)
	}
	resizes := r.resizes

	h.view.SetBackground("red")
	if got, _ := h.view.Signal(SignalBackground); got != "red" {
		t.Errorf("background signal = %#v", got)
	}
	h.run(t)
	if r.background != "red" || r.resizes != resizes+1 {
		t.Errorf("background %q resizes %d, want red and %d", r.background, r.resizes, resizes+1)
	}
	if len(h.modules.created) != 1 {
		t.Error("background change replaced the renderer")
	}
}

func TestResize(t *testing.T) {
	h := newHarness(t, &spec.Spec{Width: 50, Height: 50})
	h.run(t)
	r := h.modules.last()
	resizes := r.resizes

	h.run(t)
	if r.resizes != resizes {
		t.Fatalf("idle run resized")
	}

	h.view.Resize()
	h.run(t)
	if r.resizes != resizes+1 {
		t.Errorf("resizes = %d, want %d", r.resizes, resizes+1)
	}
}

func TestPaddingAndAutosizeAccessors(t *testing.T) {
	h := newHarness(t, &spec.Spec{
		Width:    100,
		Height:   80,
		Padding:  spec.Padding{Padding: scene.UniformPadding(5), Set: true},
		Autosize: spec.Autosize{Type: spec.AutosizeNone},
	})
	v := h.view
	if p := v.Padding(); p != scene.UniformPadding(5) {
		t.Errorf("padding = %+v", p)
	}
	if a := v.Autosize(); a.Type != spec.AutosizeNone || a.Contains != spec.ContainsContent {
		t.Errorf("autosize = %+v", a)
	}

	v.SetPadding(scene.Padding{Top: 1, Bottom: 2, Left: 3, Right: 4})
	v.SetAutosize(spec.Autosize{Type: spec.AutosizeFit, Contains: spec.ContainsPadding})
	h.run(t)

	r := h.modules.last()
	if r.width != 100 || r.height != 80 {
		t.Errorf("surface = %dx%d, want 100x80", r.width, r.height)
	}
	if r.origin != (scene.Point{X: 3, Y: 1}) || v.Origin() != r.origin {
		t.Errorf("origin = %+v, view origin %+v", r.origin, v.Origin())
	}
	if w, hgt := v.ViewSize(); w != 93 || hgt != 77 {
		t.Errorf("view size = %gx%g, want 93x77", w, hgt)
	}
	if v.Handler().Origin() != r.origin {
		t.Error("handler origin not updated")
	}
}

func TestPreventDefault(t *testing.T) {
	v := newHarness(t, nil).view
	v.SetPreventDefault(true)
	if !v.PreventDefault() {
		t.Fatal("PreventDefault not stored")
	}
	e := event.New(event.KeyDown, 0, 0)
	if err := v.Dispatch(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if !e.DefaultPrevented() {
		t.Error("default not prevented")
	}
}

func TestEventConfig(t *testing.T) {
	s := &spec.Spec{EventConfig: &spec.EventConfig{
		Allow:    []string{"click"},
		Defaults: &spec.EventDefaults{Prevent: spec.BoolOrList{Set: true, Items: []string{"click"}}},
	}}
	v := newHarness(t, s).view

	l := NewEventListener(func(*event.Event, *scene.Item) error { return nil })
	if _, err := v.AddEventListener(event.Wheel, l); !errors.Is(err, event.ErrTypeNotAllowed) {
		t.Errorf("expected ErrTypeNotAllowed, got %v", err)
	}
	if _, err := v.AddEventListener(event.Click, l); err != nil {
		t.Fatal(err)
	}

	e := event.New(event.Click, 0, 0)
	if err := v.Dispatch(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if !e.DefaultPrevented() {
		t.Error("click default not prevented")
	}
}

func TestFinalize(t *testing.T) {
	h := newHarness(t, nil)
	v := h.view
	l := NewEventListener(func(*event.Event, *scene.Item) error { return nil })
	if _, err := v.AddEventListener(event.Click, l); err != nil {
		t.Fatal(err)
	}
	v.Finalize()

	if !h.modules.last().shutdown {
		t.Error("renderer not shut down")
	}
	if v.EventListeners(event.Click, l) != 0 {
		t.Error("listeners survived Finalize")
	}
	if err := v.Run(context.Background()); !errors.Is(err, ErrFinalized) {
		t.Errorf("Run after Finalize = %v", err)
	}
	v.Finalize()
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer = render.TypeSVG
	cfg.LogLevel = "error"

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	v, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Finalize()

	if v.Renderer() != render.TypeSVG {
		t.Errorf("renderer = %q", v.Renderer())
	}
	if v.Loader() == nil {
		t.Error("loader not set")
	}
	if v.logger.Level() != logging.LevelError {
		t.Errorf("log level = %v", v.logger.Level())
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t, nil)
	v := h.view
	l := NewEventListener(func(*event.Event, *scene.Item) error { return nil })
	if _, err := v.AddEventListener(event.Click, l); err != nil {
		t.Fatal(err)
	}
	v.AddResizeListener(NewResizeListener(func(float64, float64) error { return nil }))
	h.run(t)

	s := v.Stats()
	if s.Runs != 1 || s.Renders != 1 || s.Clock != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.Callbacks < 2 || s.Panics != 0 {
		t.Errorf("callback counts = %+v", s)
	}
	if s.EventListeners != 1 || s.ResizeListeners != 1 {
		t.Errorf("listener counts = %+v", s)
	}
}
