package view

import (
	"context"
	"errors"

	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/scene"
)

// Run loads pending data, propagates scheduled changes, recomputes the
// viewport and renders when anything needs repainting. Render failures
// are reported to the error handler and do not fail Run.
func (v *View) Run(ctx context.Context) error {
	if v.finalized {
		return ErrFinalized
	}
	if err := v.loadPending(ctx); err != nil {
		return err
	}
	if err := v.df.Evaluate(ctx); err != nil {
		return err
	}
	v.resizeView()
	if v.redraw || v.resize {
		v.safeRender(ctx)
	}
	v.df.FlushPostRun()
	v.stats.Runs++
	return nil
}

// safeRender renders, converting errors and panics into a reported
// *RenderError.
func (v *View) safeRender(ctx context.Context) {
	res := v.exec.ExecuteFunc(ctx, "render", func() error {
		return v.Render(ctx)
	})
	if err := res.Err(); err != nil {
		v.stats.RenderErrors++
		v.report(&RenderError{Renderer: v.config.typ, Err: err})
	}
}

// Render applies a pending resize and paints the scene. Without a
// renderer it only clears the redraw flag.
func (v *View) Render(ctx context.Context) error {
	defer func() { v.redraw = false }()

	if v.renderer == nil {
		return nil
	}
	if v.resize {
		v.resize = false
		if err := v.resizeRenderer(); err != nil {
			return err
		}
	}
	if err := v.renderer.Render(ctx, v.graph.Root); err != nil {
		return err
	}
	v.stats.Renders++
	return nil
}

// resizeRenderer pushes the current viewport to the renderer, updates
// the event origin and notifies resize listeners.
func (v *View) resizeRenderer() error {
	w, h := v.layout.surface(v.Padding())
	v.renderer.SetBackground(v.background)
	if err := v.renderer.Resize(w, h, v.layout.Origin, 1); err != nil {
		return err
	}
	v.handler.SetOrigin(v.layout.Origin)

	listeners := append([]*ResizeListener(nil), v.resizeListeners...)
	for _, l := range listeners {
		v.trap(KindResize, "resize", func() error {
			return l.Fn(float64(w), float64(h))
		})
	}
	return nil
}

// Dirty marks item as changed so the next Run repaints it.
func (v *View) Dirty(item *scene.Item) {
	v.redraw = true
	if v.renderer != nil {
		v.renderer.Dirty(item)
	}
}

// Dispatch delivers an input event and runs the view when a listener
// changed a signal or data set, or the hovered item changed. Errors from
// untrapped listeners are returned.
func (v *View) Dispatch(ctx context.Context, e *event.Event) error {
	if v.finalized {
		return ErrFinalized
	}
	before := v.handler.Active()
	derr := v.handler.Dispatch(ctx, e)
	if after := v.handler.Active(); after != before {
		for _, it := range []*scene.Item{before, after} {
			if it != nil {
				v.Dirty(it)
			}
		}
	}
	var rerr error
	if v.df.Pending() || v.redraw {
		rerr = v.Run(ctx)
	}
	return errors.Join(derr, rerr)
}
