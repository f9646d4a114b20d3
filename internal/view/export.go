package view

import (
	"context"
	"fmt"
	"image"

	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/render/svg"
)

// Image types accepted by ToImageURL.
const (
	ImageSVG = "svg"
	ImagePNG = "png"
)

// offscreen runs the view and paints the scene with a fresh renderer of
// type typ into a buffer. The view's own renderer is untouched.
func (v *View) offscreen(ctx context.Context, typ string) (render.Frame, error) {
	if err := v.Run(ctx); err != nil {
		return render.Frame{}, err
	}
	factory, ok := v.registry.Lookup(typ)
	if !ok {
		return render.Frame{}, &RendererError{Type: typ}
	}
	r := factory(render.Options{
		Loader: v.config.loader,
		Logger: v.logger.WithComponent("export"),
	})
	defer r.Shutdown()

	var buf render.Buffer
	w, h := v.layout.surface(v.Padding())
	if err := r.Initialize(&buf, w, h, v.layout.Origin, 1); err != nil {
		return render.Frame{}, err
	}
	r.SetBackground(v.background)
	if err := r.Render(ctx, v.graph.Root); err != nil {
		return render.Frame{}, &RenderError{Renderer: typ, Err: err}
	}
	return r.Frame(), nil
}

// ToSVG runs the view and returns the scene as SVG markup.
func (v *View) ToSVG(ctx context.Context) (string, error) {
	if err := v.Run(ctx); err != nil {
		return "", err
	}
	w, h := v.layout.surface(v.Padding())
	return string(svg.Markup(v.graph.Root, w, h, v.layout.Origin, 1, v.background)), nil
}

// ToCanvas runs the view and rasterises the scene.
func (v *View) ToCanvas(ctx context.Context) (*image.RGBA, error) {
	f, err := v.offscreen(ctx, render.TypeCanvas)
	if err != nil {
		return nil, err
	}
	return f.Image, nil
}

// ToImageURL runs the view and returns the scene as a data URI of the
// given type, svg or png.
func (v *View) ToImageURL(ctx context.Context, typ string) (string, error) {
	switch typ {
	case ImageSVG:
		markup, err := v.ToSVG(ctx)
		if err != nil {
			return "", err
		}
		return loader.DataURI("image/svg+xml", []byte(markup)), nil
	case ImagePNG, render.TypeCanvas, render.TypeNone:
		f, err := v.offscreen(ctx, render.TypeNone)
		if err != nil {
			return "", err
		}
		if len(f.Data) == 0 {
			return "", fmt.Errorf("png export produced no data")
		}
		return loader.DataURI("image/png", f.Data), nil
	}
	return "", &RendererError{Type: typ}
}
