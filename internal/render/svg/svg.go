// Package svg implements a renderer that emits SVG markup.
package svg

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strconv"
	"sync"

	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
)

// Renderer writes the scene as an SVG document.
type Renderer struct {
	mu sync.Mutex

	opts       render.Options
	logger     *logging.Logger
	surface    render.Surface
	background string

	initialized bool
	frame       render.Frame
	dirty       int
}

// New creates an SVG renderer.
func New(opts render.Options) render.Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &Renderer{opts: opts, logger: logger.WithComponent(render.TypeSVG)}
}

// Initialize binds the container.
func (r *Renderer) Initialize(c render.Container, width, height int, origin scene.Point, scale float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface.Container = c
	r.surface.Set(width, height, origin, scale)
	r.initialized = true
	return nil
}

// Resize changes the document size.
func (r *Renderer) Resize(width, height int, origin scene.Point, scale float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface.Set(width, height, origin, scale)
	return nil
}

// SetBackground sets the background rectangle fill.
func (r *Renderer) SetBackground(bg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = bg
}

// Dirty counts changed items. The whole document is regenerated on each
// render, so no per-item state is kept.
func (r *Renderer) Dirty(*scene.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty++
}

// Render writes the document and shows it.
func (r *Renderer) Render(ctx context.Context, root *scene.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return render.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := Markup(root, r.surface.Width, r.surface.Height, r.surface.Origin, r.surface.Scale, r.background)
	r.frame = render.Frame{
		Type:   render.FrameSVG,
		Width:  r.surface.Width,
		Height: r.surface.Height,
		Data:   data,
	}
	r.dirty = 0

	if r.surface.Container != nil {
		return r.surface.Container.Show(r.frame)
	}
	return nil
}

// Frame returns the last document.
func (r *Renderer) Frame() render.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Shutdown detaches the container.
func (r *Renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = false
	r.surface.Container = nil
}

// Markup renders a scene to an SVG document.
func Markup(root *scene.Item, width, height int, origin scene.Point, scale float64, background string) []byte {
	if scale <= 0 {
		scale = 1
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		int(float64(width)*scale), int(float64(height)*scale), width, height)
	if background != "" {
		fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, html.EscapeString(background))
	}
	fmt.Fprintf(&b, `<g transform="translate(%s,%s)">`, num(origin.X), num(origin.Y))
	if root != nil {
		writeItem(&b, root)
	}
	b.WriteString("</g></svg>")
	return b.Bytes()
}

func writeItem(b *bytes.Buffer, it *scene.Item) {
	switch it.Mark {
	case scene.MarkGroup:
		fmt.Fprintf(b, `<g transform="translate(%s,%s)"%s>`, num(it.X), num(it.Y), classAttr(it))
		if it.Width > 0 && it.Height > 0 && it.Fill != "" {
			fmt.Fprintf(b, `<rect width="%s" height="%s"%s/>`, num(it.Width), num(it.Height), paintAttrs(it))
		}
		for _, c := range it.Items {
			writeItem(b, c)
		}
		b.WriteString("</g>")
	case scene.MarkRect:
		fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s"%s/>`,
			num(it.X), num(it.Y), num(it.Width), num(it.Height), paintAttrs(it))
	case scene.MarkSymbol:
		fmt.Fprintf(b, `<circle cx="%s" cy="%s" r="%s"%s/>`,
			num(it.X), num(it.Y), num(it.SymbolRadius()), paintAttrs(it))
	case scene.MarkRule:
		stroke := it.Stroke
		if stroke == "" {
			stroke = it.Fill
		}
		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`,
			num(it.X), num(it.Y), num(it.X2), num(it.Y2), html.EscapeString(stroke), num(strokeWidth(it)))
	case scene.MarkText:
		fmt.Fprintf(b, `<text x="%s" y="%s" font-size="%s"%s>%s</text>`,
			num(it.X), num(it.Y), num(it.EffectiveFontSize()), paintAttrs(it), html.EscapeString(it.Text))
	case scene.MarkImage:
		fmt.Fprintf(b, `<image x="%s" y="%s" width="%s" height="%s" href="%s"/>`,
			num(it.X), num(it.Y), num(it.Width), num(it.Height), html.EscapeString(it.Href))
	}
}

func classAttr(it *scene.Item) string {
	if it.Name == "" {
		return ""
	}
	return fmt.Sprintf(` class="%s"`, html.EscapeString(it.Name))
}

func paintAttrs(it *scene.Item) string {
	var b bytes.Buffer
	fill := it.Fill
	if fill == "" && it.Mark != scene.MarkText {
		fill = "none"
	}
	if fill != "" {
		if it.Hover {
			if c, ok := render.ParseColor(fill); ok && c.A != 0 {
				fill = render.Hex(render.Highlight(c))
			}
		}
		fmt.Fprintf(&b, ` fill="%s"`, html.EscapeString(fill))
	}
	if it.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s" stroke-width="%s"`, html.EscapeString(it.Stroke), num(strokeWidth(it)))
	}
	if it.Opacity < 1 {
		fmt.Fprintf(&b, ` opacity="%s"`, num(it.Opacity))
	}
	return b.String()
}

func strokeWidth(it *scene.Item) float64 {
	if it.StrokeWidth <= 0 {
		return 1
	}
	return it.StrokeWidth
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
