package canvas

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
)

// kappa is the cubic Bézier control distance for a quarter circle.
const kappa = 0.5522847498

// painter draws items into a clip rectangle of the destination. Vector
// paths are rasterised in clip-local coordinates; text and images use the
// destination's own coordinates and rely on the sub-image bounds to clip.
type painter struct {
	dst    *image.RGBA
	clip   image.Rectangle
	scale  float64
	images func(href string) image.Image
}

func (p *painter) paint(it *scene.Item, ox, oy float64) {
	if it.Opacity <= 0 {
		return
	}

	switch it.Mark {
	case scene.MarkGroup:
		if it.Width > 0 && it.Height > 0 {
			p.rect(it, ox+it.X, oy+it.Y, it.Width, it.Height)
		}
		for _, c := range it.Items {
			p.paint(c, ox+it.X, oy+it.Y)
		}
	case scene.MarkRect:
		p.rect(it, ox+it.X, oy+it.Y, it.Width, it.Height)
	case scene.MarkSymbol:
		p.symbol(it, ox+it.X, oy+it.Y)
	case scene.MarkRule:
		p.rule(it, ox+it.X, oy+it.Y, ox+it.X2, oy+it.Y2)
	case scene.MarkText:
		p.text(it, ox+it.X, oy+it.Y)
	case scene.MarkImage:
		p.image(it, ox+it.X, oy+it.Y)
	}
}

func (p *painter) fillColor(it *scene.Item) color.RGBA {
	c, ok := render.ParseColor(it.Fill)
	if !ok {
		return render.Transparent
	}
	if it.Hover {
		c = render.Highlight(c)
	}
	return render.WithOpacity(c, it.Opacity)
}

func (p *painter) strokeColor(it *scene.Item) (color.RGBA, float64) {
	if it.Stroke == "" {
		return render.Transparent, 0
	}
	c, ok := render.ParseColor(it.Stroke)
	if !ok {
		return render.Transparent, 0
	}
	w := it.StrokeWidth
	if w <= 0 {
		w = 1
	}
	return render.WithOpacity(c, it.Opacity), w * p.scale
}

// local converts view coordinates to clip-local rasteriser coordinates.
func (p *painter) local(x, y float64) (float32, float32) {
	return float32(x*p.scale - float64(p.clip.Min.X)), float32(y*p.scale - float64(p.clip.Min.Y))
}

func (p *painter) fill(c color.RGBA, build func(z *vector.Rasterizer)) {
	if c.A == 0 || p.clip.Empty() {
		return
	}
	z := vector.NewRasterizer(p.clip.Dx(), p.clip.Dy())
	build(z)
	z.Draw(p.dst, p.clip, image.NewUniform(c), image.Point{})
}

func (p *painter) rectPath(z *vector.Rasterizer, x, y, w, h float64) {
	x0, y0 := p.local(x, y)
	x1, y1 := p.local(x+w, y+h)
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
}

// reverseRectPath winds the other way so it cuts a hole.
func (p *painter) reverseRectPath(z *vector.Rasterizer, x, y, w, h float64) {
	x0, y0 := p.local(x, y)
	x1, y1 := p.local(x+w, y+h)
	z.MoveTo(x0, y0)
	z.LineTo(x0, y1)
	z.LineTo(x1, y1)
	z.LineTo(x1, y0)
	z.ClosePath()
}

func (p *painter) rect(it *scene.Item, x, y, w, h float64) {
	p.fill(p.fillColor(it), func(z *vector.Rasterizer) {
		p.rectPath(z, x, y, w, h)
	})

	sc, sw := p.strokeColor(it)
	if sw == 0 {
		return
	}
	half := sw / p.scale / 2
	p.fill(sc, func(z *vector.Rasterizer) {
		p.rectPath(z, x-half, y-half, w+2*half, h+2*half)
		if w > 2*half && h > 2*half {
			p.reverseRectPath(z, x+half, y+half, w-2*half, h-2*half)
		}
	})
}

func (p *painter) circlePath(z *vector.Rasterizer, cx, cy, r float64, reverse bool) {
	k := r * kappa
	pt := func(x, y float64) (float32, float32) { return p.local(cx+x, cy+y) }

	sx, sy := pt(r, 0)
	z.MoveTo(sx, sy)
	quarters := [4][6]float64{
		{r, k, k, r, 0, r},
		{-k, r, -r, k, -r, 0},
		{-r, -k, -k, -r, 0, -r},
		{k, -r, r, -k, r, 0},
	}
	if reverse {
		quarters = [4][6]float64{
			{r, -k, k, -r, 0, -r},
			{-k, -r, -r, -k, -r, 0},
			{-r, k, -k, r, 0, r},
			{k, r, r, k, r, 0},
		}
	}
	for _, q := range quarters {
		ax, ay := pt(q[0], q[1])
		bx, by := pt(q[2], q[3])
		ex, ey := pt(q[4], q[5])
		z.CubeTo(ax, ay, bx, by, ex, ey)
	}
	z.ClosePath()
}

func (p *painter) symbol(it *scene.Item, cx, cy float64) {
	r := it.SymbolRadius()
	p.fill(p.fillColor(it), func(z *vector.Rasterizer) {
		p.circlePath(z, cx, cy, r, false)
	})

	sc, sw := p.strokeColor(it)
	if sw == 0 {
		return
	}
	half := sw / p.scale / 2
	p.fill(sc, func(z *vector.Rasterizer) {
		p.circlePath(z, cx, cy, r+half, false)
		if r > half {
			p.circlePath(z, cx, cy, r-half, true)
		}
	})
}

func (p *painter) rule(it *scene.Item, x1, y1, x2, y2 float64) {
	sc, sw := p.strokeColor(it)
	if sw == 0 {
		// Rules without a stroke fall back to the fill colour.
		sc = p.fillColor(it)
		sw = p.scale
	}
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	half := sw / p.scale / 2
	nx, ny := -dy/length*half, dx/length*half

	p.fill(sc, func(z *vector.Rasterizer) {
		ax, ay := p.local(x1+nx, y1+ny)
		bx, by := p.local(x2+nx, y2+ny)
		cx, cy := p.local(x2-nx, y2-ny)
		ex, ey := p.local(x1-nx, y1-ny)
		z.MoveTo(ax, ay)
		z.LineTo(bx, by)
		z.LineTo(cx, cy)
		z.LineTo(ex, ey)
		z.ClosePath()
	})
}

func (p *painter) text(it *scene.Item, x, y float64) {
	if it.Text == "" {
		return
	}
	c := p.fillColor(it)
	if it.Fill == "" {
		c = render.WithOpacity(color.RGBA{A: 0xff}, it.Opacity)
	}
	d := &font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(math.Round(x*p.scale)), int(math.Round(y*p.scale))),
	}
	d.DrawString(it.Text)
}

func (p *painter) image(it *scene.Item, x, y float64) {
	if it.Href == "" || p.images == nil {
		return
	}
	src := p.images(it.Href)
	if src == nil {
		return
	}

	w, h := it.Width, it.Height
	if w <= 0 {
		w = float64(src.Bounds().Dx())
	}
	if h <= 0 {
		h = float64(src.Bounds().Dy())
	}
	r := image.Rect(
		int(math.Round(x*p.scale)), int(math.Round(y*p.scale)),
		int(math.Round((x+w)*p.scale)), int(math.Round((y+h)*p.scale)),
	)
	xdraw.ApproxBiLinear.Scale(p.dst, r, src, src.Bounds(), xdraw.Over, nil)
}

// pixelBounds converts view bounds to a device rectangle, padded by one
// pixel for antialiasing.
func pixelBounds(b scene.Bounds, origin scene.Point, scale float64) image.Rectangle {
	if b.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor((b.X1+origin.X)*scale)), int(math.Floor((b.Y1+origin.Y)*scale)),
		int(math.Ceil((b.X2+origin.X)*scale)), int(math.Ceil((b.Y2+origin.Y)*scale)),
	).Inset(-1)
}
