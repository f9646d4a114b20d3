// Package canvas implements raster renderers on golang.org/x/image.
//
// The canvas renderer paints into an RGBA surface and repaints only the
// rectangles touched by dirty items when it can. The headless renderer
// is the same rasteriser with each frame additionally encoded as PNG.
package canvas

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/render/dirty"
	"github.com/dshills/vizview/internal/scene"
)

// maxDirtyRegions bounds incremental repaint before a full repaint is
// cheaper.
const maxDirtyRegions = 24

// Canvas is a raster renderer.
type Canvas struct {
	mu sync.Mutex

	opts       render.Options
	logger     *logging.Logger
	surface    render.Surface
	background color.RGBA

	img     *image.RGBA
	tracker *dirty.Tracker

	// painted remembers where each item was last drawn so a dirty item
	// also clears its old position.
	painted map[int64]image.Rectangle
	images  map[string]image.Image

	encodePNG   bool
	initialized bool
	shutdown    bool
	frame       render.Frame
	renders     int
}

// New creates a canvas renderer.
func New(opts render.Options) render.Renderer {
	return newCanvas(opts, false)
}

// NewHeadless creates a renderer whose frames also carry PNG bytes.
func NewHeadless(opts render.Options) render.Renderer {
	return newCanvas(opts, true)
}

func newCanvas(opts render.Options, encodePNG bool) *Canvas {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	name := render.TypeCanvas
	if encodePNG {
		name = render.TypeNone
	}
	return &Canvas{
		opts:      opts,
		logger:    logger.WithComponent(name),
		painted:   make(map[int64]image.Rectangle),
		images:    make(map[string]image.Image),
		encodePNG: encodePNG,
	}
}

// Initialize binds the container and allocates the surface.
func (c *Canvas) Initialize(ct render.Container, width, height int, origin scene.Point, scale float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.surface.Container = ct
	c.resize(width, height, origin, scale)
	c.initialized = true
	return nil
}

// Resize reallocates the surface and forces a full repaint.
func (c *Canvas) Resize(width, height int, origin scene.Point, scale float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resize(width, height, origin, scale)
	return nil
}

func (c *Canvas) resize(width, height int, origin scene.Point, scale float64) {
	c.surface.Set(width, height, origin, scale)
	pw := int(float64(c.surface.Width) * c.surface.Scale)
	ph := int(float64(c.surface.Height) * c.surface.Scale)
	c.img = image.NewRGBA(image.Rect(0, 0, pw, ph))
	if c.tracker == nil {
		c.tracker = dirty.NewTracker(pw, ph, dirty.WithMaxRegions(maxDirtyRegions))
	} else {
		c.tracker.SetSize(pw, ph)
	}
	clear(c.painted)
}

// SetBackground sets the fill used to clear the surface.
func (c *Canvas) SetBackground(bg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := render.ParseColor(bg)
	if !ok {
		c.logger.Warn("unrecognized background %q", bg)
		col = render.Transparent
	}
	if col != c.background {
		c.background = col
		if c.tracker != nil {
			c.tracker.MarkFullRedraw()
		}
	}
}

// Dirty marks an item's old and new areas for repaint.
func (c *Canvas) Dirty(item *scene.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tracker == nil || item == nil {
		return
	}
	if old, ok := c.painted[item.ID]; ok {
		c.tracker.MarkRect(old)
	}
	r := pixelBounds(item.Bounds(), c.surface.Origin, c.surface.Scale)
	c.tracker.MarkRect(r)
	c.painted[item.ID] = r
}

// Render paints root and shows the frame.
func (c *Canvas) Render(ctx context.Context, root *scene.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.shutdown {
		return render.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.renders == 0 || c.tracker.IsDirty() {
		regions := c.tracker.Regions()
		if c.renders == 0 || c.tracker.NeedsFullRedraw() {
			regions = []image.Rectangle{c.img.Bounds()}
		}
		for _, clip := range regions {
			c.paintRegion(ctx, root, clip)
		}
		c.tracker.Clear()
		c.recordPainted(root)
	}
	c.renders++

	frame := render.Frame{
		Type:   render.FrameImage,
		Width:  c.img.Bounds().Dx(),
		Height: c.img.Bounds().Dy(),
		Image:  c.img,
	}
	if c.encodePNG {
		var buf bytes.Buffer
		if err := png.Encode(&buf, c.img); err != nil {
			return err
		}
		frame.Data = buf.Bytes()
	}
	c.frame = frame

	if c.surface.Container != nil {
		return c.surface.Container.Show(frame)
	}
	return nil
}

func (c *Canvas) paintRegion(ctx context.Context, root *scene.Item, clip image.Rectangle) {
	clip = clip.Intersect(c.img.Bounds())
	if clip.Empty() {
		return
	}
	dst := c.img.SubImage(clip).(*image.RGBA)
	draw.Draw(dst, clip, image.NewUniform(c.background), image.Point{}, draw.Src)

	if root == nil {
		return
	}
	p := &painter{
		dst:   dst,
		clip:  clip,
		scale: c.surface.Scale,
		images: func(href string) image.Image {
			return c.loadImage(ctx, href)
		},
	}
	p.paint(root, c.surface.Origin.X, c.surface.Origin.Y)
}

func (c *Canvas) recordPainted(root *scene.Item) {
	if root == nil {
		return
	}
	g := &scene.Graph{Root: root}
	g.Walk(func(it *scene.Item) bool {
		c.painted[it.ID] = pixelBounds(it.Bounds(), c.surface.Origin, c.surface.Scale)
		return true
	})
}

// loadImage fetches and decodes an image once per renderer.
func (c *Canvas) loadImage(ctx context.Context, href string) image.Image {
	if img, ok := c.images[href]; ok {
		return img
	}
	if c.opts.Loader == nil {
		return nil
	}

	data, err := c.opts.Loader.Load(ctx, href)
	if err != nil {
		c.logger.Warn("image %s: %v", href, err)
		c.images[href] = nil
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.logger.Warn("decode image %s: %v", href, err)
		img = nil
	}
	c.images[href] = img
	return img
}

// Frame returns the last painted frame.
func (c *Canvas) Frame() render.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Image returns the surface. Callers must not retain it across renders.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

// Shutdown releases the surface.
func (c *Canvas) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdown = true
	c.img = nil
	c.surface.Container = nil
	clear(c.images)
}
