// Package term implements a renderer that paints a scene into terminal
// cells with tcell.
//
// Each cell covers CellWidth by CellHeight view pixels. When the container
// supplies a screen through ScreenProvider the renderer draws on it;
// otherwise it draws on a simulation screen, which is useful for tests and
// for text snapshots.
package term

import (
	"context"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
)

// Cell geometry in view pixels.
const (
	CellWidth  = 8
	CellHeight = 16
)

// ScreenProvider is implemented by containers that own a terminal screen.
type ScreenProvider interface {
	Screen() tcell.Screen
}

// Renderer paints to a tcell screen.
type Renderer struct {
	mu sync.Mutex

	opts       render.Options
	logger     *logging.Logger
	surface    render.Surface
	background tcell.Color

	screen    tcell.Screen
	ownScreen bool
	frame     render.Frame
}

// New creates a terminal renderer.
func New(opts render.Options) render.Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &Renderer{
		opts:       opts,
		logger:     logger.WithComponent(render.TypeTerminal),
		background: tcell.ColorReset,
	}
}

// Initialize attaches to the container's screen or a simulation screen.
func (r *Renderer) Initialize(c render.Container, width, height int, origin scene.Point, scale float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface.Container = c
	r.surface.Set(width, height, origin, scale)

	if sp, ok := c.(ScreenProvider); ok && sp.Screen() != nil {
		r.screen = sp.Screen()
		r.ownScreen = false
		return nil
	}

	sim := tcell.NewSimulationScreen("UTF-8")
	if err := sim.Init(); err != nil {
		return err
	}
	cols, rows := cellSize(r.surface)
	sim.SetSize(cols, rows)
	r.screen = sim
	r.ownScreen = true
	return nil
}

func cellSize(s render.Surface) (int, int) {
	cols := int(math.Ceil(float64(s.Width) * s.Scale / CellWidth))
	rows := int(math.Ceil(float64(s.Height) * s.Scale / CellHeight))
	return cols, rows
}

// Resize updates geometry. A simulation screen is resized to fit.
func (r *Renderer) Resize(width, height int, origin scene.Point, scale float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface.Set(width, height, origin, scale)
	if sim, ok := r.screen.(tcell.SimulationScreen); ok && r.ownScreen {
		sim.SetSize(cellSize(r.surface))
	}
	return nil
}

// SetBackground sets the cell background colour.
func (r *Renderer) SetBackground(bg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = tcellColor(bg)
}

// Dirty is a no-op; terminal frames are always repainted in full.
func (r *Renderer) Dirty(*scene.Item) {}

// Render paints the scene and shows the screen.
func (r *Renderer) Render(ctx context.Context, root *scene.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.screen == nil {
		return render.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bg := tcell.StyleDefault.Background(r.background)
	r.screen.SetStyle(bg)
	r.screen.Clear()

	if root != nil {
		r.paint(root, r.surface.Origin.X, r.surface.Origin.Y)
	}
	r.screen.Show()

	cols, rows := r.screen.Size()
	r.frame = render.Frame{
		Type:   render.FrameText,
		Width:  cols,
		Height: rows,
		Data:   []byte(r.snapshot(cols, rows)),
	}
	if r.surface.Container != nil {
		return r.surface.Container.Show(r.frame)
	}
	return nil
}

func (r *Renderer) cell(x, y float64) (int, int) {
	return int(math.Floor(x * r.surface.Scale / CellWidth)), int(math.Floor(y * r.surface.Scale / CellHeight))
}

func (r *Renderer) paint(it *scene.Item, ox, oy float64) {
	if it.Opacity <= 0 {
		return
	}
	x, y := ox+it.X, oy+it.Y

	switch it.Mark {
	case scene.MarkGroup:
		if it.Fill != "" && it.Width > 0 && it.Height > 0 {
			r.fillRect(x, y, it.Width, it.Height, ' ', r.style(it, true))
		}
		for _, c := range it.Items {
			r.paint(c, x, y)
		}
	case scene.MarkRect:
		r.fillRect(x, y, it.Width, it.Height, ' ', r.style(it, true))
	case scene.MarkImage:
		r.fillRect(x, y, it.Width, it.Height, '▒', r.style(it, false))
	case scene.MarkSymbol:
		cx, cy := r.cell(x, y)
		r.screen.SetContent(cx, cy, '●', nil, r.style(it, false))
	case scene.MarkRule:
		r.line(x, y, ox+it.X2, oy+it.Y2, r.style(it, false))
	case scene.MarkText:
		cx, cy := r.cell(x, y-1)
		for i, ch := range []rune(it.Text) {
			r.screen.SetContent(cx+i, cy, ch, nil, r.style(it, false))
		}
	}
}

// style builds the cell style. Area marks paint with the background
// colour, glyph marks with the foreground.
func (r *Renderer) style(it *scene.Item, area bool) tcell.Style {
	fill := it.Fill
	if fill == "" {
		fill = it.Stroke
	}
	c := tcellColor(fill)
	if it.Hover {
		if rgba, ok := render.ParseColor(fill); ok && rgba.A != 0 {
			c = rgbColor(render.Highlight(rgba))
		}
	}
	st := tcell.StyleDefault.Background(r.background)
	if area {
		return st.Background(c)
	}
	return st.Foreground(c)
}

func (r *Renderer) fillRect(x, y, w, h float64, ch rune, st tcell.Style) {
	x0, y0 := r.cell(x, y)
	x1, y1 := r.cell(x+w, y+h)
	if x1 == x0 {
		x1++
	}
	if y1 == y0 {
		y1++
	}
	for cy := y0; cy < y1; cy++ {
		for cx := x0; cx < x1; cx++ {
			r.screen.SetContent(cx, cy, ch, nil, st)
		}
	}
}

// line draws with Bresenham's algorithm in cell space.
func (r *Renderer) line(x1, y1, x2, y2 float64, st tcell.Style) {
	cx, cy := r.cell(x1, y1)
	ex, ey := r.cell(x2, y2)
	dx, dy := abs(ex-cx), -abs(ey-cy)
	sx, sy := sign(ex-cx), sign(ey-cy)
	e := dx + dy

	ch := '·'
	switch {
	case dy == 0:
		ch = '─'
	case dx == 0:
		ch = '│'
	}
	for {
		r.screen.SetContent(cx, cy, ch, nil, st)
		if cx == ex && cy == ey {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			cx += sx
		}
		if e2 <= dx {
			e += dx
			cy += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// snapshot reads the screen back as text, one line per row.
func (r *Renderer) snapshot(cols, rows int) string {
	var b strings.Builder
	for y := 0; y < rows; y++ {
		line := make([]rune, cols)
		for x := 0; x < cols; x++ {
			mainc, _, _, _ := r.screen.GetContent(x, y) //nolint:staticcheck // GetContent is the correct API
			if mainc == 0 {
				mainc = ' '
			}
			line[x] = mainc
		}
		b.WriteString(strings.TrimRight(string(line), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Frame returns the last text snapshot.
func (r *Renderer) Frame() render.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Screen returns the screen being painted.
func (r *Renderer) Screen() tcell.Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen
}

// Shutdown finalises an owned simulation screen.
func (r *Renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.screen != nil && r.ownScreen {
		r.screen.Fini()
	}
	r.screen = nil
	r.surface.Container = nil
}

func tcellColor(s string) tcell.Color {
	c, ok := render.ParseColor(s)
	if !ok || c.A == 0 {
		return tcell.ColorReset
	}
	return rgbColor(c)
}

func rgbColor(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
