// Package render defines the renderer contract and the registry of
// renderer modules a view can select by name.
//
// A renderer paints a scene graph onto a surface and hands the result to
// a Container as a Frame. Renderers are created per configuration and
// never reconfigured in place; a view discards and recreates its renderer
// whenever the renderer type, tooltip handler or loader changes.
package render

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/scene"
)

// Renderer type names.
const (
	TypeCanvas   = "canvas"
	TypeSVG      = "svg"
	TypeNone     = "none"
	TypeTerminal = "terminal"
)

// ErrNotInitialized is returned when painting before Initialize.
var ErrNotInitialized = errors.New("render: renderer not initialized")

// FrameType identifies the payload of a Frame.
type FrameType string

const (
	FrameImage FrameType = "image"
	FrameSVG   FrameType = "svg"
	FrameText  FrameType = "text"
)

// Frame is one painted result.
type Frame struct {
	Type   FrameType
	Width  int
	Height int

	// Image holds the raster for image frames.
	Image *image.RGBA

	// Data holds SVG markup, PNG bytes for headless frames, or the text
	// contents of a terminal frame.
	Data []byte
}

// Container receives frames as they are painted.
type Container interface {
	Show(f Frame) error
}

// ContainerFunc adapts a function to Container.
type ContainerFunc func(Frame) error

// Show calls f.
func (f ContainerFunc) Show(fr Frame) error {
	return f(fr)
}

// Buffer is a Container keeping the latest frame.
type Buffer struct {
	mu     sync.Mutex
	frame  Frame
	frames int
}

// Show stores the frame.
func (b *Buffer) Show(f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = f
	b.frames++
	return nil
}

// Frame returns the latest frame.
func (b *Buffer) Frame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Count returns the number of frames received.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Renderer paints a scene graph.
type Renderer interface {
	// Initialize binds the renderer to a container and sizes the surface.
	Initialize(c Container, width, height int, origin scene.Point, scale float64) error

	// Resize changes the surface size and the origin translation applied
	// to the scene root.
	Resize(width, height int, origin scene.Point, scale float64) error

	// SetBackground sets the surface fill colour. Empty means transparent.
	SetBackground(color string)

	// Render paints root and sends the frame to the container.
	Render(ctx context.Context, root *scene.Item) error

	// Dirty notes that an item changed so the next Render may repaint
	// only the affected area.
	Dirty(item *scene.Item)

	// Frame returns the most recently painted frame.
	Frame() Frame

	// Shutdown releases resources. The renderer is unusable afterwards.
	Shutdown()
}

// Options are passed to a renderer factory.
type Options struct {
	Loader loader.Loader
	Logger *logging.Logger
}

// Factory creates a renderer.
type Factory func(Options) Renderer

// Surface holds the geometry shared by every renderer.
type Surface struct {
	Container Container
	Width     int
	Height    int
	Origin    scene.Point
	Scale     float64
}

// Set records new geometry. A non-positive scale is treated as 1.
func (s *Surface) Set(width, height int, origin scene.Point, scale float64) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if scale <= 0 {
		scale = 1
	}
	s.Width, s.Height, s.Origin, s.Scale = width, height, origin, scale
}
