package view

import (
	"math"

	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

// layout is the computed viewport.
type layout struct {
	ViewWidth  float64
	ViewHeight float64
	Origin     scene.Point
}

// surface returns the full surface size including padding.
func (l layout) surface(p scene.Padding) (width, height int) {
	w := l.ViewWidth + p.Left + p.Right
	h := l.ViewHeight + p.Top + p.Bottom
	return int(math.Round(math.Max(0, w))), int(math.Round(math.Max(0, h)))
}

// sizeKey marks the dataflow listeners installed by buildSizing.
type sizeKey struct{}

// computeLayout derives the viewport from the sizing signals and the
// content bounds. Pad grows the viewport to include content on both
// axes, fit-x and fit-y pad only the free axis, fit and none keep the
// declared size.
func computeLayout(a spec.Autosize, width, height float64, pad scene.Padding, content scene.Bounds) layout {
	a = a.Normalize()
	viewW, viewH := width, height
	if a.Contains == spec.ContainsPadding {
		viewW -= pad.Left + pad.Right
		viewH -= pad.Top + pad.Bottom
	}
	l := layout{
		ViewWidth:  math.Max(0, viewW),
		ViewHeight: math.Max(0, viewH),
		Origin:     scene.Point{X: pad.Left, Y: pad.Top},
	}
	if content.Empty() {
		return l
	}

	padX := a.Type == spec.AutosizePad || a.Type == spec.AutosizeFitY
	padY := a.Type == spec.AutosizePad || a.Type == spec.AutosizeFitX
	if padX {
		shift := math.Min(0, content.X1)
		l.ViewWidth = math.Max(l.ViewWidth, content.X2) - shift
		l.Origin.X = pad.Left - shift
	}
	if padY {
		shift := math.Min(0, content.Y1)
		l.ViewHeight = math.Max(l.ViewHeight, content.Y2) - shift
		l.Origin.Y = pad.Top - shift
	}
	return l
}

// buildSizing installs listeners so changes to the sizing signals force a
// sizing pass and a renderer resize.
func (v *View) buildSizing() error {
	for _, name := range []string{SignalWidth, SignalHeight, SignalPadding, SignalAutosize} {
		v.df.On(v.signals[name], sizeKey{}, func(any) error {
			v.autosizeFlag = true
			v.resize = true
			return nil
		})
	}
	v.df.On(v.signals[SignalBackground], sizeKey{}, func(value any) error {
		bg, _ := value.(string)
		if bg != v.background {
			v.background = bg
		}
		v.resize = true
		return nil
	})
	return nil
}

// Resize forces the viewport to be recomputed on the next Run.
func (v *View) Resize() {
	v.autosizeFlag = true
	v.df.Touch(v.signals[SignalAutosize])
}

// resizeView runs the sizing pass after evaluation.
func (v *View) resizeView() {
	a := v.Autosize()
	if !v.autosizeFlag && a.Type == spec.AutosizeNone && !a.Resize {
		return
	}
	v.autosizeFlag = false

	next := computeLayout(a, v.Width(), v.Height(), v.Padding(), v.graph.Bounds())
	if next != v.layout {
		v.logger.Debug("viewport %gx%g origin (%g,%g)", next.ViewWidth, next.ViewHeight, next.Origin.X, next.Origin.Y)
		v.layout = next
		v.resize = true
	}
}
