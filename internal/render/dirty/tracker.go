// Package dirty tracks the areas of a raster surface that need repainting
// and coalesces them for incremental rendering.
package dirty

import "image"

// Defaults used by NewTracker.
const (
	DefaultMaxRegions = 32
	DefaultFullRatio  = 0.5
)

// Tracker collects dirty rectangles on a surface of fixed pixel size.
// Overlapping or touching rectangles are merged. Too many rectangles, or
// too large a dirty fraction, collapse into a full redraw.
//
// A Tracker is not safe for concurrent use; the canvas renderer holds its
// own lock around every call.
type Tracker struct {
	bounds  image.Rectangle
	regions []image.Rectangle
	full    bool

	maxRegions int
	fullRatio  float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxRegions sets the region count above which the tracker falls
// back to a full redraw. Values below 1 are clamped to 1.
func WithMaxRegions(n int) Option {
	return func(t *Tracker) {
		t.maxRegions = max(n, 1)
	}
}

// WithFullRatio sets the dirty fraction of the surface above which the
// tracker falls back to a full redraw. It is clamped to [0, 1].
func WithFullRatio(r float64) Option {
	return func(t *Tracker) {
		t.fullRatio = min(max(r, 0), 1)
	}
}

// NewTracker creates a tracker with a full redraw pending. Negative
// dimensions are treated as zero.
func NewTracker(width, height int, opts ...Option) *Tracker {
	t := &Tracker{
		maxRegions: DefaultMaxRegions,
		fullRatio:  DefaultFullRatio,
		full:       true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.bounds = image.Rect(0, 0, max(width, 0), max(height, 0))
	return t
}

// SetSize changes the surface size. Every pixel becomes dirty.
func (t *Tracker) SetSize(width, height int) {
	t.bounds = image.Rect(0, 0, max(width, 0), max(height, 0))
	t.MarkFullRedraw()
}

// MarkFullRedraw marks the entire surface dirty.
func (t *Tracker) MarkFullRedraw() {
	t.full = true
	t.regions = t.regions[:0]
}

// MarkRect marks r dirty. Parts outside the surface are ignored.
func (t *Tracker) MarkRect(r image.Rectangle) {
	if t.full {
		return
	}
	r = r.Intersect(t.bounds)
	if r.Empty() {
		return
	}
	t.regions = append(t.regions, r)
	t.merge()

	if len(t.regions) > t.maxRegions || t.ratio() > t.fullRatio {
		t.MarkFullRedraw()
	}
}

func touches(a, b image.Rectangle) bool {
	return a.Inset(-1).Overlaps(b)
}

// merge unions touching regions until every pair is disjoint.
func (t *Tracker) merge() {
	for i := 0; i < len(t.regions); i++ {
		for j := i + 1; j < len(t.regions); j++ {
			if !touches(t.regions[i], t.regions[j]) {
				continue
			}
			t.regions[i] = t.regions[i].Union(t.regions[j])
			t.regions = append(t.regions[:j], t.regions[j+1:]...)
			// The grown region may now touch one already passed.
			j = i
		}
	}
}

func (t *Tracker) ratio() float64 {
	total := t.bounds.Dx() * t.bounds.Dy()
	if total == 0 {
		return 0
	}
	area := 0
	for _, r := range t.regions {
		area += r.Dx() * r.Dy()
	}
	return float64(area) / float64(total)
}

// IsDirty reports whether anything needs repainting.
func (t *Tracker) IsDirty() bool {
	return t.full || len(t.regions) > 0
}

// NeedsFullRedraw reports whether the whole surface must be repainted.
func (t *Tracker) NeedsFullRedraw() bool {
	return t.full
}

// Regions returns the rectangles to repaint. A full redraw yields the
// whole surface, or nothing for an empty one.
func (t *Tracker) Regions() []image.Rectangle {
	if t.full {
		if t.bounds.Empty() {
			return nil
		}
		return []image.Rectangle{t.bounds}
	}
	return append([]image.Rectangle(nil), t.regions...)
}

// Clear marks the surface clean.
func (t *Tracker) Clear() {
	t.regions = t.regions[:0]
	t.full = false
}
