package dirty

import (
	"image"
	"testing"
)

func cleanTracker(w, h int) *Tracker {
	t := NewTracker(w, h)
	t.Clear()
	return t
}

func TestNewTracker_StartsFull(t *testing.T) {
	tr := NewTracker(100, 50)
	if !tr.NeedsFullRedraw() {
		t.Error("new tracker should need a full redraw")
	}
	regs := tr.Regions()
	if len(regs) != 1 || regs[0] != image.Rect(0, 0, 100, 50) {
		t.Errorf("Regions() = %v", regs)
	}

	tr = NewTracker(-5, -5)
	if len(tr.Regions()) != 0 {
		t.Error("empty surface should have no regions")
	}
}

func TestMarkRect_Merge(t *testing.T) {
	tests := []struct {
		name  string
		rects []image.Rectangle
		want  []image.Rectangle
	}{
		{
			name:  "disjoint",
			rects: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(50, 50, 60, 60)},
			want:  []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(50, 50, 60, 60)},
		},
		{
			name:  "overlapping",
			rects: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(5, 5, 15, 15)},
			want:  []image.Rectangle{image.Rect(0, 0, 15, 15)},
		},
		{
			name:  "adjacent",
			rects: []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(10, 0, 20, 10)},
			want:  []image.Rectangle{image.Rect(0, 0, 20, 10)},
		},
		{
			name:  "clipped",
			rects: []image.Rectangle{image.Rect(-10, -10, 5, 5)},
			want:  []image.Rectangle{image.Rect(0, 0, 5, 5)},
		},
		{
			name:  "outside",
			rects: []image.Rectangle{image.Rect(500, 500, 600, 600)},
			want:  []image.Rectangle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := cleanTracker(200, 200)
			for _, r := range tt.rects {
				tr.MarkRect(r)
			}
			got := tr.Regions()
			if len(got) != len(tt.want) {
				t.Fatalf("Regions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("region %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMarkRect_ThresholdForcesFull(t *testing.T) {
	tr := cleanTracker(100, 100)
	tr.MarkRect(image.Rect(0, 0, 80, 80))
	if !tr.NeedsFullRedraw() {
		t.Error("large dirty area should force a full redraw")
	}
}

func TestMarkRect_MaxRegions(t *testing.T) {
	tr := NewTracker(1000, 1000, WithMaxRegions(2))
	tr.Clear()
	tr.MarkRect(image.Rect(0, 0, 5, 5))
	tr.MarkRect(image.Rect(100, 100, 105, 105))
	if tr.NeedsFullRedraw() {
		t.Fatal("two regions should not force a full redraw")
	}
	tr.MarkRect(image.Rect(200, 200, 205, 205))
	if !tr.NeedsFullRedraw() {
		t.Error("exceeding max regions should force a full redraw")
	}
}

func TestSetSizeAndClear(t *testing.T) {
	tr := cleanTracker(10, 10)
	if tr.IsDirty() {
		t.Fatal("cleared tracker should not be dirty")
	}
	tr.SetSize(20, 20)
	if !tr.NeedsFullRedraw() {
		t.Error("SetSize should force a full redraw")
	}
	tr.Clear()
	if tr.IsDirty() {
		t.Error("Clear should reset dirtiness")
	}
}

func TestWithFullRatio(t *testing.T) {
	tr := NewTracker(100, 100, WithFullRatio(2))
	tr.Clear()
	tr.MarkRect(image.Rect(0, 0, 100, 100))
	if tr.NeedsFullRedraw() {
		t.Error("ratio clamped to 1 should not trip on exactly the whole surface")
	}
	if got := tr.Regions(); len(got) != 1 || got[0] != image.Rect(0, 0, 100, 100) {
		t.Errorf("Regions() = %v", got)
	}
}

func TestMerge_Chain(t *testing.T) {
	tr := cleanTracker(1000, 1000)
	tr.MarkRect(image.Rect(0, 0, 5, 5))
	tr.MarkRect(image.Rect(20, 0, 25, 5))
	// Bridges both earlier regions.
	tr.MarkRect(image.Rect(4, 0, 21, 5))
	if got := tr.Regions(); len(got) != 1 || got[0] != image.Rect(0, 0, 25, 5) {
		t.Errorf("Regions() = %v", got)
	}
}
