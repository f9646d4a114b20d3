package term

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
)

func TestRenderer_Snapshot(t *testing.T) {
	var buf render.Buffer
	r := New(render.Options{})
	if err := r.Initialize(&buf, 80, 48, scene.Point{}, 1); err != nil {
		t.Fatal(err)
	}
	defer r.Shutdown()

	root := scene.NewGroup("root")
	label := scene.NewItem(scene.MarkText)
	label.X, label.Y = 0, 20
	label.Text = "hello"
	dot := scene.NewItem(scene.MarkSymbol)
	dot.X, dot.Y = 40, 40
	rule := scene.NewItem(scene.MarkRule)
	rule.X, rule.Y, rule.X2, rule.Y2 = 0, 0, 79, 0
	rule.Stroke = "black"
	root.Add(label, dot, rule)

	if err := r.Render(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	f := buf.Frame()
	if f.Type != render.FrameText || f.Width != 10 || f.Height != 3 {
		t.Fatalf("frame = %+v", f)
	}
	lines := strings.Split(string(f.Data), "\n")
	if lines[0] != strings.Repeat("─", 10) {
		t.Errorf("rule row = %q", lines[0])
	}
	if lines[1] != "hello" {
		t.Errorf("text row = %q", lines[1])
	}
	if lines[2] != "     ●" {
		t.Errorf("symbol row = %q", lines[2])
	}
}

func TestRenderer_Resize(t *testing.T) {
	r := New(render.Options{}).(*Renderer)
	r.Initialize(nil, 16, 16, scene.Point{}, 1)
	defer r.Shutdown()

	r.Resize(32, 32, scene.Point{}, 1)
	if cols, rows := r.Screen().Size(); cols != 4 || rows != 2 {
		t.Errorf("size = %dx%d, want 4x2", cols, rows)
	}
}

func TestRenderer_NotInitialized(t *testing.T) {
	r := New(render.Options{})
	if err := r.Render(context.Background(), nil); !errors.Is(err, render.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
