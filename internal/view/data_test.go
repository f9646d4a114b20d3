package view

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/spec"
	"github.com/dshills/vizview/internal/state"
)

func TestData_Unknown(t *testing.T) {
	v := newHarness(t, nil).view
	errs := []error{
		v.SetData("nope", nil),
		v.Insert("nope", 1),
		v.Remove("nope", func(any) bool { return true }),
		v.Change("nope", dataflow.NewChangeset()),
	}
	_, err := v.Data("nope")
	errs = append(errs, err)
	for i, err := range errs {
		var de *DataError
		if !errors.Is(err, ErrUnknownDataset) || !errors.As(err, &de) || de.Name != "nope" {
			t.Errorf("call %d: %v", i, err)
		}
	}
}

func TestData_SetData(t *testing.T) {
	h := newHarness(t, barsSpec())
	v := h.view
	if err := v.SetData("table", []any{map[string]any{"x": 1}}); err != nil {
		t.Fatal(err)
	}
	got, err := v.Data("table")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].(map[string]any)["x"] != 1.0 {
		t.Errorf("data = %#v", got)
	}
	h.run(t)
	if n := len(markItems(t, v, 0)); n != 1 {
		t.Errorf("items = %d, want 1", n)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestData_LoadURL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "points.csv", "x,y,label\n1,2,a\n3,true,\n")
	writeFile(t, dir, "nested.json", `{"result":{"rows":[{"v":1},{"v":2}]}}`)
	writeFile(t, dir, "cols.txt", "a\tb\nx\t4.5\n")

	l, err := loader.New(loader.WithBaseURL(dir))
	if err != nil {
		t.Fatal(err)
	}
	s := &spec.Spec{Data: []spec.Data{
		{Name: "points", URL: "points.csv"},
		{Name: "rows", URL: "nested.json", Format: spec.Format{Property: "result.rows"}},
		{Name: "cols", URL: "cols.txt", Format: spec.Format{Type: "tsv"}},
	}}
	h := newHarness(t, s, WithLoader(l))
	v := h.view

	if got, _ := v.Data("points"); len(got) != 0 {
		t.Fatalf("data loaded before Run: %v", got)
	}
	h.run(t)

	points, _ := v.Data("points")
	if len(points) != 2 {
		t.Fatalf("points = %#v", points)
	}
	p0, p1 := points[0].(map[string]any), points[1].(map[string]any)
	if p0["x"] != 1.0 || p0["y"] != 2.0 || p0["label"] != "a" {
		t.Errorf("points[0] = %#v", p0)
	}
	if p1["y"] != true || p1["label"] != nil {
		t.Errorf("points[1] = %#v", p1)
	}

	rows, _ := v.Data("rows")
	if len(rows) != 2 || rows[1].(map[string]any)["v"] != 2.0 {
		t.Errorf("rows = %#v", rows)
	}
	cols, _ := v.Data("cols")
	if len(cols) != 1 || cols[0].(map[string]any)["b"] != 4.5 {
		t.Errorf("cols = %#v", cols)
	}

	// Loaded data sets are not fetched again.
	if err := os.Remove(filepath.Join(dir, "points.csv")); err != nil {
		t.Fatal(err)
	}
	h.run(t)
}

func TestData_LoadFailure(t *testing.T) {
	l, err := loader.New(loader.WithBaseURL(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	s := &spec.Spec{Data: []spec.Data{{Name: "gone", URL: "missing.json"}}}
	v := newHarness(t, s, WithLoader(l)).view

	err = v.Run(context.Background())
	var le *DataLoadError
	if !errors.As(err, &le) || le.Name != "gone" {
		t.Errorf("Run = %v, want DataLoadError", err)
	}
}

func TestParseData(t *testing.T) {
	if _, err := parseData([]byte("{}"), spec.Format{Type: "xml"}, "a.xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := parseData([]byte(`{"a":1}`), spec.Format{}, "a.json"); err == nil {
		t.Error("expected error for non-array json")
	}
	if _, err := parseData([]byte(`{"a":[]}`), spec.Format{Property: "b"}, "a.json"); err == nil {
		t.Error("expected error for missing property")
	}
	got, err := parseData(nil, spec.Format{}, "empty.csv")
	if err != nil || len(got) != 0 {
		t.Errorf("empty csv = %v, %v", got, err)
	}
}

func TestInferValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"true", true},
		{"false", false},
		{"42", 42.0},
		{"-1.5", -1.5},
		{"1e3", 1000.0},
		{"abc", "abc"},
		{"nan", "nan"},
		{"NaN", "NaN"},
		{"inf", "inf"},
		{"-Inf", "-Inf"},
		{"Infinity", "Infinity"},
		{"+infinity", "+infinity"},
		{"1e400", "1e400"},
		{"0x1p3", "0x1p3"},
		{"-0X1P-2", "-0X1P-2"},
		{"0x10", "0x10"},
	}
	for _, tt := range tests {
		if got := inferValue(tt.in); got != tt.want {
			t.Errorf("inferValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestParseData_CSVKeepsNonFiniteAsText(t *testing.T) {
	raw := []byte("name,score\na,NaN\nb,Infinity\nc,0x1p3\nd,7\n")
	got, err := parseData(raw, spec.Format{}, "scores.csv")
	if err != nil {
		t.Fatal(err)
	}
	want := []any{"NaN", "Infinity", "0x1p3", 7.0}
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got), len(want))
	}
	for i, row := range got {
		score := row.(map[string]any)["score"]
		if score != want[i] {
			t.Errorf("row %d score = %#v, want %#v", i, score, want[i])
		}
	}
}

func TestState_GetSet(t *testing.T) {
	h := newHarness(t, barsSpec())
	v := h.view
	h.run(t)

	doc, err := v.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got := gjson.Get(doc, "signals.size").Float(); got != 10 {
		t.Errorf("signals.size = %v", got)
	}
	if got := gjson.Get(doc, "data.table.#").Int(); got != 2 {
		t.Errorf("data.table.# = %v", got)
	}
	if got := gjson.Get(doc, "signals.padding.left"); !got.Exists() {
		t.Error("padding signal missing from state")
	}

	filtered, err := v.GetState(state.WithSignals(state.Exclude("width")), state.WithData(nil))
	if err != nil {
		t.Fatal(err)
	}
	if gjson.Get(filtered, "signals.width").Exists() || gjson.Get(filtered, "data.table").Exists() {
		t.Errorf("filtered state = %s", filtered)
	}

	err = v.SetState(context.Background(), `{"signals":{"size":42},"data":{"table":[{"x":9,"y":1}]}}`)
	if err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if got, _ := v.Signal("size"); got != 42.0 {
		t.Errorf("size = %#v", got)
	}
	items := markItems(t, v, 0)
	if len(items) != 1 || items[0].Width != 42 || items[0].X != 90 {
		t.Errorf("items after SetState = %+v", items)
	}

	if err := v.SetState(context.Background(), "not json"); !errors.Is(err, state.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestBindings(t *testing.T) {
	s := &spec.Spec{Signals: []spec.Signal{
		{Name: "size", Value: 3.0, Bind: &spec.Bind{Input: "range", Min: 1, Max: 10}},
		{Name: "plain", Value: 1.0},
	}}
	v := newHarness(t, s).view
	b := v.Bindings()
	if len(b) != 1 || b[0].Signal != "size" || b[0].Bind.Max != 10 || b[0].Value != 3.0 {
		t.Errorf("bindings = %+v", b)
	}
}

func TestExport(t *testing.T) {
	v, err := New(barsSpec(), WithLogger(logging.NullLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer v.Finalize()
	ctx := context.Background()

	markup, err := v.ToSVG(ctx)
	if err != nil {
		t.Fatalf("ToSVG: %v", err)
	}
	if !strings.HasPrefix(markup, "<svg") || !strings.Contains(markup, "<rect") {
		t.Errorf("markup = %s", markup)
	}

	url, err := v.ToImageURL(ctx, ImageSVG)
	if err != nil || !strings.HasPrefix(url, "data:image/svg+xml;base64,") {
		t.Errorf("svg url = %.40s, %v", url, err)
	}
	url, err = v.ToImageURL(ctx, ImagePNG)
	if err != nil || !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("png url = %.40s, %v", url, err)
	}
	if _, err := v.ToImageURL(ctx, "gif"); !errors.Is(err, ErrUnknownRenderer) {
		t.Errorf("gif export = %v", err)
	}

	img, err := v.ToCanvas(ctx)
	if err != nil {
		t.Fatalf("ToCanvas: %v", err)
	}
	w, hgt := v.ViewSize()
	if img.Bounds().Dx() != int(w) || img.Bounds().Dy() != int(hgt) {
		t.Errorf("canvas %v, view %gx%g", img.Bounds(), w, hgt)
	}
	if v.RendererInstance() != nil {
		t.Error("export created the view's renderer")
	}
}

func TestEvents(t *testing.T) {
	v := newHarness(t, nil).view
	ch, cancel, err := v.Events(event.Click, func(e *event.Event) bool { return e.X > 10 })
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, x := range []float64{5, 20} {
		if err := v.Dispatch(ctx, event.New(event.Click, x, 0)); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case e := <-ch:
		if e.X != 20 {
			t.Errorf("received x = %g", e.X)
		}
	default:
		t.Fatal("no event delivered")
	}
	select {
	case e := <-ch:
		t.Errorf("filtered event delivered: %+v", e)
	default:
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel not closed")
	}
	if err := v.Dispatch(ctx, event.New(event.Click, 30, 0)); err != nil {
		t.Fatal(err)
	}
}

func TestTimer(t *testing.T) {
	h := newHarness(t, nil)
	ticks := make(chan time.Duration, 1)
	tm := h.view.Timer(func(elapsed time.Duration) {
		select {
		case ticks <- elapsed:
		default:
		}
	}, time.Millisecond)

	select {
	case d := <-ticks:
		if d <= 0 {
			t.Errorf("elapsed = %v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	tm.Stop()
	h.view.Finalize()
}
