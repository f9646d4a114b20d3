package spec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/scene"
)

const barsJSON = `{
  "description": "bars",
  "width": 200,
  "height": 100,
  "padding": 5,
  "autosize": "fit",
  "background": "white",
  "signals": [
    {"name": "size", "value": 10},
    {"name": "double", "update": "size * 2"},
    {"name": "picked", "value": null,
     "on": [{"events": "rect:click", "update": "datum"}]}
  ],
  "data": [{"name": "table", "values": [{"x": 1, "y": 2}]}],
  "marks": [{
    "type": "rect",
    "name": "bars",
    "from": {"data": "table"},
    "encode": {"enter": {"x": {"field": "x", "mult": 10}, "fill": "steelblue",
                         "width": {"signal": "size"}}}
  }],
  "eventConfig": {"defaults": {"prevent": true, "allow": ["wheel"]}}
}`

func TestParse_JSON(t *testing.T) {
	s, err := Parse([]byte(barsJSON), SyntaxJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Width != 200 || s.Height != 100 {
		t.Errorf("size = %vx%v", s.Width, s.Height)
	}
	if !s.Padding.Set || s.Padding.Left != 5 || s.Padding.Bottom != 5 {
		t.Errorf("padding = %+v", s.Padding)
	}
	if s.Autosize.Type != AutosizeFit {
		t.Errorf("autosize = %+v", s.Autosize)
	}

	size, ok := s.Signal("size")
	if !ok {
		t.Fatal("size signal missing")
	}
	if v, ok := size.Value.(float64); !ok || v != 10 {
		t.Errorf("size value = %#v, want float64 10", size.Value)
	}

	row := s.Data[0].Values[0].(map[string]any)
	if _, ok := row["x"].(float64); !ok {
		t.Errorf("datum x = %T, want float64", row["x"])
	}

	enc := s.Marks[0].Encode.Enter
	if enc["fill"].Value != "steelblue" {
		t.Errorf("fill = %+v", enc["fill"])
	}
	if enc["x"].Field != "x" || enc["x"].Mult != 10 {
		t.Errorf("x = %+v", enc["x"])
	}
	if enc["width"].Signal != "size" {
		t.Errorf("width = %+v", enc["width"])
	}

	d := s.EventConfig.Defaults
	if !d.Prevent.Set || !d.Prevent.Bool {
		t.Errorf("prevent = %+v", d.Prevent)
	}
	if !d.Allow.Set || len(d.Allow.Items) != 1 || d.Allow.Items[0] != "wheel" {
		t.Errorf("allow = %+v", d.Allow)
	}

	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_YAML(t *testing.T) {
	src := `
width: 50
height: 40
padding: {top: 1, bottom: 2, left: 3, right: 4}
autosize:
  type: pad
  resize: true
  contains: padding
signals:
  - name: n
    value: [1, 2]
    bind: {input: range, min: 0, max: 10, step: 1}
`
	s, err := Parse([]byte(src), SyntaxYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := s.Padding
	if p.Top != 1 || p.Bottom != 2 || p.Left != 3 || p.Right != 4 {
		t.Errorf("padding = %+v", p)
	}
	if !s.Autosize.Resize || s.Autosize.Contains != ContainsPadding {
		t.Errorf("autosize = %+v", s.Autosize)
	}
	vals := s.Signals[0].Value.([]any)
	if vals[1] != 2.0 {
		t.Errorf("value = %#v", vals)
	}
	if got := s.Bindings(); len(got) != 1 || got[0].Bind.Max != 10 {
		t.Errorf("bindings = %+v", got)
	}
}

func TestParse_TOML(t *testing.T) {
	src := `
width = 120
height = 60
autosize = "none"

[[signals]]
name = "size"
value = 3

[[data]]
name = "points"
values = [{ x = 1 }, { x = 2 }]

[[marks]]
type = "symbol"
from = { data = "points" }
[marks.encode.enter]
x = { field = "x" }
size = 30
`
	s, err := Parse([]byte(src), SyntaxTOML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Width != 120 || s.Autosize.Type != AutosizeNone {
		t.Errorf("spec = %+v", s)
	}
	if s.Signals[0].Value != 3.0 {
		t.Errorf("signal value = %#v", s.Signals[0].Value)
	}
	if s.Marks[0].Encode.Enter["size"].Value != 30.0 {
		t.Errorf("size = %#v", s.Marks[0].Encode.Enter["size"])
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("{"), SyntaxJSON)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Syntax != SyntaxJSON {
		t.Errorf("expected ParseError, got %v", err)
	}

	_, err = Parse([]byte("width = "), SyntaxTOML)
	if !errors.As(err, &pe) || pe.Syntax != SyntaxTOML {
		t.Errorf("expected TOML ParseError, got %v", err)
	}

	if _, err := Parse(nil, "xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	s, err := Parse(nil, SyntaxYAML)
	if err != nil || s == nil {
		t.Errorf("empty document: %v", err)
	}
}

func TestSyntaxFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Syntax
		ok   bool
	}{
		{"a.json", SyntaxJSON, true},
		{"a.YML", SyntaxYAML, true},
		{"dir/a.yaml", SyntaxYAML, true},
		{"a.toml", SyntaxTOML, true},
		{"a.txt", "", false},
	}
	for _, tt := range tests {
		got, err := SyntaxFromPath(tt.path)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("SyntaxFromPath(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestLoadFileAndLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.json")
	if err := os.WriteFile(path, []byte(barsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.Description != "bars" {
		t.Errorf("description = %q", s.Description)
	}

	l, err := loader.New(loader.WithBaseURL(dir))
	if err != nil {
		t.Fatal(err)
	}
	s, err = Load(context.Background(), l, "bars.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Marks) != 1 {
		t.Errorf("marks = %d", len(s.Marks))
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate_Problems(t *testing.T) {
	s := &Spec{
		Width:    -1,
		Autosize: Autosize{Type: "stretch"},
		Signals: []Signal{
			{Name: "a"},
			{Name: "a", Update: "1 +"},
			{Name: "b", On: []Stream{{Events: "blob:click", Update: "1"}}},
		},
		Data: []Data{{Name: "a"}},
		Marks: []Mark{
			{Type: "rect", From: &From{Data: "nope"}},
			{Type: "arc"},
			{Type: "rect", Marks: []Mark{{Type: "text"}}},
		},
	}
	err := s.Validate()
	if !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	var ve *ValidationError
	errors.As(err, &ve)

	wantPaths := []string{
		"width",
		"autosize.type",
		"signals[1].name",
		"signals[1].update",
		"signals[2].on[0].events",
		"data[0].name",
		"marks[0].from.data",
		"marks[1].type",
		"marks[2].marks",
	}
	got := make(map[string]bool)
	for _, p := range ve.Problems {
		got[p.Path] = true
	}
	for _, p := range wantPaths {
		if !got[p] {
			t.Errorf("missing problem at %s; got %v", p, ve.Problems)
		}
	}
	if !strings.HasPrefix(err.Error(), "invalid spec: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParseSelector(t *testing.T) {
	rect := scene.NewItem(scene.MarkRect)
	rect.Name = "bars"

	tests := []struct {
		in      string
		want    Selector
		matches bool
		wantErr bool
	}{
		{in: "click", want: Selector{Type: "click"}, matches: true},
		{in: "rect:click", want: Selector{Type: "click", Mark: scene.MarkRect}, matches: true},
		{in: "symbol:click", want: Selector{Type: "click", Mark: scene.MarkSymbol}},
		{in: "@bars:pointermove", want: Selector{Type: "pointermove", Name: "bars"}, matches: true},
		{in: "@other:click", want: Selector{Type: "click", Name: "other"}},
		{in: "", wantErr: true},
		{in: "rect:", wantErr: true},
		{in: "@:click", wantErr: true},
		{in: "arc:click", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseSelector = %+v, want %+v", got, tt.want)
			}
			if got.Matches(rect) != tt.matches {
				t.Errorf("Matches = %v, want %v", !tt.matches, tt.matches)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := map[string]any{"a": 1, "b": []any{int64(2), "x"}, "c": float32(1.5)}
	out := Normalize(in).(map[string]any)
	if out["a"] != 1.0 || out["b"].([]any)[0] != 2.0 || out["c"] != 1.5 {
		t.Errorf("Normalize = %#v", out)
	}
	if Normalize("s") != "s" || Normalize(nil) != nil {
		t.Error("non-numeric values should pass through")
	}
}
