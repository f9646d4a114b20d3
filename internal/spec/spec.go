// Package spec models the runtime specification a view is built from and
// parses it from JSON, YAML or TOML.
//
// A specification declares signals (named reactive values, optionally
// derived with a Lua update expression or driven by event streams), data
// sets, marks that map data to scene items, and view-level settings such
// as size, padding, autosize, background and event configuration.
package spec

import (
	"github.com/dshills/vizview/internal/scene"
)

// Spec is a parsed view specification.
type Spec struct {
	Description string       `yaml:"description"`
	Width       float64      `yaml:"width"`
	Height      float64      `yaml:"height"`
	Padding     Padding      `yaml:"padding"`
	Autosize    Autosize     `yaml:"autosize"`
	Background  string       `yaml:"background"`
	Signals     []Signal     `yaml:"signals"`
	Data        []Data       `yaml:"data"`
	Marks       []Mark       `yaml:"marks"`
	EventConfig *EventConfig `yaml:"eventConfig"`
}

// Signal declares a named reactive value.
type Signal struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`

	// Update is a Lua expression recomputed when the signals it reads change.
	Update string   `yaml:"update"`
	On     []Stream `yaml:"on"`
	Bind   *Bind    `yaml:"bind"`
}

// Stream updates a signal when an event occurs.
type Stream struct {
	// Events is a selector: "type", "marktype:type" or "@name:type".
	Events string `yaml:"events"`

	// Update is a Lua expression evaluated with the event bound as
	// `event` and the target item's datum as `datum`.
	Update string `yaml:"update"`

	// Force propagates the signal even when the value is unchanged.
	Force bool `yaml:"force"`
}

// Bind describes an input control bound to a signal.
type Bind struct {
	Input   string   `yaml:"input"`
	Name    string   `yaml:"name"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Step    float64  `yaml:"step"`
	Options []any    `yaml:"options"`
	Labels  []string `yaml:"labels"`
}

// Data declares a named data set.
type Data struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
	URL    string `yaml:"url"`
	Format Format `yaml:"format"`
}

// Format describes how loaded data is parsed.
type Format struct {
	// Type is json, csv or tsv. Empty infers from the URL extension.
	Type string `yaml:"type"`

	// Property selects a nested array from a JSON document, dot separated.
	Property string `yaml:"property"`
}

// Mark maps a data set to scene items of one mark type.
type Mark struct {
	Type   string `yaml:"type"`
	Name   string `yaml:"name"`
	From   *From  `yaml:"from"`
	Encode Encode `yaml:"encode"`

	// Marks are children of a group mark.
	Marks []Mark `yaml:"marks"`
}

// From names the data set a mark iterates.
type From struct {
	Data string `yaml:"data"`
}

// Encode holds the encoding sets applied to each item.
type Encode struct {
	Enter  map[string]ValueRef `yaml:"enter"`
	Update map[string]ValueRef `yaml:"update"`
	Hover  map[string]ValueRef `yaml:"hover"`
}

// ValueRef is one encoded channel. Exactly one of Value, Signal or Field
// is normally set.
type ValueRef struct {
	Value any `yaml:"value"`

	// Signal is a Lua expression with signals, `datum` and `item` in scope.
	Signal string  `yaml:"signal"`
	Field  string  `yaml:"field"`
	Mult   float64 `yaml:"mult"`
	Offset float64 `yaml:"offset"`
}

// EventConfig controls default-action handling and permitted event types.
type EventConfig struct {
	Defaults *EventDefaults `yaml:"defaults"`
	Allow    []string       `yaml:"allow"`
}

// EventDefaults is the prevent-default policy. Each field is either a
// boolean or a list of event types.
type EventDefaults struct {
	Prevent BoolOrList `yaml:"prevent"`
	Allow   BoolOrList `yaml:"allow"`
}

// BoolOrList holds a YAML boolean or string list.
type BoolOrList struct {
	Set   bool
	Bool  bool
	Items []string
}

// Padding is a number or per-side object.
type Padding struct {
	scene.Padding
	Set bool
}

// AutosizeType selects how the view size follows its content.
type AutosizeType string

const (
	AutosizePad  AutosizeType = "pad"
	AutosizeFit  AutosizeType = "fit"
	AutosizeFitX AutosizeType = "fit-x"
	AutosizeFitY AutosizeType = "fit-y"
	AutosizeNone AutosizeType = "none"
)

// Valid reports whether t is a known autosize type.
func (t AutosizeType) Valid() bool {
	switch t {
	case AutosizePad, AutosizeFit, AutosizeFitX, AutosizeFitY, AutosizeNone:
		return true
	}
	return false
}

// Contains selects whether width and height include padding.
type Contains string

const (
	ContainsContent Contains = "content"
	ContainsPadding Contains = "padding"
)

// Autosize is a type name or an object.
type Autosize struct {
	Type     AutosizeType `yaml:"type"`
	Resize   bool         `yaml:"resize"`
	Contains Contains     `yaml:"contains"`
}

// DefaultAutosize is pad around content.
func DefaultAutosize() Autosize {
	return Autosize{Type: AutosizePad, Contains: ContainsContent}
}

// Normalize fills defaults.
func (a Autosize) Normalize() Autosize {
	if a.Type == "" {
		a.Type = AutosizePad
	}
	if a.Contains == "" {
		a.Contains = ContainsContent
	}
	return a
}

// Signal returns the named signal declaration.
func (s *Spec) Signal(name string) (*Signal, bool) {
	for i := range s.Signals {
		if s.Signals[i].Name == name {
			return &s.Signals[i], true
		}
	}
	return nil, false
}

// Dataset returns the named data declaration.
func (s *Spec) Dataset(name string) (*Data, bool) {
	for i := range s.Data {
		if s.Data[i].Name == name {
			return &s.Data[i], true
		}
	}
	return nil, false
}

// Bindings returns the signals that declare an input binding.
func (s *Spec) Bindings() []Signal {
	var out []Signal
	for _, sig := range s.Signals {
		if sig.Bind != nil {
			out = append(out, sig)
		}
	}
	return out
}
