package view

import (
	"sort"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

func (v *View) lookupSignal(name string) (*dataflow.Operator, error) {
	op, ok := v.signals[name]
	if !ok {
		return nil, &SignalError{Name: name}
	}
	return op, nil
}

// Signal returns the current value of the named signal.
func (v *View) Signal(name string) (any, error) {
	op, err := v.lookupSignal(name)
	if err != nil {
		return nil, err
	}
	return op.Value(), nil
}

// SetSignal updates the named signal. The new value is visible to Signal
// immediately and propagates on the next Run.
func (v *View) SetSignal(name string, value any, opts ...dataflow.UpdateOption) error {
	op, err := v.lookupSignal(name)
	if err != nil {
		return err
	}
	v.df.Update(op, normalizeBuiltin(name, value), opts...)
	return nil
}

// SignalNames returns the signal names in sorted order.
func (v *View) SignalNames() []string {
	names := make([]string, 0, len(v.signals))
	for name := range v.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Width returns the width signal.
func (v *View) Width() float64 {
	return toFloat(v.signals[SignalWidth].Value())
}

// SetWidth sets the width signal.
func (v *View) SetWidth(w float64) error {
	return v.SetSignal(SignalWidth, w)
}

// Height returns the height signal.
func (v *View) Height() float64 {
	return toFloat(v.signals[SignalHeight].Value())
}

// SetHeight sets the height signal.
func (v *View) SetHeight(h float64) error {
	return v.SetSignal(SignalHeight, h)
}

// Padding returns the padding signal.
func (v *View) Padding() scene.Padding {
	return parsePadding(v.signals[SignalPadding].Value())
}

// SetPadding sets the padding signal.
func (v *View) SetPadding(p scene.Padding) {
	v.df.Update(v.signals[SignalPadding], paddingValue(p))
}

// Autosize returns the autosize signal with defaults filled.
func (v *View) Autosize() spec.Autosize {
	return parseAutosize(v.signals[SignalAutosize].Value())
}

// SetAutosize sets the autosize signal.
func (v *View) SetAutosize(a spec.Autosize) {
	v.df.Update(v.signals[SignalAutosize], autosizeValue(a.Normalize()))
}

// Background returns the background colour. Empty is transparent.
func (v *View) Background() string {
	return v.background
}

// SetBackground sets the background colour. The surface is repainted
// through a resize on the next render.
func (v *View) SetBackground(color string) {
	if color == v.background {
		return
	}
	v.background = color
	v.resize = true
	v.df.Update(v.signals[SignalBackground], color)
}

// paddingValue is the signal form of p.
func paddingValue(p scene.Padding) map[string]any {
	return map[string]any{
		"top":    p.Top,
		"bottom": p.Bottom,
		"left":   p.Left,
		"right":  p.Right,
	}
}

// parsePadding accepts a number, a per-side map or a scene.Padding.
func parsePadding(v any) scene.Padding {
	switch x := v.(type) {
	case scene.Padding:
		return x
	case map[string]any:
		return scene.Padding{
			Top:    toFloat(x["top"]),
			Bottom: toFloat(x["bottom"]),
			Left:   toFloat(x["left"]),
			Right:  toFloat(x["right"]),
		}
	case nil:
		return scene.Padding{}
	}
	return scene.UniformPadding(toFloat(v))
}

// autosizeValue is the signal form of a.
func autosizeValue(a spec.Autosize) map[string]any {
	return map[string]any{
		"type":     string(a.Type),
		"contains": string(a.Contains),
		"resize":   a.Resize,
	}
}

// parseAutosize accepts a type name, a map or a spec.Autosize.
func parseAutosize(v any) spec.Autosize {
	var a spec.Autosize
	switch x := v.(type) {
	case spec.Autosize:
		a = x
	case string:
		a.Type = spec.AutosizeType(x)
	case map[string]any:
		t, _ := x["type"].(string)
		c, _ := x["contains"].(string)
		r, _ := x["resize"].(bool)
		a = spec.Autosize{Type: spec.AutosizeType(t), Contains: spec.Contains(c), Resize: r}
	}
	if a.Type != "" && !a.Type.Valid() {
		a.Type = spec.AutosizePad
	}
	return a.Normalize()
}

// toFloat converts numeric signal values. Anything else is zero.
func toFloat(v any) float64 {
	switch x := spec.Normalize(v).(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
