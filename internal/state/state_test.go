package state

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	signals map[string]any
	data    map[string][]any
}

func newFakeView() *fakeView {
	return &fakeView{
		signals: map[string]any{"width": 200.0, "a.b": "dotted", "sel": nil},
		data: map[string][]any{
			"table": {map[string]any{"x": 1.0}, map[string]any{"x": 2.0}},
		},
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *fakeView) SignalNames() []string { return keys(f.signals) }
func (f *fakeView) DataNames() []string   { return keys(f.data) }

func (f *fakeView) Signal(name string) (any, error) {
	v, ok := f.signals[name]
	if !ok {
		return nil, errors.New("unknown signal " + name)
	}
	return v, nil
}

func (f *fakeView) Data(name string) ([]any, error) {
	return f.data[name], nil
}

func (f *fakeView) SetSignal(name string, v any) error {
	if _, ok := f.signals[name]; !ok {
		return errors.New("unknown signal " + name)
	}
	f.signals[name] = v
	return nil
}

func (f *fakeView) SetData(name string, values []any) error {
	f.data[name] = values
	return nil
}

func TestGet(t *testing.T) {
	doc, err := Get(newFakeView())
	require.NoError(t, err)

	v, ok := Lookup(doc, "signals.width")
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)

	v, ok = Lookup(doc, `signals.a\.b`)
	assert.True(t, ok)
	assert.Equal(t, "dotted", v)

	v, ok = Lookup(doc, "data.table.#")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = Lookup(doc, "signals.sel")
	assert.True(t, ok, "null signal should be recorded")
}

func TestGet_Filters(t *testing.T) {
	doc, err := Get(newFakeView(), WithSignals(Exclude("width")), WithData(nil))
	require.NoError(t, err)

	_, ok := Lookup(doc, "signals.width")
	assert.False(t, ok)
	_, ok = Lookup(doc, `signals.a\.b`)
	assert.True(t, ok)
	_, ok = Lookup(doc, "data.table")
	assert.False(t, ok)
	_, ok = Lookup(doc, "data")
	assert.True(t, ok, "empty data section should remain")
}

func TestSet_RoundTrip(t *testing.T) {
	src := newFakeView()
	src.signals["width"] = 320.0
	doc, err := Get(src)
	require.NoError(t, err)

	dst := newFakeView()
	dst.data = map[string][]any{}
	require.NoError(t, Set(dst, doc))

	assert.Equal(t, 320.0, dst.signals["width"])
	assert.Equal(t, "dotted", dst.signals["a.b"])
	require.Len(t, dst.data["table"], 2)
	assert.Equal(t, map[string]any{"x": 2.0}, dst.data["table"][1])
}

func TestSet_Errors(t *testing.T) {
	dst := newFakeView()
	assert.ErrorIs(t, Set(dst, "not json"), ErrInvalidState)
	assert.ErrorIs(t, Set(dst, "[1,2]"), ErrInvalidState)

	err := Set(dst, `{"signals":{"nope":1,"width":5},"data":{"table":3}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown signal nope")
	assert.Contains(t, err.Error(), "expected array")
	assert.Equal(t, 5.0, dst.signals["width"], "valid entries still apply")
}
