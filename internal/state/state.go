// Package state snapshots and restores the signals and data sets of a view
// as a JSON document of the form
//
//	{"signals": {"name": value, ...}, "data": {"name": [...], ...}}
//
// Documents are built with sjson and read back with gjson so callers can
// persist them as opaque strings.
package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidState is returned when a document is not a JSON object.
var ErrInvalidState = errors.New("invalid state document")

// Source exposes the values a snapshot reads.
type Source interface {
	SignalNames() []string
	Signal(name string) (any, error)
	DataNames() []string
	Data(name string) ([]any, error)
}

// Sink receives restored values.
type Sink interface {
	SetSignal(name string, value any) error
	SetData(name string, values []any) error
}

// Filter selects names to include in a snapshot.
type Filter func(name string) bool

type options struct {
	signals Filter
	data    Filter
}

// Option configures Get.
type Option func(*options)

// WithSignals restricts the snapshot to signals accepted by f. A nil
// filter excludes every signal.
func WithSignals(f Filter) Option {
	return func(o *options) {
		if f == nil {
			f = func(string) bool { return false }
		}
		o.signals = f
	}
}

// WithData restricts the snapshot to data sets accepted by f. A nil filter
// excludes every data set.
func WithData(f Filter) Option {
	return func(o *options) {
		if f == nil {
			f = func(string) bool { return false }
		}
		o.data = f
	}
}

// Exclude returns a filter rejecting the listed names.
func Exclude(names ...string) Filter {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return !set[name] }
}

// Get snapshots src. Both sections are always present.
func Get(src Source, opts ...Option) (string, error) {
	o := options{
		signals: func(string) bool { return true },
		data:    func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(&o)
	}

	doc := `{"signals":{},"data":{}}`
	var err error
	for _, name := range src.SignalNames() {
		if !o.signals(name) {
			continue
		}
		v, serr := src.Signal(name)
		if serr != nil {
			return "", serr
		}
		doc, err = sjson.Set(doc, "signals."+escape(name), v)
		if err != nil {
			return "", fmt.Errorf("encoding signal %q: %w", name, err)
		}
	}
	for _, name := range src.DataNames() {
		if !o.data(name) {
			continue
		}
		values, derr := src.Data(name)
		if derr != nil {
			return "", derr
		}
		if values == nil {
			values = []any{}
		}
		doc, err = sjson.Set(doc, "data."+escape(name), values)
		if err != nil {
			return "", fmt.Errorf("encoding data %q: %w", name, err)
		}
	}
	return doc, nil
}

// Set restores a snapshot into dst. Every entry is applied; failures are
// joined.
func Set(dst Sink, doc string) error {
	if !gjson.Valid(doc) {
		return ErrInvalidState
	}
	root := gjson.Parse(doc)
	if !root.IsObject() {
		return ErrInvalidState
	}

	var errs []error
	root.Get("signals").ForEach(func(key, value gjson.Result) bool {
		if err := dst.SetSignal(key.String(), value.Value()); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	root.Get("data").ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			errs = append(errs, fmt.Errorf("data %q: expected array", key.String()))
			return true
		}
		values := make([]any, 0, len(value.Array()))
		for _, v := range value.Array() {
			values = append(values, v.Value())
		}
		if err := dst.SetData(key.String(), values); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Lookup reads one value from a snapshot by gjson path, e.g.
// "signals.width" or "data.table.#".
func Lookup(doc, path string) (any, bool) {
	r := gjson.Get(doc, path)
	if !r.Exists() {
		return nil, false
	}
	return r.Value(), true
}

// escape quotes sjson path metacharacters in a single key.
func escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
