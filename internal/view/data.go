package view

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/spec"
)

// buildData creates an operator per data set. Data sets with a URL start
// empty and are loaded on the first Run.
func (v *View) buildData() error {
	for _, d := range v.spec.Data {
		op, err := v.df.Dataset(d.Name, d.Values)
		if err != nil {
			return err
		}
		v.datasets[d.Name] = op
		if d.URL != "" {
			v.pending[d.Name] = d
		}
	}
	return nil
}

func (v *View) lookupDataset(name string) (*dataflow.Operator, error) {
	op, ok := v.datasets[name]
	if !ok {
		return nil, &DataError{Name: name}
	}
	return op, nil
}

// DataNames returns the data set names in declaration order.
func (v *View) DataNames() []string {
	names := make([]string, 0, len(v.spec.Data))
	for _, d := range v.spec.Data {
		names = append(names, d.Name)
	}
	return names
}

// Data returns the tuples of the named data set.
func (v *View) Data(name string) ([]any, error) {
	op, err := v.lookupDataset(name)
	if err != nil {
		return nil, err
	}
	return append([]any(nil), dataflow.Values(op)...), nil
}

// SetData replaces the tuples of the named data set.
func (v *View) SetData(name string, values []any) error {
	return v.Change(name, dataflow.NewChangeset().RemoveAll().Insert(normalizeAll(values)...))
}

// Change applies a changeset to the named data set. The change propagates
// on the next Run.
func (v *View) Change(name string, cs *dataflow.Changeset) error {
	op, err := v.lookupDataset(name)
	if err != nil {
		return err
	}
	v.df.Pulse(op, cs)
	return nil
}

// Insert adds tuples to the named data set.
func (v *View) Insert(name string, values ...any) error {
	return v.Change(name, dataflow.NewChangeset().Insert(normalizeAll(values)...))
}

// Remove removes the tuples matching pred from the named data set.
func (v *View) Remove(name string, pred func(any) bool) error {
	return v.Change(name, dataflow.NewChangeset().Remove(pred))
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, x := range values {
		out[i] = spec.Normalize(x)
	}
	return out
}

// loadPending fetches and parses every data set still waiting for its
// URL.
func (v *View) loadPending(ctx context.Context) error {
	for _, d := range v.spec.Data {
		if _, ok := v.pending[d.Name]; !ok {
			continue
		}
		raw, err := v.config.loader.Load(ctx, d.URL)
		if err != nil {
			return &DataLoadError{Name: d.Name, URL: d.URL, Err: err}
		}
		values, err := parseData(raw, d.Format, d.URL)
		if err != nil {
			return &DataLoadError{Name: d.Name, URL: d.URL, Err: err}
		}
		delete(v.pending, d.Name)
		v.df.Pulse(v.datasets[d.Name], dataflow.NewChangeset().RemoveAll().Insert(values...))
		v.logger.Debug("loaded %d tuples into %s from %s", len(values), d.Name, d.URL)
	}
	return nil
}

// parseData decodes loaded bytes. An empty format type is inferred from
// the URL extension and defaults to json.
func parseData(raw []byte, f spec.Format, url string) ([]any, error) {
	typ := f.Type
	if typ == "" {
		switch strings.ToLower(path.Ext(url)) {
		case ".csv":
			typ = "csv"
		case ".tsv":
			typ = "tsv"
		default:
			typ = "json"
		}
	}
	switch typ {
	case "json":
		return parseJSON(raw, f.Property)
	case "csv":
		return parseDelimited(raw, ',')
	case "tsv":
		return parseDelimited(raw, '\t')
	}
	return nil, fmt.Errorf("unknown data format %q", typ)
}

// parseJSON decodes an array of tuples, optionally nested under a dot
// separated property.
func parseJSON(raw []byte, property string) ([]any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid json")
	}
	res := gjson.ParseBytes(raw)
	if property != "" {
		res = res.Get(property)
		if !res.Exists() {
			return nil, fmt.Errorf("property %q not found", property)
		}
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("expected an array of tuples")
	}
	out := []any{}
	res.ForEach(func(_, value gjson.Result) bool {
		out = append(out, value.Value())
		return true
	})
	return out, nil
}

// parseDelimited reads a header row and one tuple per record. Numbers and
// booleans are typed automatically.
func parseDelimited(raw []byte, comma rune) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []any{}, nil
	}
	header := records[0]
	out := make([]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		t := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				t[col] = inferValue(rec[i])
			} else {
				t[col] = nil
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func inferValue(s string) any {
	switch s {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if isHex(s) {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// isHex reports whether s has a 0x prefix after an optional sign. Such
// cells stay strings even though ParseFloat accepts hex floats.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
