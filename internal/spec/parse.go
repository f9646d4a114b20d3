package spec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/vizview/internal/loader"
)

// Syntax is the document syntax of a specification.
type Syntax string

const (
	SyntaxJSON Syntax = "json"
	SyntaxYAML Syntax = "yaml"
	SyntaxTOML Syntax = "toml"
)

// SyntaxFromPath infers the syntax from a file extension.
func SyntaxFromPath(path string) (Syntax, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SyntaxJSON, nil
	case ".yaml", ".yml":
		return SyntaxYAML, nil
	case ".toml":
		return SyntaxTOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Parse decodes a specification. JSON is decoded by the YAML parser,
// which accepts it as a subset. TOML is decoded to a generic tree and
// re-encoded as YAML so the same field decoders apply.
func Parse(data []byte, syntax Syntax) (*Spec, error) {
	return parse("<reader>", data, syntax)
}

func parse(source string, data []byte, syntax Syntax) (*Spec, error) {
	switch syntax {
	case SyntaxJSON, SyntaxYAML:
	case SyntaxTOML:
		var tree map[string]any
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, &ParseError{Source: source, Syntax: syntax, Err: err}
		}
		converted, err := yaml.Marshal(tree)
		if err != nil {
			return nil, &ParseError{Source: source, Syntax: syntax, Err: err}
		}
		data = converted
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, syntax)
	}

	var s Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, &ParseError{Source: source, Syntax: syntax, Err: err}
	}
	s.normalize()
	return &s, nil
}

// Read parses a specification from r.
func Read(r io.Reader, syntax Syntax) (*Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	return parse("<reader>", data, syntax)
}

// LoadFile reads and parses a specification file, inferring its syntax
// from the extension.
func LoadFile(path string) (*Spec, error) {
	syntax, err := SyntaxFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec %s: %w", path, err)
	}
	return parse(path, data, syntax)
}

// Load fetches a specification through a loader.
func Load(ctx context.Context, l loader.Loader, uri string) (*Spec, error) {
	syntax, err := SyntaxFromPath(uri)
	if err != nil {
		return nil, err
	}
	data, err := l.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return parse(uri, data, syntax)
}

// UnmarshalYAML accepts a number or an object with top, bottom, left and
// right.
func (p *Padding) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		p.Padding.Top, p.Padding.Bottom, p.Padding.Left, p.Padding.Right = v, v, v, v
		p.Set = true
		return nil
	}

	var sides struct {
		Top    float64 `yaml:"top"`
		Bottom float64 `yaml:"bottom"`
		Left   float64 `yaml:"left"`
		Right  float64 `yaml:"right"`
	}
	if err := node.Decode(&sides); err != nil {
		return err
	}
	p.Padding.Top, p.Padding.Bottom = sides.Top, sides.Bottom
	p.Padding.Left, p.Padding.Right = sides.Left, sides.Right
	p.Set = true
	return nil
}

// MarshalYAML writes the per-side object.
func (p Padding) MarshalYAML() (any, error) {
	return map[string]float64{
		"top": p.Top, "bottom": p.Bottom, "left": p.Left, "right": p.Right,
	}, nil
}

// UnmarshalYAML accepts a type name or an object.
func (a *Autosize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var t string
		if err := node.Decode(&t); err != nil {
			return err
		}
		*a = Autosize{Type: AutosizeType(t)}
		return nil
	}
	type plain Autosize
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*a = Autosize(v)
	return nil
}

// UnmarshalYAML accepts a literal or an object with value, signal,
// field, mult and offset.
func (v *ValueRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		var lit any
		if err := node.Decode(&lit); err != nil {
			return err
		}
		*v = ValueRef{Value: lit}
		return nil
	}
	type plain ValueRef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = ValueRef(p)
	return nil
}

// UnmarshalYAML accepts a boolean or a list of strings.
func (b *BoolOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v bool
		if err := node.Decode(&v); err != nil {
			return err
		}
		*b = BoolOrList{Set: true, Bool: v}
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		if items == nil {
			items = []string{}
		}
		*b = BoolOrList{Set: true, Items: items}
	default:
		return fmt.Errorf("line %d: expected boolean or list", node.Line)
	}
	return nil
}

// normalize converts every integer in free-form values to float64 so
// numbers compare equal regardless of the source syntax.
func (s *Spec) normalize() {
	for i := range s.Signals {
		s.Signals[i].Value = Normalize(s.Signals[i].Value)
		if b := s.Signals[i].Bind; b != nil {
			for j := range b.Options {
				b.Options[j] = Normalize(b.Options[j])
			}
		}
	}
	for i := range s.Data {
		for j := range s.Data[i].Values {
			s.Data[i].Values[j] = Normalize(s.Data[i].Values[j])
		}
	}
	normalizeMarks(s.Marks)
}

func normalizeMarks(marks []Mark) {
	for i := range marks {
		for _, set := range []map[string]ValueRef{marks[i].Encode.Enter, marks[i].Encode.Update, marks[i].Encode.Hover} {
			for k, ref := range set {
				ref.Value = Normalize(ref.Value)
				set[k] = ref
			}
		}
		normalizeMarks(marks[i].Marks)
	}
}

// Normalize returns v with integers converted to float64, recursively.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}
		return out
	}
	return v
}
