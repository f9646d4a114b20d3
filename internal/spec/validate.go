package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/vizview/internal/expr"
	"github.com/dshills/vizview/internal/scene"
)

// Selector is a parsed event stream selector.
type Selector struct {
	// Type is the event type.
	Type string
	// Mark restricts the stream to items of this mark type.
	Mark scene.MarkType
	// Name restricts the stream to items of this mark name.
	Name string
}

// ParseSelector parses "type", "marktype:type" or "@name:type".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}, fmt.Errorf("empty event selector")
	}
	source, typ, scoped := strings.Cut(s, ":")
	if !scoped {
		return Selector{Type: s}, nil
	}
	if typ == "" {
		return Selector{}, fmt.Errorf("selector %q has no event type", s)
	}
	if name, ok := strings.CutPrefix(source, "@"); ok {
		if name == "" {
			return Selector{}, fmt.Errorf("selector %q has an empty mark name", s)
		}
		return Selector{Type: typ, Name: name}, nil
	}
	mark := scene.MarkType(source)
	if !mark.Valid() {
		return Selector{}, fmt.Errorf("selector %q has unknown mark type %q", s, source)
	}
	return Selector{Type: typ, Mark: mark}, nil
}

// Matches reports whether an item satisfies the selector's scope.
func (sel Selector) Matches(item *scene.Item) bool {
	switch {
	case sel.Name != "":
		return item != nil && item.Name == sel.Name
	case sel.Mark != "":
		return item != nil && item.Mark == sel.Mark
	}
	return true
}

// Validate checks names, references, mark types and expressions. It
// returns a *ValidationError listing every problem, or nil.
func (s *Spec) Validate() error {
	var problems []Problem
	add := func(path, format string, args ...any) {
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	compile := func(path, src string) {
		if src == "" {
			return
		}
		if _, err := expr.Compile(src); err != nil {
			add(path, "%v", err)
		}
	}

	if s.Width < 0 {
		add("width", "must not be negative")
	}
	if s.Height < 0 {
		add("height", "must not be negative")
	}
	if t := s.Autosize.Type; t != "" && !t.Valid() {
		add("autosize.type", "unknown type %q", t)
	}
	if c := s.Autosize.Contains; c != "" && c != ContainsContent && c != ContainsPadding {
		add("autosize.contains", "unknown value %q", c)
	}

	signals := make(map[string]bool)
	for i, sig := range s.Signals {
		path := fmt.Sprintf("signals[%d]", i)
		switch {
		case sig.Name == "":
			add(path+".name", "is required")
		case signals[sig.Name]:
			add(path+".name", "duplicate signal %q", sig.Name)
		}
		signals[sig.Name] = true
		compile(path+".update", sig.Update)
		for j, st := range sig.On {
			spath := fmt.Sprintf("%s.on[%d]", path, j)
			if _, err := ParseSelector(st.Events); err != nil {
				add(spath+".events", "%v", err)
			}
			if st.Update == "" {
				add(spath+".update", "is required")
			}
			compile(spath+".update", st.Update)
		}
	}

	datasets := make(map[string]bool)
	for i, d := range s.Data {
		path := fmt.Sprintf("data[%d]", i)
		switch {
		case d.Name == "":
			add(path+".name", "is required")
		case datasets[d.Name]:
			add(path+".name", "duplicate data set %q", d.Name)
		case signals[d.Name]:
			add(path+".name", "%q is already a signal", d.Name)
		}
		datasets[d.Name] = true
		switch d.Format.Type {
		case "", "json", "csv", "tsv":
		default:
			add(path+".format.type", "unknown format %q", d.Format.Type)
		}
	}

	var checkMarks func(prefix string, marks []Mark)
	checkMarks = func(prefix string, marks []Mark) {
		for i, m := range marks {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			mt := scene.MarkType(m.Type)
			if !mt.Valid() {
				add(path+".type", "unknown mark type %q", m.Type)
			}
			if m.From != nil && !datasets[m.From.Data] {
				add(path+".from.data", "unknown data set %q", m.From.Data)
			}
			if len(m.Marks) > 0 && mt != scene.MarkGroup {
				add(path+".marks", "only group marks may have children")
			}
			for _, set := range []struct {
				name string
				refs map[string]ValueRef
			}{{"enter", m.Encode.Enter}, {"update", m.Encode.Update}, {"hover", m.Encode.Hover}} {
				keys := make([]string, 0, len(set.refs))
				for k := range set.refs {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					compile(fmt.Sprintf("%s.encode.%s.%s.signal", path, set.name, k), set.refs[k].Signal)
				}
			}
			checkMarks(path+".marks", m.Marks)
		}
	}
	checkMarks("marks", s.Marks)

	if s.EventConfig != nil {
		for i, t := range s.EventConfig.Allow {
			if t == "" {
				add(fmt.Sprintf("eventConfig.allow[%d]", i), "empty event type")
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
