// Package expr compiles and evaluates the Lua expressions used by signal
// updates, event streams and mark encoders.
//
// An expression is a single Lua expression such as `width * 2` or
// `datum.amount > 10 and "red" or "steelblue"`. Compile wraps it in a return
// statement, compiles it once, and records the free identifiers it reads so
// the caller can wire dataflow dependencies.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// ErrEmptyExpression is returned when compiling blank source.
var ErrEmptyExpression = errors.New("empty expression")

// CompileError reports a syntax error in an expression.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Expr is a compiled expression.
type Expr struct {
	source string
	proto  *lua.FunctionProto
	refs   []string
}

// Compile parses and compiles a Lua expression.
func Compile(source string) (*Expr, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return nil, ErrEmptyExpression
	}

	chunk, err := parse.Parse(strings.NewReader("return "+src), src)
	if err != nil {
		return nil, &CompileError{Source: src, Err: err}
	}

	proto, err := lua.Compile(chunk, src)
	if err != nil {
		return nil, &CompileError{Source: src, Err: err}
	}

	refs := make(map[string]bool)
	for _, stmt := range chunk {
		if ret, ok := stmt.(*ast.ReturnStmt); ok {
			for _, e := range ret.Exprs {
				collectRefs(e, refs)
			}
		}
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Expr{source: src, proto: proto, refs: names}, nil
}

// MustCompile is Compile that panics on error. For constant expressions.
func MustCompile(source string) *Expr {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the expression text.
func (e *Expr) Source() string {
	return e.source
}

// Refs returns the sorted free identifiers the expression reads.
func (e *Expr) Refs() []string {
	return e.refs
}

// References reports whether the expression reads the identifier.
func (e *Expr) References(name string) bool {
	i := sort.SearchStrings(e.refs, name)
	return i < len(e.refs) && e.refs[i] == name
}

func (e *Expr) String() string {
	return e.source
}

// collectRefs walks an expression tree recording identifiers. Attribute
// keys written with dot syntax are string constants, not references.
func collectRefs(e ast.Expr, refs map[string]bool) {
	switch x := e.(type) {
	case *ast.IdentExpr:
		refs[x.Value] = true
	case *ast.AttrGetExpr:
		collectRefs(x.Object, refs)
		collectRefs(x.Key, refs)
	case *ast.TableExpr:
		for _, f := range x.Fields {
			if f.Key != nil {
				collectRefs(f.Key, refs)
			}
			collectRefs(f.Value, refs)
		}
	case *ast.FuncCallExpr:
		if x.Func != nil {
			collectRefs(x.Func, refs)
		}
		if x.Receiver != nil {
			collectRefs(x.Receiver, refs)
		}
		for _, a := range x.Args {
			collectRefs(a, refs)
		}
	case *ast.LogicalOpExpr:
		collectRefs(x.Lhs, refs)
		collectRefs(x.Rhs, refs)
	case *ast.RelationalOpExpr:
		collectRefs(x.Lhs, refs)
		collectRefs(x.Rhs, refs)
	case *ast.StringConcatOpExpr:
		collectRefs(x.Lhs, refs)
		collectRefs(x.Rhs, refs)
	case *ast.ArithmeticOpExpr:
		collectRefs(x.Lhs, refs)
		collectRefs(x.Rhs, refs)
	case *ast.UnaryMinusOpExpr:
		collectRefs(x.Expr, refs)
	case *ast.UnaryNotOpExpr:
		collectRefs(x.Expr, refs)
	case *ast.UnaryLenOpExpr:
		collectRefs(x.Expr, refs)
	}
}
