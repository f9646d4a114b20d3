package expr

import (
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrEvaluatorClosed is returned by Eval after Close.
var ErrEvaluatorClosed = errors.New("evaluator is closed")

// EvalError reports a runtime failure while evaluating an expression.
type EvalError struct {
	Source string
	Err    error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Source, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Env binds identifier names to values for one evaluation.
type Env map[string]any

// Evaluator runs compiled expressions in a sandboxed Lua state.
//
// gopher-lua states are not goroutine-safe; the mutex serialises access.
type Evaluator struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

// NewEvaluator creates an evaluator with the base, table, string and math
// libraries. File and module loading functions are removed.
func NewEvaluator() *Evaluator {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "print"} {
		L.SetGlobal(name, lua.LNil)
	}

	return &Evaluator{L: L}
}

// Eval evaluates e with env bound as globals. Bindings are cleared
// afterwards so values never leak between evaluations.
func (ev *Evaluator) Eval(e *Expr, env Env) (any, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.closed {
		return nil, ErrEvaluatorClosed
	}

	for name, v := range env {
		ev.L.SetGlobal(name, toLua(ev.L, v))
	}
	defer func() {
		for name := range env {
			ev.L.SetGlobal(name, lua.LNil)
		}
	}()

	fn := ev.L.NewFunctionFromProto(e.proto)
	ev.L.Push(fn)
	if err := ev.L.PCall(0, 1, nil); err != nil {
		return nil, &EvalError{Source: e.source, Err: err}
	}

	ret := ev.L.Get(-1)
	ev.L.Pop(1)
	return fromLua(ret), nil
}

// EvalNumber evaluates e and converts the result to a float64.
func (ev *Evaluator) EvalNumber(e *Expr, env Env) (float64, error) {
	v, err := ev.Eval(e, env)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &EvalError{Source: e.source, Err: fmt.Errorf("expected number, got %T", v)}
	}
	return f, nil
}

// Close releases the Lua state.
func (ev *Evaluator) Close() {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.closed {
		return
	}
	ev.closed = true
	ev.L.Close()
}
