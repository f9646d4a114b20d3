package expr

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// number widens Go numeric kinds to float64, the only number type signal
// values carry.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// toLua converts a signal value, datum or event field into Lua. Values
// with no Lua shape are passed as their fmt string.
func toLua(L *lua.LState, v any) lua.LValue {
	if f, ok := number(v); ok {
		return lua.LNumber(f)
	}
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	case []float64:
		t := L.CreateTable(len(val), 0)
		for _, f := range val {
			t.Append(lua.LNumber(f))
		}
		return t
	case []string:
		t := L.CreateTable(len(val), 0)
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	}
	return lua.LString(fmt.Sprint(v))
}

// fromLua converts an expression result back to a signal value. Numbers
// are float64. A table whose keys are exactly 1..n is a []any, any other
// table a map[string]any. Cyclic references become nil.
func fromLua(lv lua.LValue) any {
	seen := make(map[*lua.LTable]bool)
	var conv func(lua.LValue) any
	conv = func(lv lua.LValue) any {
		switch v := lv.(type) {
		case lua.LBool:
			return bool(v)
		case lua.LNumber:
			return float64(v)
		case lua.LString:
			return string(v)
		case *lua.LTable:
			if seen[v] {
				return nil
			}
			seen[v] = true
			defer delete(seen, v)
			return tableValue(v, conv)
		}
		return nil
	}
	return conv(lv)
}

func tableValue(t *lua.LTable, conv func(lua.LValue) any) any {
	var keys []lua.LValue
	t.ForEach(func(k, _ lua.LValue) { keys = append(keys, k) })

	if n := t.MaxN(); n > 0 && n == len(keys) {
		list := make([]any, n)
		for i := range list {
			list[i] = conv(t.RawGetInt(i + 1))
		}
		return list
	}

	m := make(map[string]any, len(keys))
	for _, k := range keys {
		m[k.String()] = conv(t.RawGet(k))
	}
	return m
}
