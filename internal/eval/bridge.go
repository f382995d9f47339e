package eval

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value into the payload representation used across sk:
// string, float64, bool, nil, []any or map[string]any. Sequential tables
// starting at 1 become lists (an empty table is an empty list); any other
// table becomes a record. Cycles are cut at the second visit.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	count := 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		n, ok := k.(lua.LNumber)
		if !ok || n < 1 || float64(n) != math.Trunc(float64(n)) {
			isArray = false
		}
	})
	if isArray && count == t.MaxN() {
		arr := make([]any, count)
		for i := 1; i <= count; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprint(float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// toLua converts a payload into a Lua value. It must be called with the
// runtime lock held because tables are allocated on L.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case error:
		return lua.LString(val.Error())
	case []any:
		t := L.CreateTable(len(val), 0)
		for _, e := range val {
			t.Append(toLua(L, e))
		}
		return t
	case []string:
		t := L.CreateTable(len(val), 0)
		for _, e := range val {
			t.Append(lua.LString(e))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, e := range val {
			t.RawSetString(k, toLua(L, e))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
