package scripting

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"waysky/internal/model"
)

// LuaEngine runs scripts in per-handle gopher-lua states. Handles are loaded
// once at startup and reused every frame; the snapshot is rebound as globals
// before each invocation.
type LuaEngine struct {
	timeout time.Duration
}

// NewLuaEngine creates the backend. A timeout of zero leaves script execution
// unbounded.
func NewLuaEngine(timeout time.Duration) *LuaEngine {
	return &LuaEngine{timeout: timeout}
}

func (e *LuaEngine) Name() string { return "lua" }

type luaHandle struct {
	state *lua.LState
}

func (e *LuaEngine) Load(src Source) (Handle, error) {
	L := lua.NewState()
	var err error
	if src.Code != "" {
		err = L.DoString(src.Code)
	} else {
		err = L.DoFile(src.Path)
	}
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("lua load %s: %w", src.Name, err)
	}
	return &luaHandle{state: L}, nil
}

func (e *LuaEngine) Invoke(ctx context.Context, h Handle, fn string, snap *model.Snapshot) ([]model.StyledLine, error) {
	lh, ok := h.(*luaHandle)
	if !ok {
		return nil, fmt.Errorf("handle is not a lua handle")
	}

	ret, err := e.call(ctx, lh.state, fn, snap)
	if err != nil {
		return nil, err
	}
	return linesFromValue(luaToAny(ret))
}

func (e *LuaEngine) InvokeHook(ctx context.Context, h Handle, fn string, lines []model.StyledLine, snap *model.Snapshot) ([]model.StyledLine, error) {
	lh, ok := h.(*luaHandle)
	if !ok {
		return nil, fmt.Errorf("handle is not a lua handle")
	}

	ret, err := e.call(ctx, lh.state, fn, snap, luaFromAny(lh.state, linesToValue(lines)))
	if err != nil {
		return nil, err
	}
	return hookLinesFromValue(luaToAny(ret))
}

func (e *LuaEngine) call(ctx context.Context, L *lua.LState, fn string, snap *model.Snapshot, args ...lua.LValue) (lua.LValue, error) {
	for name, v := range snapshotValues(snap) {
		L.SetGlobal(name, luaFromAny(L, v))
	}

	fnVal := L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("lua function %q is not defined", fn)
	}

	if e.timeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		L.SetContext(callCtx)
		defer L.RemoveContext()
	}

	if err := L.CallByParam(lua.P{Fn: fnVal, NRet: 1, Protect: true}, args...); err != nil {
		return nil, fmt.Errorf("lua %s: %w", fn, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func luaFromAny(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case string:
		return lua.LString(t)
	case bool:
		return lua.LBool(t)
	case float64:
		return lua.LNumber(t)
	case uint64:
		return lua.LNumber(float64(t))
	case int:
		return lua.LNumber(float64(t))
	case []any:
		tbl := L.NewTable()
		for _, el := range t {
			tbl.Append(luaFromAny(L, el))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, el := range t {
			tbl.RawSetString(k, luaFromAny(L, el))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func luaToAny(v lua.LValue) any {
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		return bool(v.(lua.LBool))
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTString:
		return string(v.(lua.LString))
	case lua.LTTable:
		tbl := v.(*lua.LTable)
		// A table holding a "text" key is one structured line; otherwise it
		// is treated as a sequence.
		if tbl.RawGetString("text") != lua.LNil {
			m := make(map[string]any)
			tbl.ForEach(func(k, el lua.LValue) {
				if ks, ok := k.(lua.LString); ok {
					m[string(ks)] = luaToAny(el)
				}
			})
			return m
		}
		arr := make([]any, 0, tbl.Len())
		for i := 1; i <= tbl.Len(); i++ {
			arr = append(arr, luaToAny(tbl.RawGetInt(i)))
		}
		return arr
	default:
		return v.String()
	}
}
