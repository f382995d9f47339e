package eval

import (
	"context"
	"fmt"
	"iter"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// luaRuntime owns the single Lua state shared by all Lua callbacks.
//
// gopher-lua's LState is not goroutine-safe, so every touch of L happens with
// mu held. A running call observes its context through LState.SetContext, so
// an interrupted caller also stops the Lua code it is waiting on.
type luaRuntime struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

func newLuaRuntime() (*luaRuntime, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}
	return &luaRuntime{L: L}, nil
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the loaders that could reach the filesystem. io, os, debug and
// package are never opened.
func openSafeLibraries(L *lua.LState) error {
	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

// compile evaluates src as an expression that must produce a function.
func (r *luaRuntime) compile(src string) (*lua.LFunction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	chunk, err := r.L.LoadString("return " + src)
	if err != nil {
		return nil, fmt.Errorf("lua: %w", err)
	}
	top := r.L.GetTop()
	defer r.L.SetTop(top)

	if err := r.L.CallByParam(lua.P{Fn: chunk, NRet: 1, Protect: true}); err != nil {
		return nil, fmt.Errorf("lua: %w", err)
	}
	fn, ok := r.L.Get(-1).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("lua: callback must be a function (got %s)", r.L.Get(-1).Type())
	}
	return fn, nil
}

// call invokes fn with the input (when present) followed by args. A table
// result becomes a list or record, a function result a lazy sequence that
// calls it until it returns nil.
func (r *luaRuntime) call(ctx context.Context, fn *lua.LFunction, args []any, in Input) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Result{}, ErrClosed
	}

	var params []lua.LValue
	if v, ok := in.Value(); ok {
		params = append(params, toLua(r.L, v))
	}
	for _, a := range args {
		params = append(params, toLua(r.L, a))
	}

	ret, err := r.invoke(ctx, fn, params...)
	if err != nil {
		return Result{}, err
	}
	if next, ok := ret.(*lua.LFunction); ok {
		return Seq(r.iterate(ctx, next)), nil
	}
	return Value(toGo(ret)), nil
}

// invoke must be called with mu held.
func (r *luaRuntime) invoke(ctx context.Context, fn *lua.LFunction, params ...lua.LValue) (ret lua.LValue, err error) {
	top := r.L.GetTop()
	r.L.SetContext(ctx)
	defer func() {
		r.L.RemoveContext()
		r.L.SetTop(top)
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()

	if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, params...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lua: %w", err)
	}
	return r.L.Get(-1), nil
}

func (r *luaRuntime) iterate(ctx context.Context, next *lua.LFunction) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			v, done, err := r.step(ctx, next)
			if err != nil {
				yield(nil, err)
				return
			}
			if done || !yield(v, nil) {
				return
			}
		}
	}
}

func (r *luaRuntime) step(ctx context.Context, next *lua.LFunction) (any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, true, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, true, err
	}
	ret, err := r.invoke(ctx, next)
	if err != nil {
		return nil, true, err
	}
	if ret == lua.LNil {
		return nil, true, nil
	}
	return toGo(ret), false, nil
}

func (r *luaRuntime) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.L.Close()
	r.closed = true
}
