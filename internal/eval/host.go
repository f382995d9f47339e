package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Host is the Evaluator used by sk. It owns one Lua runtime; command and path
// callbacks need no shared state.
type Host struct {
	lua    *luaRuntime
	logger *slog.Logger
	closed atomic.Bool
}

// Compile-time check that Host implements Compiler.
var _ Compiler = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// NewHost creates a Host with a fresh sandboxed Lua state.
func NewHost(opts ...Option) (*Host, error) {
	rt, err := newLuaRuntime()
	if err != nil {
		return nil, err
	}
	h := &Host{lua: rt, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Compile parses src (see the package documentation for the syntax) into a
// callback bound to this host.
func (h *Host) Compile(src string) (*Callback, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	kind, body := ParseKind(src)
	if body == "" {
		return nil, ErrEmptyCallback
	}

	cb := &Callback{Kind: kind, Source: body}
	switch kind {
	case KindLua:
		fn, err := h.lua.compile(body)
		if err != nil {
			return nil, err
		}
		cb.fn = fn
	case KindCommand:
		argv, err := compileCommand(body)
		if err != nil {
			return nil, err
		}
		cb.argv = argv
	}
	return cb, nil
}

// Eval implements Evaluator.
func (h *Host) Eval(ctx context.Context, cb *Callback, args []any, in Input) (Result, error) {
	if h.closed.Load() {
		return Result{}, ErrClosed
	}
	if cb == nil {
		return Result{}, ErrNotCompiled
	}

	switch cb.Kind {
	case KindLua:
		if cb.fn == nil {
			return Result{}, ErrNotCompiled
		}
		return h.lua.call(ctx, cb.fn, args, in)
	case KindCommand:
		if len(cb.argv) == 0 {
			return Result{}, ErrNotCompiled
		}
		h.logger.Debug("running command callback", "argv", cb.argv)
		return runCommand(ctx, cb.argv, args, in)
	case KindPath:
		return evalPath(cb.Source, args, in)
	default:
		return Result{}, fmt.Errorf("eval: unknown callback kind %d", cb.Kind)
	}
}

// Close releases the Lua state. Callbacks compiled by this host fail with
// ErrClosed afterwards.
func (h *Host) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.lua.close()
	return nil
}
