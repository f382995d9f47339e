package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/feed"
	"github.com/runger/sk/internal/item"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/selector"
)

// fakeHost compiles any known source name and evaluates it with a Go func.
type fakeHost struct {
	fns map[string]func(ctx context.Context, args []any, in any) (eval.Result, error)
}

func (h *fakeHost) Compile(src string) (*eval.Callback, error) {
	if _, ok := h.fns[src]; !ok {
		return nil, errors.New("unexpected symbol")
	}
	return &eval.Callback{Kind: eval.KindLua, Source: src}, nil
}

func (h *fakeHost) Eval(ctx context.Context, cb *eval.Callback, args []any, in eval.Input) (eval.Result, error) {
	v, _ := in.Value()
	return h.fns[cb.Source](ctx, args, v)
}

func policyFirstN(n int) selector.Spec     { return selector.Spec{FirstN: n} }
func policyRegex(p string) selector.Spec   { return selector.Spec{Regex: p} }
func policyFile(path string) selector.Spec { return selector.Spec{File: path} }

// engineFunc adapts a function to Engine.
type engineFunc func(ctx context.Context, f Feed) (outcome.Outcome, error)

func (e engineFunc) Run(ctx context.Context, f Feed) (outcome.Outcome, error) { return e(ctx, f) }

func collect(t *testing.T, g *feed.Generation) []*item.Item {
	t.Helper()
	var out []*item.Item
	timeout := time.After(5 * time.Second)
	for {
		select {
		case it, ok := <-g.Items:
			if !ok {
				return out
			}
			out = append(out, it)
		case <-timeout:
			t.Fatal("generation did not terminate")
		}
	}
}

// pickIndex is an engine that waits for every item and chooses index k.
func pickIndex(t *testing.T, k int) Engine {
	return engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		its := collect(t, f.Static)
		return outcome.Select(its[k].Payload()), nil
	})
}

// acceptPreselected is an engine that accepts the items that arrived
// pre-selected, without changes.
func acceptPreselected(t *testing.T) Engine {
	return engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		var picked []any
		for _, it := range collect(t, f.Static) {
			if it.Preselected() {
				picked = append(picked, it.Payload())
			}
		}
		return outcome.Select(picked...), nil
	})
}

func mustNew(t *testing.T, opts Options, host eval.Compiler) *Session {
	t.Helper()
	s, err := New(opts, host, nil)
	require.NoError(t, err)
	return s
}

func TestRun_SingleSelectPicksBeta(t *testing.T) {
	s := mustNew(t, Options{}, nil)
	rep, err := s.Run(context.Background(), pickIndex(t, 1), Values([]any{"alpha", "beta", "gamma"}))
	require.NoError(t, err)
	assert.Equal(t, outcome.Result{Shape: outcome.Single, Value: "beta"}, rep.Result)
	assert.True(t, rep.Started)
}

func TestRun_PickedItemIsThePayload(t *testing.T) {
	src := []any{"a", map[string]any{"k": "v"}, float64(3), []any{"x"}}
	for k := range src {
		for _, multi := range []bool{false, true} {
			s := mustNew(t, Options{Multi: multi}, nil)
			rep, err := s.Run(context.Background(), pickIndex(t, k), Values(src))
			require.NoError(t, err)
			if multi {
				assert.Equal(t, []any{src[k]}, rep.Result.Value)
			} else {
				assert.Equal(t, src[k], rep.Result.Value)
			}
		}
	}
}

func TestRun_FirstNMulti(t *testing.T) {
	s := mustNew(t, Options{Multi: true, Policies: policyFirstN(2)}, nil)
	rep, err := s.Run(context.Background(), acceptPreselected(t), Values([]any{"a", "bb", "ccc"}))
	require.NoError(t, err)
	assert.Equal(t, outcome.Result{Shape: outcome.Collection, Value: []any{"a", "bb"}}, rep.Result)
}

func TestRun_PoliciesIgnoredInSingleMode(t *testing.T) {
	s := mustNew(t, Options{Policies: policyFirstN(2)}, nil)
	assert.Nil(t, s.Context().Preselect)

	engine := engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		for _, it := range collect(t, f.Static) {
			assert.False(t, it.Preselected())
		}
		return outcome.Abort(), nil
	})
	_, err := s.Run(context.Background(), engine, Values([]any{"a", "b"}))
	require.NoError(t, err)
}

func TestRun_EmptySource(t *testing.T) {
	engineCalled := false
	engine := engineFunc(func(context.Context, Feed) (outcome.Outcome, error) {
		engineCalled = true
		return outcome.Abort(), nil
	})

	single := mustNew(t, Options{}, nil)
	rep, err := single.Run(context.Background(), engine, Values(nil))
	require.NoError(t, err)
	assert.Equal(t, outcome.Empty, rep.Result.Shape)
	assert.Equal(t, outcome.Selected, rep.Outcome.Kind)
	assert.False(t, rep.Started)

	multi := mustNew(t, Options{Multi: true}, nil)
	rep, err = multi.Run(context.Background(), engine, Values([]any{}))
	require.NoError(t, err)
	assert.Equal(t, outcome.Result{Shape: outcome.Collection, Value: []any{}}, rep.Result)
	assert.False(t, engineCalled)
}

func TestRun_EmptyStreamTerminates(t *testing.T) {
	s := mustNew(t, Options{Multi: true}, nil)
	engine := engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		assert.Empty(t, collect(t, f.Static))
		<-f.Static.Done()
		return outcome.Select(), nil
	})
	rep, err := s.Run(context.Background(), engine, Stream(feed.FromSlice(nil)))
	require.NoError(t, err)
	assert.Equal(t, outcome.Result{Shape: outcome.Collection, Value: []any{}}, rep.Result)
}

func TestRun_AbortIsEmpty(t *testing.T) {
	s := mustNew(t, Options{Multi: true}, nil)
	engine := engineFunc(func(context.Context, Feed) (outcome.Outcome, error) {
		return outcome.Abort(), nil
	})
	rep, err := s.Run(context.Background(), engine, Values([]any{"a"}))
	require.NoError(t, err)
	assert.Equal(t, outcome.Empty, rep.Result.Shape)
	assert.Equal(t, outcome.Aborted, rep.Outcome.Kind)
}

func TestRun_EngineErrorPropagates(t *testing.T) {
	s := mustNew(t, Options{}, nil)
	boom := errors.New("terminal gone")
	engine := engineFunc(func(context.Context, Feed) (outcome.Outcome, error) {
		return outcome.Outcome{}, boom
	})
	_, err := s.Run(context.Background(), engine, Values([]any{"a"}))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "engine: ")
}

func TestRun_ExpectKeysGiveRecord(t *testing.T) {
	s := mustNew(t, Options{Expect: []string{"ctrl-x"}}, nil)
	engine := engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		its := collect(t, f.Static)
		return outcome.SelectWithAction("ctrl-x", its[0].Payload()), nil
	})
	rep, err := s.Run(context.Background(), engine, Values([]any{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, outcome.Result{Shape: outcome.Record, Action: "ctrl-x", Value: "a"}, rep.Result)
}

func TestRun_ConsumerDropStopsProducer(t *testing.T) {
	var pulled atomic.Int64
	endless := func(yield func(any, error) bool) {
		for {
			pulled.Add(1)
			if !yield("x", nil) {
				return
			}
		}
	}

	var gen *feed.Generation
	s := mustNew(t, Options{}, nil)
	engine := engineFunc(func(_ context.Context, f Feed) (outcome.Outcome, error) {
		gen = f.Static
		it := <-f.Static.Items
		return outcome.Select(it.Payload()), nil
	})
	rep, err := s.Run(context.Background(), engine, Stream(endless))
	require.NoError(t, err)
	assert.Equal(t, "x", rep.Result.Value)

	select {
	case <-gen.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("producer kept running after the session ended")
	}
	assert.LessOrEqual(t, pulled.Load(), int64(feed.BufferSize+2))
}

func TestRun_FormatCallback(t *testing.T) {
	host := &fakeHost{fns: map[string]func(context.Context, []any, any) (eval.Result, error){
		"name": func(_ context.Context, _ []any, in any) (eval.Result, error) {
			return eval.Value(in.(map[string]any)["name"]), nil
		},
	}}
	s := mustNew(t, Options{Format: "name", Multi: true, Policies: policyRegex("^b")}, host)

	rep, err := s.Run(context.Background(), acceptPreselected(t), Values([]any{
		map[string]any{"name": "alice"},
		map[string]any{"name": "bob"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "bob"}}, rep.Result.Value)
}

func TestRun_RequerySwitch(t *testing.T) {
	host := &fakeHost{fns: map[string]func(context.Context, []any, any) (eval.Result, error){
		"requery": func(ctx context.Context, args []any, _ any) (eval.Result, error) {
			switch args[0] {
			case "x":
				return eval.Seq(func(yield func(any, error) bool) {
					if !yield("x1", nil) {
						return
					}
					<-ctx.Done()
					yield("x2", nil)
				}), nil
			case "y":
				return eval.Value([]any{"y1"}), nil
			}
			return eval.Value(nil), nil
		},
	}}
	s := mustNew(t, Options{Interactive: true, Requery: "requery", Multi: true}, host)

	var visible []string
	engine := engineFunc(func(ctx context.Context, f Feed) (outcome.Outcome, error) {
		gx := f.Requery.Invoke(ctx, "x")
		first := <-gx.Items
		require.Equal(t, "x1", first.Text())

		gy := f.Requery.Invoke(ctx, "y")
		for _, it := range collect(t, gy) {
			visible = append(visible, it.Text())
		}
		<-gx.Done()
		return outcome.Select(), nil
	})

	_, err := s.Run(context.Background(), engine, Input{})
	require.NoError(t, err)
	assert.Equal(t, []string{"y1"}, visible)
}

func TestRun_RequeryWithoutInteractiveRunsOnce(t *testing.T) {
	var calls atomic.Int32
	host := &fakeHost{fns: map[string]func(context.Context, []any, any) (eval.Result, error){
		"ls": func(_ context.Context, args []any, _ any) (eval.Result, error) {
			calls.Add(1)
			return eval.Value([]any{"q=" + args[0].(string)}), nil
		},
	}}
	s := mustNew(t, Options{Requery: "ls", Query: "init"}, host)
	rep, err := s.Run(context.Background(), pickIndex(t, 0), Input{})
	require.NoError(t, err)
	assert.Equal(t, "q=init", rep.Result.Value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_RequeryInvocationErrorIsAnItem(t *testing.T) {
	host := &fakeHost{fns: map[string]func(context.Context, []any, any) (eval.Result, error){
		"broken": func(context.Context, []any, any) (eval.Result, error) {
			return eval.Result{}, errors.New("exploded")
		},
	}}
	s := mustNew(t, Options{Interactive: true, Requery: "broken"}, host)
	engine := engineFunc(func(ctx context.Context, f Feed) (outcome.Outcome, error) {
		its := collect(t, f.Requery.Invoke(ctx, "q"))
		require.Len(t, its, 1)
		assert.Equal(t, "error: exploded", its[0].Text())
		return outcome.Abort(), nil
	})
	_, err := s.Run(context.Background(), engine, Input{})
	require.NoError(t, err)
}

func TestNew_ConfigErrors(t *testing.T) {
	host := &fakeHost{fns: map[string]func(context.Context, []any, any) (eval.Result, error){}}
	missing := filepath.Join(t.TempDir(), "absent.txt")

	tests := []struct {
		name  string
		opts  Options
		host  eval.Compiler
		label string
	}{
		{name: "bad format", opts: Options{Format: "nope"}, host: host, label: "format"},
		{name: "bad preview", opts: Options{Preview: "nope"}, host: host, label: "preview"},
		{name: "bad command", opts: Options{Requery: "nope"}, host: host, label: "cmd"},
		{name: "interactive without command", opts: Options{Interactive: true}, host: host, label: "interactive"},
		{name: "bad regex", opts: Options{Policies: policyRegex("(")}, label: "pre-select-pat"},
		{name: "unreadable file", opts: Options{Policies: policyFile(missing)}, label: "pre-select-file"},
		{name: "format without evaluator", opts: Options{Format: "x"}, label: "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, tt.host, nil)
			require.Error(t, err)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.label, cerr.Label)
		})
	}
}

func TestNew_FileSelectorRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel")
	require.NoError(t, os.WriteFile(path, []byte("ccc\n"), 0o600))

	s := mustNew(t, Options{Multi: true, Policies: policyFile(path)}, nil)
	rep, err := s.Run(context.Background(), acceptPreselected(t), Values([]any{"a", "bb", "ccc"}))
	require.NoError(t, err)
	assert.Equal(t, []any{"ccc"}, rep.Result.Value)
}

func TestSession_ID(t *testing.T) {
	a := mustNew(t, Options{}, nil)
	b := mustNew(t, Options{}, nil)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotNil(t, a.Context())
}
