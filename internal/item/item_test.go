package item

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/sk/internal/eval"
)

// fakeEvaluator answers callbacks by their source text.
type fakeEvaluator struct {
	results map[string]func(v any) (eval.Result, error)
}

func (f *fakeEvaluator) Eval(_ context.Context, cb *eval.Callback, _ []any, in eval.Input) (eval.Result, error) {
	fn, ok := f.results[cb.Source]
	if !ok {
		return eval.Result{}, errors.New("unknown callback")
	}
	v, _ := in.Value()
	return fn(v)
}

func newContext(format, preview string) *Context {
	fe := &fakeEvaluator{results: map[string]func(any) (eval.Result, error){
		"name": func(v any) (eval.Result, error) {
			return eval.Value(v.(map[string]any)["name"]), nil
		},
		"fail": func(any) (eval.Result, error) {
			return eval.Result{}, errors.New("boom")
		},
		"same": func(v any) (eval.Result, error) {
			return eval.Value(v), nil
		},
		"text": func(any) (eval.Result, error) {
			return eval.Value("plain preview"), nil
		},
	}}
	ctx := &Context{Evaluator: fe, Tabstop: 4}
	if format != "" {
		ctx.Format = &eval.Callback{Kind: eval.KindLua, Source: format}
	}
	if preview != "" {
		ctx.Preview = &eval.Callback{Kind: eval.KindLua, Source: preview}
	}
	return ctx
}

func TestNew_DisplayText(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		payload any
		want    string
	}{
		{name: "string without format", payload: "hello", want: "hello"},
		{name: "number without format", payload: float64(3), want: "3"},
		{name: "list joined", payload: []any{"a", "b"}, want: "[a, b]"},
		{name: "format callback", format: "name", payload: map[string]any{"name": "alice", "age": float64(3)}, want: "alice"},
		{name: "format failure shown", format: "fail", payload: "x", want: "error: boom"},
		{name: "control chars stripped", payload: "a\nb\x1b[31mc", want: "a bc"},
		{name: "tabs expanded", payload: "a\tb", want: "a   b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := New(context.Background(), 2, newContext(tt.format, ""), tt.payload)
			assert.Equal(t, tt.want, it.Text())
			assert.Equal(t, 2, it.Index())
			assert.Equal(t, tt.payload, it.Payload())
		})
	}
}

func TestNew_FormatFailureIsNotAnErrorItem(t *testing.T) {
	it := New(context.Background(), 0, newContext("fail", ""), "x")
	assert.NoError(t, it.Err())
	assert.Equal(t, "x", it.Payload())
}

func TestNewError(t *testing.T) {
	err := errors.New("line too long")
	it := NewError(5, newContext("", ""), err)

	assert.Equal(t, 5, it.Index())
	assert.Equal(t, err, it.Err())
	assert.Equal(t, err, it.Payload())
	assert.Equal(t, "error: line too long", it.Text())
}

func TestNew_ErrorPayload(t *testing.T) {
	err := errors.New("bad row")
	it := New(context.Background(), 0, newContext("name", ""), err)

	assert.Equal(t, err, it.Err())
	assert.Equal(t, "error: bad row", it.Text())
}

func TestNew_NilContext(t *testing.T) {
	it := New(context.Background(), 1, nil, "plain")
	assert.Equal(t, "plain", it.Text())
	assert.Contains(t, it.Preview(context.Background(), 40), "plain")
}

// ctxEvaluator reports the context error it was called with.
type ctxEvaluator struct{}

func (ctxEvaluator) Eval(ctx context.Context, _ *eval.Callback, _ []any, _ eval.Input) (eval.Result, error) {
	if err := ctx.Err(); err != nil {
		return eval.Result{}, err
	}
	return eval.Value("formatted"), nil
}

func TestNew_FormatUsesCallerContext(t *testing.T) {
	ictx := &Context{
		Evaluator: ctxEvaluator{},
		Format:    &eval.Callback{Kind: eval.KindLua, Source: "f"},
	}

	assert.Equal(t, "formatted", New(context.Background(), 0, ictx, "x").Text())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "error: context canceled", New(ctx, 0, ictx, "x").Text())
}

// selectFunc adapts a function to Preselector.
type selectFunc func(index int, it *Item) bool

func (f selectFunc) ShouldSelect(index int, it *Item) bool { return f(index, it) }

func TestNew_Preselected(t *testing.T) {
	var seen []string
	ictx := newContext("name", "")
	ictx.Preselect = selectFunc(func(index int, it *Item) bool {
		seen = append(seen, it.Text())
		return index == 1
	})

	first := New(context.Background(), 0, ictx, map[string]any{"name": "a"})
	second := New(context.Background(), 1, ictx, map[string]any{"name": "b"})
	bad := New(context.Background(), 1, ictx, errors.New("bad row"))

	assert.False(t, first.Preselected())
	assert.True(t, second.Preselected())
	assert.False(t, bad.Preselected())
	assert.Equal(t, []string{"a", "b"}, seen, "policy sees display text, never error items")
}

func TestNew_NoPolicy(t *testing.T) {
	assert.False(t, New(context.Background(), 0, newContext("", ""), "x").Preselected())
	assert.False(t, New(context.Background(), 0, nil, "x").Preselected())
}

func TestPreview(t *testing.T) {
	t.Run("string result verbatim", func(t *testing.T) {
		it := New(context.Background(), 0, newContext("", "text"), map[string]any{"name": "x"})
		assert.Equal(t, "plain preview", it.Preview(context.Background(), 80))
	})

	t.Run("record rendered as table", func(t *testing.T) {
		it := New(context.Background(), 0, newContext("", "same"), map[string]any{"name": "alice", "age": float64(30)})
		out := it.Preview(context.Background(), 60)
		assert.Contains(t, out, "name")
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, "30")
	})

	t.Run("payload previewed without callback", func(t *testing.T) {
		it := New(context.Background(), 0, newContext("", ""), []any{"one", "two"})
		out := it.Preview(context.Background(), 60)
		assert.Contains(t, out, "one")
		assert.Contains(t, out, "two")
	})

	t.Run("failure shown as text", func(t *testing.T) {
		it := New(context.Background(), 0, newContext("", "fail"), "x")
		assert.Equal(t, "error: boom", it.Preview(context.Background(), 80))
	})

	t.Run("clipped to width", func(t *testing.T) {
		it := New(context.Background(), 0, newContext("", ""), strings.Repeat("x", 50))
		out := it.Preview(context.Background(), 10)
		for _, line := range strings.Split(out, "\n") {
			assert.LessOrEqual(t, len(line), 10)
		}
	})

	t.Run("recomputed each call", func(t *testing.T) {
		calls := 0
		ctx := newContext("", "")
		ctx.Evaluator.(*fakeEvaluator).results["count"] = func(any) (eval.Result, error) {
			calls++
			return eval.Value("n"), nil
		}
		ctx.Preview = &eval.Callback{Kind: eval.KindLua, Source: "count"}
		it := New(context.Background(), 0, ctx, "x")
		it.Preview(context.Background(), 20)
		it.Preview(context.Background(), 20)
		require.Equal(t, 2, calls)
	})
}
