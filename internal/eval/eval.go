// Package eval evaluates user-supplied callbacks for sk.
//
// A callback is compiled once from its source text and can then be evaluated
// any number of times, from any goroutine. Three kinds are supported, chosen
// by a prefix on the source:
//
//	lua:function(v) return v.name end   (the prefix is optional)
//	sh:git log --oneline {q}            (a command; stdout is a line stream)
//	path:user.name                      (a gjson path into the input value)
//
// Evaluation returns a Result, which is a single value, a lazy sequence of
// values, or a raw line-oriented byte stream.
package eval

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Evaluator runs compiled callbacks. Implementations must be safe for
// concurrent use.
type Evaluator interface {
	Eval(ctx context.Context, cb *Callback, args []any, in Input) (Result, error)
}

// Compiler is an Evaluator that also compiles source text into callbacks it
// can run. *Host implements it.
type Compiler interface {
	Evaluator
	Compile(src string) (*Callback, error)
}

// Kind identifies how a callback is evaluated.
type Kind int

const (
	KindLua Kind = iota
	KindCommand
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindLua:
		return "lua"
	case KindCommand:
		return "sh"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}

// Callback is a compiled user callback.
type Callback struct {
	Kind   Kind
	Source string // Source without its kind prefix

	argv []string
	fn   *lua.LFunction
}

func (c *Callback) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Kind.String() + ":" + c.Source
}

// ParseKind splits a callback source into its kind and body.
func ParseKind(src string) (Kind, string) {
	src = strings.TrimSpace(src)
	if body, ok := strings.CutPrefix(src, "sh:"); ok {
		return KindCommand, strings.TrimSpace(body)
	}
	if body, ok := strings.CutPrefix(src, "path:"); ok {
		return KindPath, strings.TrimSpace(body)
	}
	if body, ok := strings.CutPrefix(src, "lua:"); ok {
		return KindLua, strings.TrimSpace(body)
	}
	return KindLua, src
}

// Input is the optional pipeline input of a callback evaluation.
type Input struct {
	value any
	ok    bool
}

// NoInput is the absent input.
var NoInput = Input{}

// With returns an input carrying v.
func With(v any) Input {
	return Input{value: v, ok: true}
}

// Value returns the input value and whether one is present.
func (in Input) Value() (any, bool) {
	return in.value, in.ok
}

// ResultKind is the shape of an evaluation result.
type ResultKind int

const (
	ValueResult ResultKind = iota
	SeqResult
	LinesResult
)

// Result is what a callback produced.
type Result struct {
	kind  ResultKind
	value any
	seq   iter.Seq2[any, error]
	lines io.ReadCloser
}

// Value returns a single-value result.
func Value(v any) Result {
	return Result{kind: ValueResult, value: v}
}

// Seq returns a lazy sequence result.
func Seq(seq iter.Seq2[any, error]) Result {
	return Result{kind: SeqResult, seq: seq}
}

// Lines returns a line-stream result. The consumer must close rc.
func Lines(rc io.ReadCloser) Result {
	return Result{kind: LinesResult, lines: rc}
}

func (r Result) Kind() ResultKind { return r.kind }

// Value returns the value of a ValueResult.
func (r Result) Value() any { return r.value }

// Seq returns the sequence of a SeqResult.
func (r Result) Seq() iter.Seq2[any, error] { return r.seq }

// Lines returns the stream of a LinesResult.
func (r Result) Lines() io.ReadCloser { return r.lines }

// Collect reduces a result to one value: a sequence becomes a []any and a
// line stream its text without the final newline.
func (r Result) Collect() (any, error) {
	switch r.kind {
	case SeqResult:
		out := []any{}
		for v, err := range r.seq {
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case LinesResult:
		data, err := io.ReadAll(r.lines)
		closeErr := r.lines.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	default:
		return r.value, nil
	}
}

// ScanLines iterates the lines of rc, closing it when done. A read error, or
// an error from Close, is yielded once as the last element.
func ScanLines(rc io.ReadCloser) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sc := bufio.NewScanner(rc)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			if !yield(strings.TrimSuffix(sc.Text(), "\r"), nil) {
				_ = rc.Close()
				return
			}
		}
		err := errors.Join(sc.Err(), rc.Close())
		if err != nil {
			yield("", err)
		}
	}
}

// maxLineBytes bounds a single line of a line stream.
const maxLineBytes = 4 * 1024 * 1024
