// Package feed turns sources of payloads into streams of items.
package feed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/tidwall/gjson"
)

// Source yields payloads in order. A non-nil error stands for one value that
// could not be produced; the source may continue after it.
type Source = iter.Seq2[any, error]

// ErrSkip is returned by a Decoder for lines that produce no value.
var ErrSkip = errors.New("skip line")

// maxLineBytes bounds a single input line.
const maxLineBytes = 4 << 20

// Decoder turns one input line into a payload.
type Decoder func(line string) (any, error)

// FromSlice yields the values of a realized collection.
func FromSlice(vals []any) Source {
	return func(yield func(any, error) bool) {
		for _, v := range vals {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// FromSeq adapts a lazy sequence that cannot fail.
func FromSeq(seq iter.Seq[any]) Source {
	return func(yield func(any, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// FromLines yields one payload per line of r. Decode failures are yielded
// as per-value errors; a read failure is yielded once and ends the source.
// A trailing carriage return is stripped from every line.
func FromLines(r io.Reader, decode Decoder) Source {
	if decode == nil {
		decode = DecodeText
	}
	return func(yield func(any, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		line := 0
		for sc.Scan() {
			line++
			v, err := decode(strings.TrimSuffix(sc.Text(), "\r"))
			if errors.Is(err, ErrSkip) {
				continue
			}
			if err != nil {
				err = fmt.Errorf("line %d: %w", line, err)
			}
			if !yield(v, err) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, fmt.Errorf("read input: %w", err))
		}
	}
}

// DecodeText returns the line itself.
func DecodeText(line string) (any, error) {
	return line, nil
}

// DecodeJSONLine parses one JSON document per line. Blank lines are skipped.
func DecodeJSONLine(line string) (any, error) {
	if strings.TrimSpace(line) == "" {
		return nil, ErrSkip
	}
	if !gjson.Valid(line) {
		return nil, fmt.Errorf("invalid JSON: %s", truncate(line, 40))
	}
	return gjson.Parse(line).Value(), nil
}

// ParseJSONArray decodes a whole-document JSON array into its elements. A
// document that is not an array is treated as a single value, an empty one
// as no values.
func ParseJSONArray(data []byte) ([]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("input is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return []any{doc.Value()}, nil
	}
	var vals []any
	doc.ForEach(func(_, v gjson.Result) bool {
		vals = append(vals, v.Value())
		return true
	})
	return vals, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
