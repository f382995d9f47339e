// Package selector decides which items start out selected when a session
// opens in multi mode.
package selector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/item"
)

// Selector is a pre-selection policy. Implementations must be safe for
// repeated calls with the same arguments.
type Selector interface {
	ShouldSelect(index int, it *item.Item) bool
}

// Func adapts a plain function to Selector.
type Func func(index int, it *item.Item) bool

// ShouldSelect implements Selector.
func (f Func) ShouldSelect(index int, it *item.Item) bool { return f(index, it) }

// FirstN selects the first n items of a generation.
func FirstN(n int) Selector {
	return Func(func(index int, _ *item.Item) bool { return index < n })
}

type regexSelector struct {
	re *regexp.Regexp
}

// Regex selects items whose display text matches pattern.
func Regex(pattern string) (Selector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &regexSelector{re: re}, nil
}

func (s *regexSelector) ShouldSelect(_ int, it *item.Item) bool {
	return s.re.MatchString(it.Text())
}

type presetSelector map[string]struct{}

// Preset selects items whose display text equals one of keys exactly.
func Preset(keys ...string) Selector {
	set := make(presetSelector, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (s presetSelector) ShouldSelect(_ int, it *item.Item) bool {
	_, ok := s[it.Text()]
	return ok
}

// FromFile reads path up front and selects items whose display text equals
// one of its lines. Trailing carriage returns are ignored.
func FromFile(path string) (Selector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		keys = append(keys, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Preset(keys...), nil
}

type predicateSelector struct {
	ev eval.Evaluator
	cb *eval.Callback
}

// Predicate selects items for which cb, called with the payload as input,
// returns boolean true. Any other result, including an error, is false.
func Predicate(ev eval.Evaluator, cb *eval.Callback) Selector {
	return &predicateSelector{ev: ev, cb: cb}
}

func (s *predicateSelector) ShouldSelect(_ int, it *item.Item) bool {
	res, err := s.ev.Eval(context.Background(), s.cb, nil, eval.With(it.Payload()))
	if err != nil {
		return false
	}
	v, err := res.Collect()
	if err != nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Any selects an item when at least one of its policies does.
type Any []Selector

// ShouldSelect implements Selector.
func (a Any) ShouldSelect(index int, it *item.Item) bool {
	for _, s := range a {
		if s.ShouldSelect(index, it) {
			return true
		}
	}
	return false
}

// Compose ORs the non-nil policies together. It returns nil when there are
// none, which callers treat as "no pre-selection" rather than a policy that
// never selects.
func Compose(sels ...Selector) Selector {
	var kept Any
	for _, s := range sels {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return kept
	}
}
