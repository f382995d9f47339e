package selector

import (
	"errors"
	"fmt"

	"github.com/runger/sk/internal/eval"
)

// Spec is the configured set of pre-selection policies. Zero fields are
// unset.
type Spec struct {
	FirstN    int
	Regex     string
	Preset    []string
	File      string
	Predicate string
}

// Empty reports whether no policy is configured.
func (s Spec) Empty() bool {
	return s.FirstN <= 0 && s.Regex == "" && len(s.Preset) == 0 && s.File == "" && s.Predicate == ""
}

// Error labels a policy that failed to build with the option it came from.
type Error struct {
	Option string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("selector: %s: %v", e.Option, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Build constructs the composed policy for spec. It returns nil and no error
// when spec is empty. ev may be nil when spec has no predicate.
func Build(spec Spec, ev eval.Compiler) (Selector, error) {
	var sels []Selector

	if spec.FirstN > 0 {
		sels = append(sels, FirstN(spec.FirstN))
	}
	if spec.Regex != "" {
		s, err := Regex(spec.Regex)
		if err != nil {
			return nil, &Error{Option: "pre-select-pat", Err: err}
		}
		sels = append(sels, s)
	}
	if len(spec.Preset) > 0 {
		sels = append(sels, Preset(spec.Preset...))
	}
	if spec.File != "" {
		s, err := FromFile(spec.File)
		if err != nil {
			return nil, &Error{Option: "pre-select-file", Err: err}
		}
		sels = append(sels, s)
	}
	if spec.Predicate != "" {
		if ev == nil {
			return nil, &Error{Option: "pre-select", Err: errors.New("no evaluator")}
		}
		cb, err := ev.Compile(spec.Predicate)
		if err != nil {
			return nil, &Error{Option: "pre-select", Err: err}
		}
		sels = append(sels, Predicate(ev, cb))
	}

	return Compose(sels...), nil
}
