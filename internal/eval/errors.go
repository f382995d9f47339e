package eval

import "errors"

var (
	// ErrClosed is returned when evaluating on a closed Host.
	ErrClosed = errors.New("eval: host is closed")

	// ErrNotCompiled is returned for callbacks that were not compiled by the
	// Host evaluating them.
	ErrNotCompiled = errors.New("eval: callback not compiled by this host")

	// ErrEmptyCallback is returned when compiling an empty source.
	ErrEmptyCallback = errors.New("eval: empty callback")
)
