// Package session wires sources, callbacks and pre-selection policies to an
// interactive chooser and translates how it ended.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/runger/sk/internal/collector"
	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/feed"
	"github.com/runger/sk/internal/item"
	sklog "github.com/runger/sk/internal/log"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/selector"
)

// Options is the finished session configuration. Display and matching
// options belong to the Engine and are not seen here.
type Options struct {
	Multi  bool
	Expect []string

	// Interactive re-runs Requery on every query change. Without it a
	// configured Requery runs once, with Query, as the static source.
	Interactive bool
	Query       string

	Policies selector.Spec

	Format  string
	Preview string
	Requery string

	Tabstop     int
	InputFormat string
}

// Requerier produces a new generation per query. *collector.Collector
// implements it.
type Requerier interface {
	Invoke(ctx context.Context, query string) *feed.Generation
	Close()
}

// Feed is what an Engine consumes: exactly one of Static or Requery is set.
type Feed struct {
	Static  *feed.Generation
	Requery Requerier

	// Query is the initial query text.
	Query   string
	Context *item.Context
}

// Engine is the interactive matching and ranking engine.
type Engine interface {
	Run(ctx context.Context, f Feed) (outcome.Outcome, error)
}

// Input is the source of a non-interactive session. Len is the number of
// values when the source is realized and -1 when it is a stream.
type Input struct {
	Source feed.Source
	Len    int
}

// Values returns the input for a realized collection.
func Values(vals []any) Input {
	return Input{Source: feed.FromSlice(vals), Len: len(vals)}
}

// Stream returns the input for a lazy source of unknown length.
func Stream(src feed.Source) Input {
	return Input{Source: src, Len: -1}
}

// ConfigError is a construction-time failure labeled with the option that
// caused it. A session that fails with a ConfigError never starts.
type ConfigError struct {
	Label string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Report is the end state of a session.
type Report struct {
	Outcome outcome.Outcome
	Result  outcome.Result
	// Started is false when the session short-circuited without running
	// the engine.
	Started bool
}

// Session is a configured, ready-to-run selection session.
type Session struct {
	opts     Options
	id       string
	logger   *slog.Logger
	ictx     *item.Context
	requery  *eval.Callback
	selector selector.Selector
}

// New compiles every callback and builds the pre-selection policy. All
// failures are ConfigErrors.
func New(opts Options, host eval.Compiler, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = sklog.Discard()
	}
	id := uuid.NewString()
	logger = logger.With("session_id", id)

	s := &Session{opts: opts, id: id, logger: logger}
	s.ictx = &item.Context{Evaluator: host, Tabstop: opts.Tabstop, Logger: logger}

	var err error
	if s.ictx.Format, err = compile(host, "format", opts.Format); err != nil {
		return nil, err
	}
	if s.ictx.Preview, err = compile(host, "preview", opts.Preview); err != nil {
		return nil, err
	}
	if s.requery, err = compile(host, "cmd", opts.Requery); err != nil {
		return nil, err
	}
	if opts.Interactive && s.requery == nil {
		return nil, &ConfigError{Label: "interactive", Err: errors.New("requires a command (-c)")}
	}

	if s.selector, err = selector.Build(opts.Policies, host); err != nil {
		var serr *selector.Error
		if errors.As(err, &serr) {
			return nil, &ConfigError{Label: serr.Option, Err: serr.Err}
		}
		return nil, &ConfigError{Label: "pre-select", Err: err}
	}
	// Pre-selection is decided as items are built on the producer side; an
	// engine only reads Item.Preselected.
	if opts.Multi && s.selector != nil {
		s.ictx.Preselect = s.selector
	}
	return s, nil
}

func compile(host eval.Compiler, label, src string) (*eval.Callback, error) {
	if src == "" {
		return nil, nil
	}
	if host == nil {
		return nil, &ConfigError{Label: label, Err: errors.New("no evaluator")}
	}
	cb, err := host.Compile(src)
	if err != nil {
		return nil, &ConfigError{Label: label, Err: err}
	}
	return cb, nil
}

// ID is the session's unique identifier, attached to every log record.
func (s *Session) ID() string { return s.id }

// Context is the shared item context.
func (s *Session) Context() *item.Context { return s.ictx }

// Run drives engine over in (ignored for interactive sessions) and
// translates its outcome. A realized source known to be empty returns an
// empty selection without starting the engine or any worker. Every worker
// is interrupted when Run returns.
func (s *Session) Run(ctx context.Context, engine Engine, in Input) (Report, error) {
	sklog.LogSessionStart(s.logger, sklog.SessionInfo{
		SessionID:   s.id,
		Multi:       s.opts.Multi,
		Interactive: s.opts.Interactive,
		InputFormat: s.opts.InputFormat,
		Policies:    s.selector != nil,
		Expect:      s.opts.Expect,
	})

	if !s.opts.Interactive && s.requery == nil && in.Len == 0 {
		o := outcome.Select()
		return s.finish(Report{Outcome: o}), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := Feed{
		Query:   s.opts.Query,
		Context: s.ictx,
	}
	switch {
	case s.requery != nil:
		c := collector.New(s.ictx, s.requery, collector.WithLogger(s.logger))
		defer c.Close()
		if s.opts.Interactive {
			f.Requery = c
		} else {
			f.Static = c.Invoke(ctx, s.opts.Query)
		}
	default:
		src := in.Source
		if src == nil {
			src = feed.FromSlice(nil)
		}
		f.Static = feed.NewProducer(s.logger).Start(ctx, s.ictx, src)
	}

	o, err := engine.Run(ctx, f)
	if err != nil {
		return Report{}, fmt.Errorf("engine: %w", err)
	}
	return s.finish(Report{Outcome: o, Started: true}), nil
}

func (s *Session) finish(r Report) Report {
	r.Result = outcome.Translate(r.Outcome, s.opts.Multi, s.opts.Expect)
	sklog.LogSessionEnd(s.logger, r.Outcome.Kind.String(), len(r.Outcome.Payloads))
	return r
}
