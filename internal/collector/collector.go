// Package collector re-runs a user callback for every query and streams its
// results as a fresh generation, interrupting the previous one.
package collector

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/feed"
	"github.com/runger/sk/internal/item"
	sklog "github.com/runger/sk/internal/log"
)

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for generation lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// Collector is the dynamic requery engine. Invoke may be called from any
// goroutine; at most one generation is live at a time.
type Collector struct {
	ictx   *item.Context
	cb     *eval.Callback
	logger *slog.Logger

	producer *feed.Producer
	nextID   atomic.Uint64
	current  atomic.Pointer[feed.Generation]
	closed   atomic.Bool
}

// New returns a collector that evaluates cb with ictx's evaluator.
func New(ictx *item.Context, cb *eval.Callback, opts ...Option) *Collector {
	c := &Collector{ictx: ictx, cb: cb}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = sklog.Discard()
	}
	c.producer = feed.NewProducer(c.logger)
	return c
}

// Invoke starts a generation for query and interrupts the one it replaces.
// After Close it returns an already-terminal empty generation.
func (c *Collector) Invoke(ctx context.Context, query string) *feed.Generation {
	id := c.nextID.Add(1)
	open := c.opener(query)
	if c.closed.Load() {
		open = func(context.Context) feed.Source { return feed.FromSlice(nil) }
	}
	sklog.LogGenerationStarted(c.logger, id, query)
	g := c.producer.Launch(ctx, id, c.ictx, open)
	if old := c.current.Swap(g); old != nil {
		old.Interrupt()
	}
	// Re-checked after the swap: either Close sees g as current or this
	// sees closed, so g cannot outlive a concurrent Close.
	if c.closed.Load() {
		g.Interrupt()
	}
	return g
}

// Current returns the live generation, or nil before the first Invoke.
func (c *Collector) Current() *feed.Generation {
	return c.current.Load()
}

// Close interrupts the current generation without waiting for its worker.
// Later Invoke calls produce nothing.
func (c *Collector) Close() {
	c.closed.Store(true)
	if g := c.current.Load(); g != nil {
		g.Interrupt()
	}
}

// Active returns the number of workers still running.
func (c *Collector) Active() int32 {
	return c.producer.Active()
}

// opener evaluates the callback with query as its only argument on the
// worker goroutine, under the generation's context. A failed invocation
// yields one error value.
func (c *Collector) opener(query string) feed.Opener {
	return func(ctx context.Context) feed.Source {
		return func(yield func(any, error) bool) {
			if c.ictx == nil || c.ictx.Evaluator == nil {
				return
			}
			res, err := c.ictx.Evaluator.Eval(ctx, c.cb, []any{query}, eval.NoInput)
			if err != nil {
				yield(nil, err)
				return
			}
			resultValues(res)(yield)
		}
	}
}

// resultValues flattens a callback result: a list value yields its elements,
// any other value itself, a sequence its elements and a line stream one
// string per line.
func resultValues(res eval.Result) feed.Source {
	return func(yield func(any, error) bool) {
		switch res.Kind() {
		case eval.SeqResult:
			for v, err := range res.Seq() {
				if !yield(v, err) {
					return
				}
			}
		case eval.LinesResult:
			for line, err := range eval.ScanLines(res.Lines()) {
				var v any
				if err == nil {
					v = line
				}
				if !yield(v, err) {
					return
				}
			}
		default:
			if list, ok := res.Value().([]any); ok {
				feed.FromSlice(list)(yield)
				return
			}
			yield(res.Value(), nil)
		}
	}
}
