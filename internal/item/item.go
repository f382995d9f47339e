// Package item defines the unit offered to the interactive chooser: a payload
// plus its derived display and preview text.
package item

import (
	"context"
	"log/slog"

	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/render"
)

// DefaultTabstop is the tab width used when the context does not set one.
const DefaultTabstop = 8

// Preselector decides whether an item starts out selected.
type Preselector interface {
	ShouldSelect(index int, it *Item) bool
}

// Context is the session-wide state shared by every item and worker. It is
// built once before the session starts and never mutated afterwards.
type Context struct {
	Evaluator eval.Evaluator
	Format    *eval.Callback // nil renders the payload itself
	Preview   *eval.Callback // nil previews the payload itself
	Preselect Preselector    // nil when nothing starts selected
	Tabstop   int
	Logger    *slog.Logger
}

func (c *Context) tabstop() int {
	if c == nil || c.Tabstop <= 0 {
		return DefaultTabstop
	}
	return c.Tabstop
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Item is one selectable entry. It is immutable once constructed and safe to
// share between goroutines.
type Item struct {
	index   int
	ctx     *Context
	payload any
	display string
	err     error

	preselected bool
}

// New wraps payload as the index-th item of its generation, computes its
// display text and applies the pre-selection policy. Both run on the calling
// goroutine under ctx, which is the generation's context when called from a
// producer. A failing format callback does not fail construction: the error
// text is displayed instead.
func New(ctx context.Context, index int, ictx *Context, payload any) *Item {
	it := &Item{index: index, ctx: ictx, payload: payload}
	it.display = render.DisplaySafe(it.format(ctx), ictx.tabstop())
	if ictx != nil && ictx.Preselect != nil && it.err == nil {
		it.preselected = ictx.Preselect.ShouldSelect(index, it)
	}
	return it
}

// NewError returns a synthetic item carrying err as its payload.
func NewError(index int, ctx *Context, err error) *Item {
	return &Item{
		index:   index,
		ctx:     ctx,
		payload: err,
		err:     err,
		display: render.DisplaySafe(render.ErrorText(err), ctx.tabstop()),
	}
}

func (it *Item) format(ctx context.Context) string {
	if err, ok := it.payload.(error); ok {
		it.err = err
		return render.ErrorText(err)
	}
	if it.ctx == nil || it.ctx.Format == nil || it.ctx.Evaluator == nil {
		return render.Text(it.payload)
	}

	res, err := it.ctx.Evaluator.Eval(ctx, it.ctx.Format, nil, eval.With(it.payload))
	if err == nil {
		var v any
		if v, err = res.Collect(); err == nil {
			return render.Text(v)
		}
	}
	it.ctx.logger().Debug("format callback failed", "index", it.index, "error", err)
	return render.ErrorText(err)
}

// Index is the item's position within its production generation.
func (it *Item) Index() int { return it.index }

// Payload is the original value the item wraps.
func (it *Item) Payload() any { return it.payload }

// Text is the cached display text.
func (it *Item) Text() string { return it.display }

// Preselected reports whether the pre-selection policy chose the item when
// it was built.
func (it *Item) Preselected() bool { return it.preselected }

// Err reports whether the item stands for an error rather than a value.
func (it *Item) Err() error { return it.err }

// Preview renders the preview for a pane of the given width. It is computed
// fresh on every call. Structured results are laid out as a table; callback
// failures are returned as the preview text.
func (it *Item) Preview(ctx context.Context, width int) string {
	v := it.payload
	if it.err == nil && it.ctx != nil && it.ctx.Preview != nil && it.ctx.Evaluator != nil {
		res, err := it.ctx.Evaluator.Eval(ctx, it.ctx.Preview, nil, eval.With(it.payload))
		if err == nil {
			v, err = res.Collect()
		}
		if err != nil {
			it.ctx.logger().Debug("preview callback failed", "index", it.index, "error", err)
			return render.Clip(render.ErrorText(err), width)
		}
	}
	return render.Table(v, width)
}
