package feed

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/runger/sk/internal/item"
	sklog "github.com/runger/sk/internal/log"
)

// BufferSize is the capacity of a generation's item channel.
const BufferSize = 256

// Generation is one production run: the items emitted for a single source
// or query. Items is closed once the generation is terminal.
type Generation struct {
	ID    uint64
	Items <-chan *item.Item

	cancel context.CancelFunc
	done   chan struct{}

	emitted     atomic.Int64
	interrupted atomic.Bool
}

// Interrupt asks the worker to stop. It does not wait and is safe to call
// more than once or after the generation finished.
func (g *Generation) Interrupt() {
	g.interrupted.Store(true)
	g.cancel()
}

// Done is closed when the worker has exited.
func (g *Generation) Done() <-chan struct{} { return g.done }

// Emitted returns how many items the worker sent. It is zero until Done is
// closed.
func (g *Generation) Emitted() int {
	return int(g.emitted.Load())
}

// Emit wraps each value of src in a fresh item, numbered from 0, and sends it
// on out. Items are built on the calling goroutine under ctx, so format and
// pre-selection callbacks never run on the consumer's side. Values that failed become error items. Emission stops as soon as
// ctx is done, checked before each item and while blocked on a send; it
// returns the number of items sent.
func Emit(ctx context.Context, ictx *item.Context, src Source, out chan<- *item.Item) int {
	n := 0
	for v, err := range src {
		if ctx.Err() != nil {
			return n
		}
		var it *item.Item
		if err != nil {
			it = item.NewError(n, ictx, err)
		} else {
			it = item.New(ctx, n, ictx, v)
		}
		select {
		case out <- it:
			n++
		case <-ctx.Done():
			return n
		}
	}
	return n
}

// Producer runs generations on background goroutines and counts the ones
// still running.
type Producer struct {
	logger *slog.Logger
	active atomic.Int32
}

// NewProducer returns a producer that logs generation lifecycles to logger.
func NewProducer(logger *slog.Logger) *Producer {
	if logger == nil {
		logger = sklog.Discard()
	}
	return &Producer{logger: logger}
}

// Start emits src as the single static generation (ID 0).
func (p *Producer) Start(ctx context.Context, ictx *item.Context, src Source) *Generation {
	sklog.LogGenerationStarted(p.logger, 0, "")
	return p.Launch(ctx, 0, ictx, func(context.Context) Source { return src })
}

// Opener builds a generation's source on its worker goroutine. The context
// is the generation's own and is cancelled on interrupt.
type Opener func(ctx context.Context) Source

// Launch runs open on a new worker and emits its source as generation id.
// The generation is interrupted when ctx is done or Interrupt is called.
func (p *Producer) Launch(ctx context.Context, id uint64, ictx *item.Context, open Opener) *Generation {
	gctx, cancel := context.WithCancel(ctx)
	ch := make(chan *item.Item, BufferSize)
	g := &Generation{
		ID:     id,
		Items:  ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.active.Add(1)
	go func() {
		defer p.active.Add(-1)
		defer close(g.done)
		defer close(ch)

		n := Emit(gctx, ictx, open(gctx), ch)
		interrupted := gctx.Err() != nil
		cancel()

		g.emitted.Store(int64(n))
		interrupted = interrupted || g.interrupted.Load()
		sklog.LogGenerationDone(p.logger, id, n, interrupted)
	}()
	return g
}

// Active returns the number of workers that have not exited.
func (p *Producer) Active() int32 {
	return p.active.Load()
}
