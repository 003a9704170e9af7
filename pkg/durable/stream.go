package durable

import (
	"context"

	"github.com/rezlab/oplog/pkg/fault"
)

// Batch is one delivered slice of a stream. Done marks provider-signaled
// exhaustion: end-of-pages for pagination, completion for generation
// streams. A batch may carry items and Done together.
type Batch[T any] struct {
	Items []T  `json:"items"`
	Done  bool `json:"done"`
}

// Source adapts a provider's stream or paginated session to the cursor. The
// remote reference is the one captured in the owning session's creation
// record.
type Source[T any] interface {
	// Poll returns immediately: any currently available items, possibly
	// none, and whether the stream is finished.
	Poll(ctx context.Context, remoteRef string) (items []T, done bool, flt *fault.Fault)

	// Pull blocks until at least one item is available or the stream
	// finishes.
	Pull(ctx context.Context, remoteRef string) (items []T, done bool, flt *fault.Fault)
}

// Cursor is the pull-based consumption protocol for a streaming resource.
// Every Poll and BlockingPull is durably wrapped: live execution may observe
// arbitrary batch boundaries from network timing, but the boundaries
// observed are persisted, so replay reproduces identical batching even
// though the transport is non-deterministic.
//
// A Cursor is exclusively owned by the instance that created it and is not
// safe for concurrent use.
type Cursor[T any] struct {
	w         *Wrapper
	handle    *SessionHandle
	operation string
	source    Source[T]

	buffered  []T
	exhausted bool
	polls     uint64
}

// pollInput pins each poll's journal digest to the handle and the poll's
// position in the cursor's own sequence.
type pollInput struct {
	LocalID uint32 `json:"local_id"`
	Poll    uint64 `json:"poll"`
}

// NewCursor binds a cursor to an open session. operation names the wrapped
// poll/pull records in the journal, e.g. "search.next-page".
func NewCursor[T any](w *Wrapper, h *SessionHandle, operation string, source Source[T]) *Cursor[T] {
	return &Cursor[T]{w: w, handle: h, operation: operation, source: source}
}

// Handle returns the owning session handle.
func (c *Cursor[T]) Handle() *SessionHandle { return c.handle }

// Exhausted reports whether the stream has delivered its final batch.
func (c *Cursor[T]) Exhausted() bool { return c.exhausted }

// Poll is the non-blocking read: it returns a batch (possibly empty, an
// explicit "nothing yet") or the exhaustion batch. Polling a terminal
// stream fails with the fixed resource fault without consuming an ordinal.
func (c *Cursor[T]) Poll(ctx context.Context) Outcome[Batch[T]] {
	return c.advance(ctx, func(ctx context.Context, remote string) ([]T, bool, *fault.Fault) {
		return c.source.Poll(ctx, remote)
	})
}

// BlockingPull suspends the calling instance until items are available or
// the stream is exhausted. The suspension happens inside the live function;
// replay returns the recorded batch immediately.
func (c *Cursor[T]) BlockingPull(ctx context.Context) Outcome[Batch[T]] {
	return c.advance(ctx, func(ctx context.Context, remote string) ([]T, bool, *fault.Fault) {
		for {
			items, done, flt := c.source.Pull(ctx, remote)
			if flt != nil || done || len(items) > 0 {
				return items, done, flt
			}
			// A conforming Pull only returns empty without done on a spurious
			// wakeup; honor cancellation before retrying.
			if err := ctx.Err(); err != nil {
				return nil, false, fault.New(fault.TransientProvider, "pull cancelled: %v", err)
			}
		}
	})
}

// Next drains the cursor item by item, refilling from BlockingPull. ok is
// false once the stream is exhausted and the buffer is empty.
func (c *Cursor[T]) Next(ctx context.Context) (item T, flt *fault.Fault, ok bool) {
	var zero T
	for {
		if len(c.buffered) > 0 {
			item = c.buffered[0]
			c.buffered = c.buffered[1:]
			return item, nil, true
		}
		if c.exhausted {
			return zero, nil, false
		}
		out := c.BlockingPull(ctx)
		if out.Fault != nil {
			return zero, out.Fault, false
		}
		c.buffered = append(c.buffered, out.Value.Items...)
	}
}

func (c *Cursor[T]) advance(ctx context.Context, read func(context.Context, string) ([]T, bool, *fault.Fault)) Outcome[Batch[T]] {
	w := c.w
	w.mu.Lock()
	defer w.mu.Unlock()

	reg, flt := w.lookupSessionLocked(c.handle)
	if flt != nil {
		return Outcome[Batch[T]]{Fault: flt}
	}
	if flt := rejectTerminal(reg); flt != nil {
		return Outcome[Batch[T]]{Fault: flt}
	}

	seq := c.polls
	c.polls++
	out := wrapLocked(ctx, w, c.operation, pollInput{LocalID: reg.localID, Poll: seq}, func(ctx context.Context) (Batch[T], *fault.Fault) {
		items, done, flt := read(ctx, reg.remote)
		if flt != nil {
			return Batch[T]{}, flt
		}
		return Batch[T]{Items: items, Done: done}, nil
	})
	if out.Fault != nil {
		return out
	}

	if reg.state == SessionCreated {
		reg.state = SessionActive
	}
	if out.Value.Done {
		c.exhausted = true
		reg.state = SessionExhausted
	}
	return out
}
