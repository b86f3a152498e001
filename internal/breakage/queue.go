package breakage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/bondbreak/internal/ir"
)

// Queue is the ordered list of break events collected during a step.
//
// The queue is append-only between flushes. Insertion order is significant:
// Flush dispatches events in the order they were enqueued.
//
// Not safe for concurrent use. Producers and the flush run on the
// simulation's control goroutine.
type Queue struct {
	events []ir.BreakEvent
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		events: make([]ir.BreakEvent, 0, 16),
	}
}

// Enqueue appends an event. No deduplication and no validation.
func (q *Queue) Enqueue(ev ir.BreakEvent) {
	q.events = append(q.events, ev)
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Events returns a copy of the pending events in enqueue order.
func (q *Queue) Events() []ir.BreakEvent {
	return slices.Clone(q.events)
}

// Flush applies every handler in chain to every pending event and then
// clears the processed events.
//
// Dispatch order is per event: all handlers, in chain order, see event N
// before any handler sees event N+1. An empty chain still drains the queue.
//
// Events enqueued by a handler while the flush is running are not
// dispatched by this flush and stay queued for the next one.
//
// Returns the processed events and the number of handler invocations.
func (q *Queue) Flush(ctx context.Context, env *Env, chain *Chain) ([]ir.BreakEvent, int) {
	pending := slices.Clone(q.events)
	handlers := chain.Handlers()

	dispatches := 0
	for i, ev := range pending {
		for j, h := range handlers {
			env.logger().Debug("dispatching break event",
				"position", i,
				"chain_index", j,
				"type", int64(ev.Type),
				"id1", int64(ev.ID1),
				"id2", int64(ev.ID2),
			)
			h.Handle(ctx, env, ev)
			dispatches++
		}
	}

	// Clear only what was processed
	if len(q.events) == len(pending) {
		q.events = q.events[:0]
	} else {
		q.events = slices.Clone(q.events[len(pending):])
	}

	return pending, dispatches
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
