package feed

import "time"

// batch accumulates dequeued items in order. The dispatch loop keeps it at
// or below the configured size, except for the final forced flush which
// appends everything drained from the queue.
type batch[T any] struct {
	max     int
	items   []T
	started time.Time
}

func newBatch[T any](max int) *batch[T] {
	return &batch[T]{max: max, items: make([]T, 0, min(max, 1024))}
}

func (b *batch[T]) add(item T, now time.Time) {
	if len(b.items) == 0 {
		b.started = now
	}
	b.items = append(b.items, item)
}

func (b *batch[T]) len() int    { return len(b.items) }
func (b *batch[T]) empty() bool { return len(b.items) == 0 }
func (b *batch[T]) full() bool  { return len(b.items) >= b.max }

// deadline is the instant the current batch must be flushed by. An empty
// batch gets a full budget starting now, or no deadline at all when the
// budget is zero so an idle loop does not spin.
func (b *batch[T]) deadline(now time.Time, budget time.Duration) time.Time {
	if b.empty() {
		if budget <= 0 {
			return time.Time{}
		}
		return now.Add(budget)
	}
	return b.started.Add(budget)
}

func (b *batch[T]) reset() {
	clear(b.items)
	b.items = b.items[:0]
	b.started = time.Time{}
}
