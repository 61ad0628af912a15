package feed

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type dequeueResult int

const (
	dequeued dequeueResult = iota
	timedOut
	interrupted
)

// dropQueue is a bounded FIFO for many producers and one consumer. enqueue
// never blocks and drops the incoming item when the queue is full.
//
// With capacity 0 an item is accepted only when the consumer is blocked in
// dequeue at that instant; it is handed over through a single slot that does
// not count as queued.
type dropQueue[T any] struct {
	capacity int

	mu         sync.Mutex
	items      []T
	head       int
	waiting    bool
	handoff    T
	hasHandoff bool

	// wake holds at most one pending signal for the consumer.
	wake chan struct{}
}

func newDropQueue[T any](capacity int) *dropQueue[T] {
	return &dropQueue[T]{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

func (q *dropQueue[T]) lenLocked() int { return len(q.items) - q.head }

func (q *dropQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.lenLocked()
	if q.hasHandoff {
		n++
	}
	return n
}

// enqueue reports whether the item was accepted.
func (q *dropQueue[T]) enqueue(item T) bool {
	q.mu.Lock()
	accepted := false
	switch {
	case q.lenLocked() < q.capacity:
		q.items = append(q.items, item)
		accepted = true
	case q.capacity == 0 && q.waiting && !q.hasHandoff:
		q.handoff = item
		q.hasHandoff = true
		accepted = true
	}
	q.mu.Unlock()

	if accepted {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return accepted
}

func (q *dropQueue[T]) popLocked() (T, bool) {
	var zero T
	if q.hasHandoff {
		item := q.handoff
		q.handoff = zero
		q.hasHandoff = false
		return item, true
	}
	if q.lenLocked() == 0 {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// dequeue blocks until an item is available, the deadline passes on clk, or
// ctx is cancelled. Cancellation is checked before every wait. A zero
// deadline waits without a timeout.
func (q *dropQueue[T]) dequeue(ctx context.Context, clk clockwork.Clock, deadline time.Time) (T, dequeueResult) {
	var zero T
	for {
		if ctx.Err() != nil {
			return zero, interrupted
		}
		q.mu.Lock()
		if item, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return item, dequeued
		}
		var wait time.Duration
		if !deadline.IsZero() {
			wait = deadline.Sub(clk.Now())
			if wait <= 0 {
				q.mu.Unlock()
				return zero, timedOut
			}
		}
		q.waiting = true
		q.mu.Unlock()

		var timer clockwork.Timer
		var expired <-chan time.Time
		if wait > 0 {
			timer = clk.NewTimer(wait)
			expired = timer.Chan()
		}
		select {
		case <-q.wake:
		case <-expired:
		case <-ctx.Done():
		}
		if timer != nil {
			timer.Stop()
		}

		q.mu.Lock()
		q.waiting = false
		q.mu.Unlock()
	}
}

// drainAll removes and returns every pending item without blocking.
func (q *dropQueue[T]) drainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, q.lenLocked()+1)
	for {
		item, ok := q.popLocked()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}
