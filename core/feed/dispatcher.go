package feed

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kilianp07/docfeed/core/events"
	"github.com/kilianp07/docfeed/core/logger"
	"github.com/kilianp07/docfeed/core/metrics"
)

// Dispatcher buffers items from many producers and forwards them to a Sink
// in batches from a single worker session at a time.
type Dispatcher[T any] struct {
	cfg     Config
	latency time.Duration
	sink    Sink[T]
	handler ErrorHandler
	queue   *dropQueue[T]

	log      logger.Logger
	metrics  metrics.MetricsSink
	queueRec metrics.QueueRecorder
	bus      BatchPublisher
	clock    clockwork.Clock

	active  atomic.Bool
	dropped atomic.Uint64
}

// New validates cfg and creates a Dispatcher. A nil handler means the sink
// never retries.
func New[T any](cfg Config, sink Sink[T], handler ErrorHandler, opts ...Option) (*Dispatcher[T], error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		handler = NeverRetry
	}
	o := options{log: logger.NopLogger{}, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Dispatcher[T]{
		cfg:     cfg,
		latency: cfg.Latency(),
		sink:    sink,
		handler: handler,
		queue:   newDropQueue[T](cfg.QueueCapacity),
		log:     o.log,
		metrics: o.metrics,
		bus:     o.bus,
		clock:   o.clock,
	}
	if qr, ok := o.metrics.(metrics.QueueRecorder); ok {
		d.queueRec = qr
	}
	return d, nil
}

// Config returns the configuration the dispatcher was built with.
func (d *Dispatcher[T]) Config() Config { return d.cfg }

// Enqueue hands an item to the dispatcher. It never blocks; when the queue
// is full the item is dropped.
func (d *Dispatcher[T]) Enqueue(item T) {
	accepted := d.queue.enqueue(item)
	if !accepted {
		d.dropped.Add(1)
	}
	if d.queueRec != nil {
		d.queueRec.RecordEnqueue(accepted)
	}
}

// Len returns the number of items waiting in the queue.
func (d *Dispatcher[T]) Len() int { return d.queue.len() }

// Dropped returns how many items were rejected because the queue was full.
func (d *Dispatcher[T]) Dropped() uint64 { return d.dropped.Load() }

// Running reports whether a worker session is active.
func (d *Dispatcher[T]) Running() bool { return d.active.Load() }

// NewWorkerSession returns a unit of work running the dispatch loop once.
func (d *Dispatcher[T]) NewWorkerSession() *WorkerSession[T] {
	return &WorkerSession[T]{d: d}
}

// Run is shorthand for NewWorkerSession().Run(ctx).
func (d *Dispatcher[T]) Run(ctx context.Context) error {
	return d.NewWorkerSession().Run(ctx)
}

// WorkerSession is one execution of the dispatch loop.
type WorkerSession[T any] struct {
	d   *Dispatcher[T]
	ran atomic.Bool
}

// Run drains the queue until ctx is cancelled, then flushes everything still
// pending as one final batch and returns nil. Cancellation is the normal way
// to end a session and is not reported as an error.
func (s *WorkerSession[T]) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrSessionFinished
	}
	d := s.d
	if !d.active.CompareAndSwap(false, true) {
		return ErrSessionActive
	}
	defer d.active.Store(false)

	d.log.Debugf("worker session started (batch=%d latency=%s capacity=%d)",
		d.cfg.MaxBatchSize, d.latency, d.cfg.QueueCapacity)
	d.loop(ctx)
	d.log.Debugf("worker session terminated")
	return nil
}

func (d *Dispatcher[T]) loop(ctx context.Context) {
	acc := newBatch[T](d.cfg.MaxBatchSize)
	for {
		if ctx.Err() != nil {
			d.finalFlush(ctx, acc)
			return
		}
		deadline := acc.deadline(d.clock.Now(), d.latency)
		item, res := d.queue.dequeue(ctx, d.clock, deadline)
		switch res {
		case dequeued:
			acc.add(item, d.clock.Now())
			if acc.full() && !d.flush(ctx, acc, TriggerCount) {
				return
			}
		case timedOut:
			if !acc.empty() && !d.flush(ctx, acc, TriggerLatency) {
				return
			}
		case interrupted:
			d.finalFlush(ctx, acc)
			return
		}
	}
}

// finalFlush appends whatever is still queued to acc and pushes it as one
// batch. The sink gets a context detached from the cancellation that ended
// the session.
func (d *Dispatcher[T]) finalFlush(ctx context.Context, acc *batch[T]) {
	now := d.clock.Now()
	for _, item := range d.queue.drainAll() {
		acc.add(item, now)
	}
	if acc.empty() {
		return
	}
	d.log.Infof("flushing %d pending items before shutdown", acc.len())
	d.flush(context.WithoutCancel(ctx), acc, TriggerForced)
}

// flush hands acc to the sink and resets it. It returns false when the sink
// call was cancelled mid-flight; the rest of that batch is not resent.
func (d *Dispatcher[T]) flush(ctx context.Context, acc *batch[T], trigger Trigger) bool {
	size := acc.len()
	start := d.clock.Now()
	first, err := d.sink.Push(ctx, slices.Values(acc.items), d.handler)
	elapsed := d.clock.Since(start)
	acc.reset()

	cancelled := err != nil && ctx.Err() != nil
	switch {
	case cancelled:
		d.log.Warnf("sink call cancelled during %s flush of %d items: %v", trigger, size, err)
	case err != nil:
		d.log.Errorf("sink failed on %s flush of %d items: %v", trigger, size, err)
	case first != nil:
		d.log.Debugw("sink did not accept whole batch", map[string]any{
			"trigger": trigger.String(),
			"size":    size,
		})
	default:
		d.log.Debugw("batch flushed", map[string]any{
			"trigger":  trigger.String(),
			"size":     size,
			"duration": elapsed.String(),
		})
	}

	if d.metrics != nil {
		res := metrics.BatchResult{
			Trigger:  trigger.String(),
			Size:     size,
			Duration: elapsed,
			Failed:   err != nil || first != nil,
			Time:     start,
		}
		if merr := d.metrics.RecordBatch(res); merr != nil {
			d.log.Warnf("record batch metrics: %v", merr)
		}
	}
	if d.bus != nil {
		d.bus.Publish(events.BatchEvent{
			Trigger:  trigger.String(),
			Size:     size,
			Duration: elapsed,
			Err:      err,
			Time:     start,
		})
	}
	return !cancelled
}
