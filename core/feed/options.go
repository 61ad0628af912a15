package feed

import (
	"github.com/jonboulle/clockwork"

	"github.com/kilianp07/docfeed/core/events"
	"github.com/kilianp07/docfeed/core/logger"
	"github.com/kilianp07/docfeed/core/metrics"
)

// BatchPublisher receives an event after every flush. Publish must not
// block; eventbus.TypedBus satisfies it.
type BatchPublisher interface {
	Publish(events.BatchEvent)
}

type options struct {
	log     logger.Logger
	metrics metrics.MetricsSink
	bus     BatchPublisher
	clock   clockwork.Clock
}

// Option configures optional collaborators of a Dispatcher.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the metrics sink. Sinks implementing
// metrics.QueueRecorder also count accepted and dropped items.
func WithMetrics(s metrics.MetricsSink) Option {
	return func(o *options) { o.metrics = s }
}

// WithBus publishes a BatchEvent after every flush.
func WithBus(b BatchPublisher) Option {
	return func(o *options) { o.bus = b }
}

// WithClock replaces the clock driving the latency budget.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}
