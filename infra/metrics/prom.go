package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/docfeed/core/metrics"
)

// PromSink records dispatcher and feed activity in Prometheus metrics.
type PromSink struct {
	enqueued    prometheus.Counter
	dropped     prometheus.Counter
	batches     *prometheus.CounterVec
	batchSize   prometheus.Histogram
	flush       *prometheus.HistogramVec
	feeds       *prometheus.CounterVec
	feedRecords prometheus.Counter
	feedLatency prometheus.Histogram
}

// NewPromSink registers metrics on the default Prometheus registerer.
// /metrics is served by the embedded server or StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.enqueued, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docfeed_queue_enqueued_total",
		Help: "Items accepted by the dispatcher queue",
	})); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docfeed_queue_dropped_total",
		Help: "Items dropped because the dispatcher queue was full",
	})); err != nil {
		return nil, err
	}
	if s.batches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docfeed_batches_total",
		Help: "Batches handed to the sink by trigger",
	}, []string{"trigger", "failed"})); err != nil {
		return nil, err
	}
	if s.batchSize, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docfeed_batch_size",
		Help:    "Number of items per batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.flush, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docfeed_flush_duration_seconds",
		Help:    "Time spent in the sink per batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})); err != nil {
		return nil, err
	}
	if s.feeds, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docfeed_feeds_total",
		Help: "Feeds sent to the search service by outcome",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.feedRecords, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docfeed_feed_records_total",
		Help: "Records contained in sent feeds",
	})); err != nil {
		return nil, err
	}
	if s.feedLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docfeed_feed_latency_seconds",
		Help:    "Time from first send attempt to feed outcome",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordEnqueue counts queue admissions.
func (s *PromSink) RecordEnqueue(accepted bool) {
	if accepted {
		s.enqueued.Inc()
		return
	}
	s.dropped.Inc()
}

// RecordBatch records one dispatcher flush.
func (s *PromSink) RecordBatch(res coremetrics.BatchResult) error {
	s.batches.WithLabelValues(res.Trigger, strconv.FormatBool(res.Failed)).Inc()
	s.batchSize.Observe(float64(res.Size))
	s.flush.WithLabelValues(res.Trigger).Observe(res.Duration.Seconds())
	return nil
}

// RecordFeed records one feed outcome.
func (s *PromSink) RecordFeed(ev coremetrics.FeedEvent) error {
	s.feeds.WithLabelValues(ev.Status).Inc()
	if ev.Status == "sent" {
		s.feedRecords.Add(float64(ev.Records))
	}
	s.feedLatency.Observe(ev.Latency.Seconds())
	return nil
}
