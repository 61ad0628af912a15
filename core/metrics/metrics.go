package metrics

import "time"

// BatchResult describes one flush performed by the dispatcher.
type BatchResult struct {
	Trigger  string
	Size     int
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// MetricsSink records dispatcher batches for observability purposes.
type MetricsSink interface {
	RecordBatch(res BatchResult) error
}

// QueueRecorder is implemented by sinks able to count queue admissions.
// It sits on the producer path and must not block.
type QueueRecorder interface {
	RecordEnqueue(accepted bool)
}

// FeedEvent captures the outcome of one feed sent to the search service.
type FeedEvent struct {
	FeedID     string
	Datasource string
	FeedType   string
	Records    int
	Attempts   int
	Status     string
	Latency    time.Duration
	Time       time.Time
}

// FeedRecorder records pushed feeds.
type FeedRecorder interface {
	RecordFeed(ev FeedEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordBatch(BatchResult) error { return nil }
func (NopSink) RecordEnqueue(bool)            {}
func (NopSink) RecordFeed(FeedEvent) error    { return nil }
