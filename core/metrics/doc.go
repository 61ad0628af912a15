// Package metrics defines interfaces for collecting feed metrics. Sinks like
// PromSink and InfluxSink (package infra/metrics) record dispatcher batches,
// queue admissions and pushed feeds, and can be combined with NewMultiSink.
// NewMetricsSink returns a MultiSink automatically when multiple sinks are
// configured.
package metrics
