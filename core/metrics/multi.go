package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBatch forwards the batch to all sinks, returning the first error encountered.
func (m *MultiSink) RecordBatch(res BatchResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordBatch(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordEnqueue forwards queue admissions to sinks that count them.
func (m *MultiSink) RecordEnqueue(accepted bool) {
	for _, s := range m.Sinks {
		if qr, ok := s.(QueueRecorder); ok {
			qr.RecordEnqueue(accepted)
		}
	}
}

// RecordFeed forwards feed events when supported by the sink.
func (m *MultiSink) RecordFeed(ev FeedEvent) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(FeedRecorder); ok {
			if err := fr.RecordFeed(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
