package metrics

import "github.com/kilianp07/docfeed/core/factory"

var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to configuration.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// NewMetricsSink builds the configured sinks. No configuration yields a
// NopSink; several are combined in a MultiSink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks.Create(cfgs[0])
	}
	out := make([]MetricsSink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return NewMultiSink(out...), nil
}
