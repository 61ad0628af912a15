package metrics

import "github.com/kilianp07/docfeed/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, serves /metrics on a dedicated listener in
	// addition to the embedded server.
	PrometheusAddr string `json:"prometheus_addr"`
}
