package feed

import (
	"fmt"
	"time"
)

// Config holds the construction-time settings of a Dispatcher. The latency
// budget is MaxLatency expressed in LatencyUnit.
type Config struct {
	MaxBatchSize  int
	MaxLatency    int64
	LatencyUnit   time.Duration
	QueueCapacity int
}

// Validate reports the first configuration error.
func (c Config) Validate() error {
	if c.LatencyUnit <= 0 {
		return ErrNoLatencyUnit
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.MaxBatchSize)
	}
	if c.MaxLatency < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeLatency, c.MaxLatency)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeCapacity, c.QueueCapacity)
	}
	return nil
}

// Latency returns the latency budget as a duration.
func (c Config) Latency() time.Duration {
	return time.Duration(c.MaxLatency) * c.LatencyUnit
}
