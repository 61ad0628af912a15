package feed

import "errors"

var (
	// ErrNilSink is returned by New when no sink is provided.
	ErrNilSink = errors.New("feed: sink is required")
	// ErrNoLatencyUnit is returned by New when the latency unit is missing.
	ErrNoLatencyUnit = errors.New("feed: latency unit is required")
	// ErrInvalidBatchSize is returned by New for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("feed: max batch size must be positive")
	// ErrNegativeLatency is returned by New for a negative latency budget.
	ErrNegativeLatency = errors.New("feed: max latency must not be negative")
	// ErrNegativeCapacity is returned by New for a negative queue capacity.
	ErrNegativeCapacity = errors.New("feed: queue capacity must not be negative")

	// ErrSessionActive is returned by Run when another worker session of the
	// same dispatcher is still running.
	ErrSessionActive = errors.New("feed: a worker session is already running")
	// ErrSessionFinished is returned when a worker session is run twice.
	ErrSessionFinished = errors.New("feed: worker session already ran")
)
