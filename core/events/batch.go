package events

import "time"

// BatchEvent is published by the dispatcher after every flush.
// Trigger is "count", "latency" or "forced".
type BatchEvent struct {
	Trigger  string
	Size     int
	Duration time.Duration
	Err      error
	Time     time.Time
}
