package feed

// Trigger tells why a batch was flushed.
type Trigger int

const (
	// TriggerCount fires when the batch reaches MaxBatchSize.
	TriggerCount Trigger = iota
	// TriggerLatency fires when the latency budget of the batch is spent.
	TriggerLatency
	// TriggerForced is the final flush performed on cancellation.
	TriggerForced
)

func (t Trigger) String() string {
	switch t {
	case TriggerCount:
		return "count"
	case TriggerLatency:
		return "latency"
	case TriggerForced:
		return "forced"
	default:
		return "unknown"
	}
}
