// Package stats aggregates dispatcher batch events into summary statistics
// served by the HTTP API.
package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/docfeed/core/events"
)

// DefaultWindow is the number of recent batches kept for the summaries.
const DefaultWindow = 1024

// Summary describes a sample of observations.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	Batches    uint64            `json:"batches"`
	Items      uint64            `json:"items"`
	Failed     uint64            `json:"failed"`
	ByTrigger  map[string]uint64 `json:"by_trigger"`
	Size       Summary           `json:"batch_size"`
	DurationMS Summary           `json:"flush_duration_ms"`
	LastFlush  time.Time         `json:"last_flush,omitempty"`
}

// Collector keeps running totals and a bounded window of recent batches.
type Collector struct {
	mu        sync.Mutex
	window    int
	sizes     []float64
	durations []float64
	next      int
	batches   uint64
	items     uint64
	failed    uint64
	byTrigger map[string]uint64
	last      time.Time
}

// NewCollector creates a collector keeping the last window batches.
func NewCollector(window int) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{
		window:    window,
		sizes:     make([]float64, 0, window),
		durations: make([]float64, 0, window),
		byTrigger: make(map[string]uint64),
	}
}

// Observe records one batch.
func (c *Collector) Observe(ev events.BatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.items += uint64(ev.Size)
	if ev.Err != nil {
		c.failed++
	}
	c.byTrigger[ev.Trigger]++
	if ev.Time.After(c.last) {
		c.last = ev.Time
	}
	size := float64(ev.Size)
	dur := float64(ev.Duration) / float64(time.Millisecond)
	if len(c.sizes) < c.window {
		c.sizes = append(c.sizes, size)
		c.durations = append(c.durations, dur)
		return
	}
	c.sizes[c.next] = size
	c.durations[c.next] = dur
	c.next = (c.next + 1) % c.window
}

// Run consumes events until ctx is cancelled or the channel is closed.
func (c *Collector) Run(ctx context.Context, sub <-chan events.BatchEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			c.Observe(ev)
		}
	}
}

// Snapshot computes the current summaries.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	sizes := append([]float64(nil), c.sizes...)
	durations := append([]float64(nil), c.durations...)
	snap := Snapshot{
		Batches:   c.batches,
		Items:     c.items,
		Failed:    c.failed,
		ByTrigger: make(map[string]uint64, len(c.byTrigger)),
		LastFlush: c.last,
	}
	for k, v := range c.byTrigger {
		snap.ByTrigger[k] = v
	}
	c.mu.Unlock()

	snap.Size = summarize(sizes)
	snap.DurationMS = summarize(durations)
	return snap
}

// summarize sorts x in place.
func summarize(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	sort.Float64s(x)
	s := Summary{
		Count: len(x),
		Min:   x[0],
		Max:   x[len(x)-1],
		P50:   stat.Quantile(0.5, stat.Empirical, x, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, x, nil),
	}
	if len(x) == 1 {
		s.Mean = x[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	return s
}
