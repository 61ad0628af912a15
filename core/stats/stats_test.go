package stats

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/docfeed/core/events"
	"github.com/kilianp07/docfeed/internal/eventbus"
)

func TestCollectorSummary(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	for i := 1; i <= 4; i++ {
		c.Observe(events.BatchEvent{Trigger: "count", Size: i * 10, Duration: time.Duration(i) * time.Millisecond, Time: now})
	}
	c.Observe(events.BatchEvent{Trigger: "latency", Size: 50, Err: errors.New("x"), Duration: 5 * time.Millisecond, Time: now.Add(time.Second)})

	s := c.Snapshot()
	assert.Equal(t, uint64(5), s.Batches)
	assert.Equal(t, uint64(150), s.Items)
	assert.Equal(t, uint64(1), s.Failed)
	assert.Equal(t, uint64(4), s.ByTrigger["count"])
	assert.Equal(t, now.Add(time.Second), s.LastFlush)
	assert.Equal(t, 5, s.Size.Count)
	assert.InDelta(t, 30.0, s.Size.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(250), s.Size.StdDev, 1e-9)
	assert.Equal(t, 30.0, s.Size.P50)
	assert.Equal(t, 50.0, s.Size.P95)
	assert.Equal(t, 10.0, s.Size.Min)
	assert.Equal(t, 5.0, s.DurationMS.Max)
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(2)
	for _, size := range []int{1, 100, 200} {
		c.Observe(events.BatchEvent{Size: size})
	}
	s := c.Snapshot()
	assert.Equal(t, uint64(3), s.Batches)
	assert.Equal(t, 2, s.Size.Count)
	assert.Equal(t, 100.0, s.Size.Min)
}

func TestCollectorSingleAndEmpty(t *testing.T) {
	c := NewCollector(0)
	assert.Equal(t, Summary{}, c.Snapshot().Size)
	c.Observe(events.BatchEvent{Size: 7})
	s := c.Snapshot().Size
	assert.Equal(t, 7.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestCollectorRunFromBus(t *testing.T) {
	bus := eventbus.NewTyped[events.BatchEvent]()
	c := NewCollector(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() { c.Run(ctx, sub); close(done) }()

	bus.Publish(events.BatchEvent{Trigger: "forced", Size: 2})
	require.Eventually(t, func() bool { return c.Snapshot().Batches == 1 }, time.Second, 5*time.Millisecond)
	bus.Close()
	<-done
}
