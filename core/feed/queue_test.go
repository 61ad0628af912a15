package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestDropQueue_DropNewest(t *testing.T) {
	q := newDropQueue[string](3)
	for _, s := range []string{"1", "2", "3", "4"} {
		q.enqueue(s)
	}
	if q.len() != 3 {
		t.Fatalf("expected 3 queued got %d", q.len())
	}
	got := q.drainAll()
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("drain %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain %v want %v", got, want)
		}
	}
	if q.len() != 0 {
		t.Fatalf("queue not empty after drain")
	}
}

func TestDropQueue_EnqueueReportsAdmission(t *testing.T) {
	q := newDropQueue[int](1)
	if !q.enqueue(1) {
		t.Fatal("first item should be accepted")
	}
	if q.enqueue(2) {
		t.Fatal("second item should be dropped")
	}
}

func TestDropQueue_FIFOAcrossCompaction(t *testing.T) {
	q := newDropQueue[int](1000)
	clk := clockwork.NewRealClock()
	next := 0
	for round := 0; round < 5; round++ {
		for i := 0; i < 150; i++ {
			q.enqueue(round*150 + i)
		}
		for i := 0; i < 100; i++ {
			v, res := q.dequeue(context.Background(), clk, clk.Now().Add(time.Second))
			if res != dequeued || v != next {
				t.Fatalf("dequeue got %d (%v) want %d", v, res, next)
			}
			next++
		}
	}
	for _, v := range q.drainAll() {
		if v != next {
			t.Fatalf("drain got %d want %d", v, next)
		}
		next++
	}
	if next != 750 {
		t.Fatalf("expected 750 items got %d", next)
	}
}

func TestDropQueue_DequeueTimesOut(t *testing.T) {
	q := newDropQueue[int](1)
	clk := clockwork.NewRealClock()
	start := time.Now()
	_, res := q.dequeue(context.Background(), clk, clk.Now().Add(20*time.Millisecond))
	if res != timedOut {
		t.Fatalf("expected timeout got %v", res)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("returned before deadline")
	}
}

func TestDropQueue_DequeueInterrupted(t *testing.T) {
	q := newDropQueue[int](1)
	clk := clockwork.NewRealClock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan dequeueResult, 1)
	go func() {
		_, res := q.dequeue(ctx, clk, clk.Now().Add(time.Hour))
		done <- res
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case res := <-done:
		if res != interrupted {
			t.Fatalf("expected interrupted got %v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue not released by cancellation")
	}
}

func TestDropQueue_ZeroCapacityHandoff(t *testing.T) {
	q := newDropQueue[int](0)
	if q.enqueue(1) {
		t.Fatal("enqueue without a waiting consumer must drop")
	}
	clk := clockwork.NewRealClock()
	got := make(chan int, 1)
	go func() {
		v, res := q.dequeue(context.Background(), clk, clk.Now().Add(5*time.Second))
		if res == dequeued {
			got <- v
		}
		close(got)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		q.mu.Lock()
		waiting := q.waiting
		q.mu.Unlock()
		if waiting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("consumer never started waiting")
		}
		time.Sleep(time.Millisecond)
	}
	if !q.enqueue(2) {
		t.Fatal("hand-off to waiting consumer should be accepted")
	}
	if q.enqueue(3) {
		t.Fatal("second hand-off must drop")
	}
	if v := <-got; v != 2 {
		t.Fatalf("expected 2 got %d", v)
	}
}

func TestDropQueue_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const producers, perProducer = 8, 500
	q := newDropQueue[[2]int](producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.enqueue([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	items := q.drainAll()
	if len(items) != producers*perProducer {
		t.Fatalf("expected %d items got %d", producers*perProducer, len(items))
	}
	for _, it := range items {
		if it[1] != last[it[0]]+1 {
			t.Fatalf("producer %d out of order: %d after %d", it[0], it[1], last[it[0]])
		}
		last[it[0]] = it[1]
	}
}
