// Package feed implements the asynchronous batching dispatcher that sits
// between producers discovering document identifiers and the synchronous
// sink pushing them to the search service.
//
// Producers call Enqueue from any goroutine; it never blocks and silently
// drops the newest item when the bounded queue is full. A single worker
// session, started with NewWorkerSession().Run(ctx), drains the queue into
// batches of at most MaxBatchSize items and flushes them when the batch is
// full, when the latency budget of its first item is spent, or when ctx is
// cancelled. On cancellation everything still queued or accumulated is
// flushed in one final best-effort batch before Run returns.
//
//	d, err := feed.New(feed.Config{
//		MaxBatchSize:  500,
//		MaxLatency:    2,
//		LatencyUnit:   time.Second,
//		QueueCapacity: 10000,
//	}, pusher, handler)
//	go d.NewWorkerSession().Run(ctx)
//	d.Enqueue(record)
package feed
