package pusher

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/feed"
	"github.com/kilianp07/docfeed/core/logger"
	"github.com/kilianp07/docfeed/core/metrics"
	"github.com/kilianp07/docfeed/core/model"
)

// ErrNilTransport is returned by New when no transport is given.
var ErrNilTransport = errors.New("pusher: nil transport")

// Pusher implements feed.Sink for document records.
type Pusher struct {
	cfg       Config
	transport Transport
	archive   archive.Store
	metrics   metrics.FeedRecorder
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

var _ feed.Sink[model.Record] = (*Pusher)(nil)

// Option configures a Pusher.
type Option func(*Pusher)

// WithArchive records every feed outcome in s.
func WithArchive(s archive.Store) Option {
	return func(p *Pusher) {
		if s != nil {
			p.archive = s
		}
	}
}

// WithFeedRecorder records a FeedEvent for every feed.
func WithFeedRecorder(r metrics.FeedRecorder) Option {
	return func(p *Pusher) {
		if r != nil {
			p.metrics = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pusher) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a Pusher. cfg is completed with defaults before validation.
func New(cfg Config, t Transport, opts ...Option) (*Pusher, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pusher{
		cfg:       cfg,
		transport: t,
		archive:   archive.NopStore{},
		metrics:   metrics.NopSink{},
		log:       logger.NopLogger{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Push sends items as one or more feeds. It stops at the first feed that
// could not be delivered and returns its first record. The error is non-nil
// only when ctx was cancelled.
func (p *Pusher) Push(ctx context.Context, items iter.Seq[model.Record], h feed.ErrorHandler) (*model.Record, error) {
	if h == nil {
		h = feed.NeverRetry
	}
	buf := make([]model.Record, 0, p.cfg.MaxFeedSize)
	for rec := range items {
		buf = append(buf, rec)
		if len(buf) < p.cfg.MaxFeedSize {
			continue
		}
		if first, err := p.send(ctx, buf, h); first != nil || err != nil {
			return first, err
		}
		buf = make([]model.Record, 0, p.cfg.MaxFeedSize)
	}
	if len(buf) == 0 {
		return nil, nil
	}
	return p.send(ctx, buf, h)
}

func (p *Pusher) send(ctx context.Context, records []model.Record, h feed.ErrorHandler) (*model.Record, error) {
	f := Feed{
		ID:         p.newID(),
		Datasource: p.cfg.Datasource,
		FeedType:   p.cfg.FeedType,
		Records:    records,
		Created:    p.now(),
	}
	first := &records[0]
	start := p.now()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			p.finish(f, attempt-1, archive.StatusCancelled, err, start)
			return first, err
		}
		err := p.transport.Send(ctx, f)
		if err == nil {
			p.finish(f, attempt, archive.StatusSent, nil, start)
			return nil, nil
		}
		if ctx.Err() != nil {
			p.finish(f, attempt, archive.StatusCancelled, err, start)
			return first, ctx.Err()
		}
		p.log.Warnf("feed %s attempt %d failed: %v", f.ID, attempt, err)
		if h.HandleError(ctx, err, attempt) {
			continue
		}
		if ctx.Err() != nil {
			p.finish(f, attempt, archive.StatusCancelled, err, start)
			return first, ctx.Err()
		}
		p.finish(f, attempt, archive.StatusFailed, err, start)
		return first, nil
	}
}

func (p *Pusher) finish(f Feed, attempts int, status string, err error, start time.Time) {
	now := p.now()
	e := archive.Entry{
		FeedID:     f.ID,
		Timestamp:  now,
		Datasource: f.Datasource,
		FeedType:   string(f.FeedType),
		DocIDs:     f.DocIDs(),
		Attempts:   attempts,
		Status:     status,
	}
	if err != nil {
		e.Error = err.Error()
	}
	// The feed outcome is archived even when the batch context is gone.
	if aerr := p.archive.Append(context.Background(), e); aerr != nil {
		p.log.Errorf("archive feed %s: %v", f.ID, aerr)
	}
	ev := metrics.FeedEvent{
		FeedID:     f.ID,
		Datasource: f.Datasource,
		FeedType:   string(f.FeedType),
		Records:    len(f.Records),
		Attempts:   attempts,
		Status:     status,
		Latency:    now.Sub(start),
		Time:       now,
	}
	if merr := p.metrics.RecordFeed(ev); merr != nil {
		p.log.Errorf("record feed metric: %v", merr)
	}
	p.log.Debugw("feed finished", map[string]any{
		"feed_id":  f.ID,
		"records":  len(f.Records),
		"attempts": attempts,
		"status":   status,
	})
}
