package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/docfeed/config"
	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/events"
	"github.com/kilianp07/docfeed/core/feed"
	coremetrics "github.com/kilianp07/docfeed/core/metrics"
	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/core/monitoring"
	"github.com/kilianp07/docfeed/core/pusher"
	"github.com/kilianp07/docfeed/core/stats"
	"github.com/kilianp07/docfeed/infra/feedhttp"
	"github.com/kilianp07/docfeed/infra/fswatch"
	"github.com/kilianp07/docfeed/infra/logger"
	inframetrics "github.com/kilianp07/docfeed/infra/metrics"
	inframon "github.com/kilianp07/docfeed/infra/monitoring"
	"github.com/kilianp07/docfeed/infra/mqtt"
	"github.com/kilianp07/docfeed/internal/eventbus"
	"github.com/kilianp07/docfeed/server"
)

// Service wires the dispatcher to its producers and to the pusher.
type Service struct {
	Dispatcher *feed.Dispatcher[model.Record]
	Pusher     *pusher.Pusher
	Archive    archive.Store
	Stats      *stats.Collector
	Server     *server.Server

	cfg       *config.Config
	log       logger.Logger
	handler   *pusher.BackoffHandler
	transport pusher.Transport
	sink      coremetrics.MetricsSink
	bus       *eventbus.TypedBus[events.BatchEvent]
	mqttSrc   *mqtt.Source
	fsSrc     *fswatch.Watcher
}

// New creates a Service from the configuration. Nothing is started before Run.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	transport, err := newTransport(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	s := &Service{
		Archive:   store,
		Stats:     stats.NewCollector(stats.DefaultWindow),
		cfg:       cfg,
		log:       log,
		transport: transport,
		sink:      sink,
		bus:       eventbus.NewTyped[events.BatchEvent](),
	}
	if err := s.build(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build() error {
	cfg := s.cfg
	popts := []pusher.Option{pusher.WithArchive(s.Archive), pusher.WithLogger(logger.New("pusher"))}
	if fr, ok := s.sink.(coremetrics.FeedRecorder); ok {
		popts = append(popts, pusher.WithFeedRecorder(fr))
	}
	p, err := pusher.New(cfg.Pusher, s.transport, popts...)
	if err != nil {
		return fmt.Errorf("pusher: %w", err)
	}
	s.Pusher = p
	s.handler = pusher.NewBackoffHandler(cfg.Pusher.Retry, pusher.WithHandlerLogger(logger.New("retry")))

	d, err := feed.New[model.Record](cfg.Feed.ToFeed(), p, s.handler,
		feed.WithLogger(logger.New("dispatcher")),
		feed.WithMetrics(s.sink),
		feed.WithBus(s.bus),
	)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	s.Dispatcher = d

	if cfg.Source.MQTT {
		if s.mqttSrc, err = mqtt.NewSource(cfg.MQTT, d); err != nil {
			return fmt.Errorf("mqtt source: %w", err)
		}
	}
	if cfg.Source.FS.Root != "" {
		if s.fsSrc, err = fswatch.New(cfg.Source.FS, d); err != nil {
			return fmt.Errorf("fs source: %w", err)
		}
	}

	var archiveDeps archive.Store
	if cfg.Archive.Backend != "none" {
		archiveDeps = s.Archive
	}
	s.Server, err = server.New(cfg.Server, server.Deps{
		Dispatcher: d,
		Archive:    archiveDeps,
		Stats:      s.Stats,
	})
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newTransport builds the configured transport. The http and mqtt types
// without an inline conf are built from the search and mqtt sections.
func newTransport(cfg *config.Config) (pusher.Transport, error) {
	mc := cfg.Pusher.Transport
	if len(mc.Conf) == 0 {
		switch mc.Type {
		case "http":
			return feedhttp.New(cfg.Transport())
		case "mqtt":
			return mqtt.NewPublisher(cfg.MQTT)
		}
	}
	return pusher.NewTransport(mc)
}

// Run starts the dispatcher, the producers and the HTTP server, and blocks
// until ctx is cancelled or one of them fails. Records still queued are
// pushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	g.Go(guarded(func() error { return s.Dispatcher.Run(gctx) }))
	g.Go(guarded(func() error {
		s.Stats.Run(gctx, sub)
		return nil
	}))
	g.Go(guarded(func() error { return s.Server.Start(gctx) }))
	if s.mqttSrc != nil {
		g.Go(guarded(func() error { return s.mqttSrc.Run(gctx) }))
	}
	if s.fsSrc != nil {
		g.Go(guarded(func() error { return s.fsSrc.Run(gctx) }))
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(guarded(func() error { return inframetrics.StartPromServer(gctx, addr) }))
	}
	s.log.Infof("docfeed started (datasource=%s feed_type=%s)", s.cfg.Pusher.Datasource, s.cfg.Pusher.FeedType)
	err := g.Wait()
	s.log.Infof("docfeed stopped")
	return err
}

func guarded(fn func() error) func() error {
	return func() error {
		defer monitoring.Recover()
		return fn()
	}
}

// ErrAbandoned is returned by Push when a feed was given up after retries.
var ErrAbandoned = errors.New("feed abandoned")

// Push sends recs directly through the pusher, bypassing the queue.
func (s *Service) Push(ctx context.Context, recs []model.Record) error {
	failed, err := s.Pusher.Push(ctx, slices.Values(recs), s.handler)
	if err != nil {
		return err
	}
	if failed != nil {
		return fmt.Errorf("%w: feed starting at %s", ErrAbandoned, failed.DocID)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.transport.(interface{ Close() }); ok {
		c.Close()
	}
	closeSinks(s.sink)
	if s.bus != nil {
		s.bus.Close()
	}
	if s.Archive != nil {
		errs = append(errs, s.Archive.Close())
	}
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func closeSinks(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, s := range v.Sinks {
			closeSinks(s)
		}
	case interface{ Close() }:
		v.Close()
	}
}
