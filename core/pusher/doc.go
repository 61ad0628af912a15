// Package pusher turns dispatcher batches into feeds and delivers them to
// the search service through a Transport.
//
// A batch is split into feeds of at most MaxFeedSize records. Each feed is
// sent, retried according to the feed.ErrorHandler, archived and recorded as
// a metrics.FeedEvent. Transports are created from configuration through
// the Transports registry:
//
//	t, err := pusher.NewTransport(factory.ModuleConfig{Type: "log"})
//	p, err := pusher.New(cfg, t, pusher.WithArchive(store))
//	d, err := feed.New[model.Record](feedCfg, p, pusher.NewBackoffHandler(retryCfg))
package pusher
