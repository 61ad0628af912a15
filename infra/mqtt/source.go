package mqtt

import (
	"context"
	"errors"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/infra/logger"
)

// Enqueuer receives records. feed.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(model.Record)
}

// Source subscribes to a topic and enqueues the records carried by every
// message.
type Source struct {
	cfg      Config
	enq      Enqueuer
	log      logger.Logger
	received atomic.Uint64
	invalid  atomic.Uint64
}

// NewSource validates cfg. The connection is opened by Run.
func NewSource(cfg Config, enq Enqueuer) (*Source, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SourceTopic == "" {
		return nil, errors.New("mqtt source_topic is required")
	}
	if enq == nil {
		return nil, errors.New("mqtt source needs an enqueuer")
	}
	return &Source{cfg: cfg, enq: enq, log: logger.New("mqtt_source")}, nil
}

// Run connects, subscribes on every (re)connection and blocks until ctx is
// cancelled.
func (s *Source) Run(ctx context.Context) error {
	cli, err := connect(s.cfg, s.log, func(c pahoClient) {
		if token := c.Subscribe(s.cfg.SourceTopic, s.cfg.QoS, s.onMessage); token.Wait() && token.Error() != nil {
			s.log.Errorf("subscribe error: %v", token.Error())
		}
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	cli.Unsubscribe(s.cfg.SourceTopic).WaitTimeout(s.cfg.Timeout)
	cli.Disconnect(250)
	return nil
}

func (s *Source) onMessage(_ paho.Client, msg paho.Message) {
	recs, err := model.ParseRecords(msg.Payload())
	if err != nil {
		s.invalid.Add(1)
		s.log.Warnf("discarding message on %s: %v", msg.Topic(), err)
		return
	}
	s.received.Add(uint64(len(recs)))
	for _, r := range recs {
		s.enq.Enqueue(r)
	}
}

// Received returns the number of records handed to the enqueuer.
func (s *Source) Received() uint64 { return s.received.Load() }

// Invalid returns the number of discarded messages.
func (s *Source) Invalid() uint64 { return s.invalid.Load() }
