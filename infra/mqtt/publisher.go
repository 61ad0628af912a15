package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/docfeed/core/factory"
	coremon "github.com/kilianp07/docfeed/core/monitoring"
	"github.com/kilianp07/docfeed/core/pusher"
	"github.com/kilianp07/docfeed/infra/logger"
)

// ErrPublishTimeout is returned when the broker does not confirm a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Publisher is a pusher.Transport publishing feeds as JSON messages.
type Publisher struct {
	cli     pahoClient
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
	log     logger.Logger
}

var _ pusher.Transport = (*Publisher)(nil)

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt topic is required")
	}
	log := logger.New("mqtt_publisher")
	cli, err := connect(cfg, log, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		cli:     cli,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

func init() {
	_ = pusher.RegisterTransport("mqtt", func(conf map[string]any) (pusher.Transport, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}

// Send publishes f and waits for the broker confirmation, the publish
// timeout or ctx, whichever comes first.
func (p *Publisher) Send(ctx context.Context, f pusher.Feed) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	token := p.cli.Publish(p.topic, p.qos, p.retain, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		err = ErrPublishTimeout
	case <-token.Done():
		err = token.Error()
	}
	if err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "feed_id": f.ID})
		return err
	}
	p.log.Debugf("published feed %s to %s", f.ID, p.topic)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
