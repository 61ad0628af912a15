package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	coremon "github.com/kilianp07/docfeed/core/monitoring"
	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/core/pusher"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func testFeed() pusher.Feed {
	return pusher.Feed{ID: "f1", Datasource: "web", FeedType: pusher.FeedIncremental,
		Records: []model.Record{model.NewRecord("a")}}
}

func TestPublisherSendsJSON(t *testing.T) {
	mc := useMockClient(t)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", Topic: "docfeed/feeds", QoS: 1, Retain: true})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Send(context.Background(), testFeed()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(mc.published))
	}
	msg := mc.published[0]
	if msg.topic != "docfeed/feeds" || msg.qos != 1 || !msg.retain {
		t.Fatalf("unexpected publish %+v", msg)
	}
	var f pusher.Feed
	if err := json.Unmarshal(msg.payload, &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.ID != "f1" || len(f.Records) != 1 || f.Records[0].DocID != "a" {
		t.Fatalf("unexpected feed %+v", f)
	}
}

func TestPublisherErrorCaptured(t *testing.T) {
	mc := useMockClient(t)
	mc.publishErrs = []error{errors.New("net fail")}
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", Topic: "t"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Send(context.Background(), testFeed()); err == nil {
		t.Fatalf("expected error")
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["feed_id"] != "f1" || mon.tags["module"] != "mqtt" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestPublisherTimeoutAndCancel(t *testing.T) {
	mc := useMockClient(t)
	mc.publishToken = pendingToken{}
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", Topic: "t", Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Send(context.Background(), testFeed()); !errors.Is(err, ErrPublishTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	pub.timeout = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Send(ctx, testFeed()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestPublisherRequiresTopic(t *testing.T) {
	useMockClient(t)
	if _, err := NewPublisher(Config{Broker: "tcp://localhost:1883"}); err == nil {
		t.Fatalf("expected error without topic")
	}
}
