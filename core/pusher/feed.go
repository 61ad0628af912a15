package pusher

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/docfeed/core/model"
)

// FeedType tells the search service how to apply a feed.
type FeedType string

const (
	FeedIncremental    FeedType = "incremental"
	FeedFull           FeedType = "full"
	FeedMetadataAndURL FeedType = "metadata-and-url"
)

// ParseFeedType validates s. An empty string selects FeedIncremental.
func ParseFeedType(s string) (FeedType, error) {
	switch FeedType(s) {
	case "":
		return FeedIncremental, nil
	case FeedIncremental, FeedFull, FeedMetadataAndURL:
		return FeedType(s), nil
	}
	return "", fmt.Errorf("unknown feed type %q", s)
}

// Feed is one unit of delivery to the search service.
type Feed struct {
	ID         string         `json:"id"`
	Datasource string         `json:"datasource"`
	FeedType   FeedType       `json:"feed_type"`
	Records    []model.Record `json:"records"`
	Created    time.Time      `json:"created"`
}

// DocIDs lists the ids of the records in the feed.
func (f Feed) DocIDs() []string {
	ids := make([]string, len(f.Records))
	for i, r := range f.Records {
		ids[i] = string(r.DocID)
	}
	return ids
}

// Transport delivers a feed. Send must honour ctx cancellation.
type Transport interface {
	Send(ctx context.Context, f Feed) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, f Feed) error

// Send calls fn.
func (fn TransportFunc) Send(ctx context.Context, f Feed) error { return fn(ctx, f) }
