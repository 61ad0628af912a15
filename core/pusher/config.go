package pusher

import (
	"errors"
	"time"

	"github.com/kilianp07/docfeed/core/factory"
)

// DefaultMaxFeedSize bounds the number of records in a single feed.
const DefaultMaxFeedSize = 1000

// Config controls feed construction and delivery.
type Config struct {
	Datasource  string               `json:"datasource"`
	FeedType    FeedType             `json:"feed_type"`
	MaxFeedSize int                  `json:"max_feed_size"`
	Transport   factory.ModuleConfig `json:"transport"`
	Retry       RetryConfig          `json:"retry"`
}

// RetryConfig tunes BackoffHandler.
type RetryConfig struct {
	// MaxAttempts is the number of failed sends after which the feed is
	// abandoned. Zero or one disables retries.
	MaxAttempts     int           `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
	Multiplier      float64       `json:"multiplier"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.FeedType == "" {
		c.FeedType = FeedIncremental
	}
	if c.MaxFeedSize <= 0 {
		c.MaxFeedSize = DefaultMaxFeedSize
	}
	if c.Transport.Type == "" {
		c.Transport.Type = "log"
	}
	c.Retry.SetDefaults()
}

// SetDefaults applies default values.
func (c *RetryConfig) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Datasource == "" {
		return errors.New("pusher datasource is required")
	}
	if _, err := ParseFeedType(string(c.FeedType)); err != nil {
		return err
	}
	if c.MaxFeedSize <= 0 {
		return errors.New("max_feed_size must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New("retry max_attempts must not be negative")
	}
	return nil
}
