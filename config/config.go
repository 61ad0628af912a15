package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/docfeed/auth"
	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/feed"
	"github.com/kilianp07/docfeed/core/metrics"
	"github.com/kilianp07/docfeed/core/pusher"
	"github.com/kilianp07/docfeed/infra/feedhttp"
	"github.com/kilianp07/docfeed/infra/fswatch"
	"github.com/kilianp07/docfeed/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings.
// Nested keys are separated by a double underscore, e.g.
// DOCFEED_PUSHER__DATASOURCE.
const EnvPrefix = "DOCFEED_"

type Config struct {
	Feed    FeedConfig     `json:"feed"`
	Pusher  pusher.Config  `json:"pusher"`
	Search  SearchConfig   `json:"search"`
	Auth    auth.Conf      `json:"auth"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Source  SourceConfig   `json:"source"`
	Archive archive.Config `json:"archive"`
	Metrics metrics.Config `json:"metrics"`
	Server  ServerConfig   `json:"server"`
	Sentry  SentryConfig   `json:"sentry"`
}

// Load reads a YAML or JSON file and applies environment overrides. An empty
// path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration holding the defaults of sections whose
// zero values are legal. Load decodes over it, so only keys present in the
// file or environment replace them.
func Default() *Config {
	return &Config{Feed: DefaultFeedConfig()}
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills the sections whose unset fields are zero. The feed
// section is defaulted by Default instead.
func (c *Config) SetDefaults() {
	if c.Pusher.Transport.Type == "" && c.Search.URL != "" {
		c.Pusher.Transport.Type = "http"
	}
	c.Pusher.SetDefaults()
	c.Search.SetDefaults()
	c.Source.FS.SetDefaults()
	c.Archive.SetDefaults()
	c.Server.SetDefaults()
}

// Validate reports the first invalid section.
func (c Config) Validate() error {
	if err := c.Feed.ToFeed().Validate(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	if err := c.Pusher.Validate(); err != nil {
		return fmt.Errorf("pusher: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if c.Source.FS.Root != "" {
		if err := c.Source.FS.Validate(); err != nil {
			return fmt.Errorf("source.fs: %w", err)
		}
	}
	if c.Source.MQTT && c.MQTT.SourceTopic == "" {
		return errors.New("source.mqtt requires mqtt.source_topic")
	}
	return nil
}

// FeedConfig tunes the batching dispatcher.
type FeedConfig struct {
	MaxBatchSize int   `json:"max_batch_size"`
	MaxLatency   int64 `json:"max_latency"`
	// LatencyUnit is one of ms, s or m.
	LatencyUnit   string `json:"latency_unit"`
	QueueCapacity int    `json:"queue_capacity"`
}

// DefaultFeedConfig returns the dispatcher defaults. Zero capacity (hand-off)
// and zero latency are legal settings.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		MaxBatchSize:  100,
		MaxLatency:    5,
		LatencyUnit:   "s",
		QueueCapacity: 10000,
	}
}

// ToFeed converts the section to a dispatcher configuration. An unknown unit
// yields a zero LatencyUnit, which feed.Config.Validate rejects.
func (c FeedConfig) ToFeed() feed.Config {
	var unit time.Duration
	switch strings.ToLower(c.LatencyUnit) {
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	}
	return feed.Config{
		MaxBatchSize:  c.MaxBatchSize,
		MaxLatency:    c.MaxLatency,
		LatencyUnit:   unit,
		QueueCapacity: c.QueueCapacity,
	}
}

// SearchConfig points the http transport at the search appliance.
type SearchConfig struct {
	URL         string        `json:"url"`
	Timeout     time.Duration `json:"timeout"`
	DocIDPrefix string        `json:"docid_prefix"`
}

func (c *SearchConfig) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Transport returns the feedhttp settings built from the search and auth
// sections.
func (c Config) Transport() feedhttp.Config {
	return feedhttp.Config{
		URL:         c.Search.URL,
		Timeout:     c.Search.Timeout,
		DocIDPrefix: c.Search.DocIDPrefix,
		Auth:        c.Auth,
	}
}

// SourceConfig enables record producers besides the HTTP endpoint.
type SourceConfig struct {
	MQTT bool           `json:"mqtt"`
	FS   fswatch.Config `json:"fs"`
}

// ServerConfig configures the embedded HTTP server.
type ServerConfig struct {
	Address string `json:"address"`
	// AllowedCIDRs restricts clients. An empty list allows every address.
	AllowedCIDRs []string `json:"allowed_cidrs"`
	// APIToken protects the archive endpoint with a bearer token when set.
	APIToken string `json:"api_token"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
