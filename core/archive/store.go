package archive

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Status of an archived feed.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Entry captures one feed and its outcome.
type Entry struct {
	FeedID     string    `json:"feed_id"`
	Timestamp  time.Time `json:"timestamp"`
	Datasource string    `json:"datasource"`
	FeedType   string    `json:"feed_type"`
	DocIDs     []string  `json:"doc_ids"`
	Attempts   int       `json:"attempts"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Query defines filters for retrieving entries. Zero values match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	Datasource string
	DocID      string
	Status     string
	Limit      int
}

func (q Query) matches(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.Datasource != "" && e.Datasource != q.Datasource {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.DocID != "" && !slices.Contains(e.DocIDs, q.DocID) {
		return false
	}
	return true
}

// Store persists Entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// Config selects and configures the archive backend.
type Config struct {
	// Backend selects the store type: "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
	// Compress gzips rotated files.
	Compress bool `json:"compress"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "feeds.db"
		default:
			c.Path = "feeds.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
	default:
		return fmt.Errorf("unknown archive backend %s", c.Backend)
	}
	if c.Backend != "none" && c.Path == "" {
		return fmt.Errorf("archive path is required")
	}
	return nil
}

// NewStore opens the store selected by cfg. The "none" backend returns a
// store that discards everything.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "none":
		return NopStore{}, nil
	default:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays, cfg.Compress)
	}
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Append(context.Context, Entry) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }
