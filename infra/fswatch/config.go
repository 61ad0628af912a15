package fswatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultDebounce is applied when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Config selects the directory tree to publish.
//
// Include and Exclude are doublestar patterns matched against paths relative
// to Root using forward slashes. An empty Include matches every file.
type Config struct {
	Root     string        `json:"root"`
	Include  []string      `json:"include"`
	Exclude  []string      `json:"exclude"`
	Debounce time.Duration `json:"debounce"`
	// SkipInitial disables the startup walk that publishes every matching file.
	SkipInitial bool `json:"skip_initial"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
}

// Validate checks the root and every pattern.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("fswatch root is required")
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q", p)
		}
	}
	return nil
}

// matcher decides which relative paths are published.
type matcher struct {
	include []string
	exclude []string
}

func (m matcher) excluded(rel string) bool {
	for _, p := range m.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (m matcher) match(rel string) bool {
	if m.excluded(rel) {
		return false
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
