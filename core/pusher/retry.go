package pusher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/kilianp07/docfeed/core/logger"
	"github.com/kilianp07/docfeed/core/monitoring"
)

// BackoffHandler retries failed sends with exponential backoff up to
// MaxAttempts. Every failure is logged and reported to the monitor.
type BackoffHandler struct {
	cfg     RetryConfig
	log     logger.Logger
	monitor monitoring.Monitor
	clock   clockwork.Clock

	mu sync.Mutex
	bo *backoff.ExponentialBackOff
}

// HandlerOption configures a BackoffHandler.
type HandlerOption func(*BackoffHandler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l logger.Logger) HandlerOption {
	return func(h *BackoffHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMonitor reports failures to m instead of the global monitor.
func WithMonitor(m monitoring.Monitor) HandlerOption {
	return func(h *BackoffHandler) {
		if m != nil {
			h.monitor = m
		}
	}
}

// WithHandlerClock replaces the clock used to sleep between attempts.
func WithHandlerClock(c clockwork.Clock) HandlerOption {
	return func(h *BackoffHandler) {
		if c != nil {
			h.clock = c
		}
	}
}

// NewBackoffHandler creates a handler from cfg completed with defaults.
func NewBackoffHandler(cfg RetryConfig, opts ...HandlerOption) *BackoffHandler {
	cfg.SetDefaults()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.Multiplier = cfg.Multiplier
	bo.MaxElapsedTime = 0
	h := &BackoffHandler{
		cfg:     cfg,
		log:     logger.NopLogger{},
		monitor: monitoring.Current(),
		clock:   clockwork.NewRealClock(),
		bo:      bo,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleError sleeps for the next backoff interval and returns true while
// attempts remain. It returns false without sleeping once MaxAttempts is
// reached, and false when ctx is cancelled during the sleep.
func (h *BackoffHandler) HandleError(ctx context.Context, err error, attempt int) bool {
	h.monitor.CaptureException(err, map[string]string{
		"component": "pusher",
		"attempt":   strconv.Itoa(attempt),
	})
	if attempt >= h.cfg.MaxAttempts {
		h.log.Errorf("giving up after %d attempts: %v", attempt, err)
		return false
	}
	wait := h.next(attempt)
	if wait == backoff.Stop {
		return false
	}
	h.log.Warnf("attempt %d failed, retrying in %s: %v", attempt, wait, err)
	t := h.clock.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}

// next resets the schedule on the first attempt of a feed.
func (h *BackoffHandler) next(attempt int) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if attempt <= 1 {
		h.bo.Reset()
	}
	return h.bo.NextBackOff()
}

// NoRetryHandler logs the failure and never retries.
type NoRetryHandler struct {
	Log logger.Logger
}

// HandleError always returns false.
func (h NoRetryHandler) HandleError(_ context.Context, err error, attempt int) bool {
	if h.Log != nil {
		h.Log.Errorf("send failed on attempt %d: %v", attempt, err)
	}
	return false
}
