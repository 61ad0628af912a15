package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/docfeed/config"
	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/core/stats"
	"github.com/kilianp07/docfeed/infra/logger"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	recs []model.Record
}

func (f *fakeDispatcher) Enqueue(r model.Record) {
	f.mu.Lock()
	f.recs = append(f.recs, r)
	f.mu.Unlock()
}
func (f *fakeDispatcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}
func (f *fakeDispatcher) Dropped() uint64 { return 0 }
func (f *fakeDispatcher) Running() bool   { return true }

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *fakeDispatcher, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	d := &fakeDispatcher{}
	s, err := NewWithRegistry(cfg, Deps{
		Dispatcher: d,
		Archive:    archive.NopStore{},
		Stats:      stats.NewCollector(8),
		Gatherer:   reg,
	}, reg)
	require.NoError(t, err)
	return s, d, reg
}

func TestRoutes(t *testing.T) {
	s, d, _ := newTestServer(t, config.ServerConfig{APIToken: "tok"})
	h := s.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/feed/docids", strings.NewReader("a\nb")))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(s.received))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.requests.WithLabelValues("docids", "202")))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/feed/archive", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/feed/stats", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue_length":2`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "docfeed_http_docids_received_total 2")
}

func TestAccessList(t *testing.T) {
	s, _, _ := newTestServer(t, config.ServerConfig{AllowedCIDRs: []string{"10.0.0.0/8"}})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req.RemoteAddr = "10.2.3.4:4000"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := NewWithRegistry(config.ServerConfig{}, Deps{}, prometheus.NewRegistry())
	assert.Error(t, err)
	_, err = NewWithRegistry(config.ServerConfig{AllowedCIDRs: []string{"nope"}}, Deps{Dispatcher: &fakeDispatcher{}}, prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestStartAndShutdown(t *testing.T) {
	s, _, _ := newTestServer(t, config.ServerConfig{Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server exited: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("server not ready")
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

type errLog struct {
	logger.NopLogger
	msgs []string
}

func (l *errLog) Errorf(format string, args ...any) {
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func TestRegisterCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	log := &errLog{}
	opts := prometheus.CounterOpts{Name: "docfeed_test_total", Help: "test"}

	first := registerCollector(reg, prometheus.NewCounter(opts), log)
	again := registerCollector(reg, prometheus.NewCounter(opts), log)
	assert.Same(t, first, again)
	assert.Empty(t, log.msgs)

	conflicting := prometheus.NewCounter(prometheus.CounterOpts{Name: "docfeed_test_total", Help: "other help"})
	got := registerCollector(reg, conflicting, log)
	assert.Same(t, conflicting, got)
	require.Len(t, log.msgs, 1)
	assert.Contains(t, log.msgs[0], "register collector")
}

func TestNewWithConflictingMetricStillServes(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docfeed_http_docids_received_total",
		Help: "taken",
	}))
	s, err := NewWithRegistry(config.ServerConfig{}, Deps{Dispatcher: &fakeDispatcher{}}, reg)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/feed/docids", strings.NewReader("a")))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}
