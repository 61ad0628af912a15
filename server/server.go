// Package server exposes the HTTP endpoints of the connector: document id
// ingestion, feed archive and statistics queries, health and metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apifeed "github.com/kilianp07/docfeed/api/feed"
	"github.com/kilianp07/docfeed/config"
	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/stats"
	"github.com/kilianp07/docfeed/infra/logger"
	inframetrics "github.com/kilianp07/docfeed/infra/metrics"
	"github.com/kilianp07/docfeed/internal/netacl"
)

// Dispatcher is what the server needs from the feed dispatcher.
type Dispatcher interface {
	apifeed.Enqueuer
	apifeed.QueueInfo
}

// Deps groups the collaborators served over HTTP. Archive and Stats may be nil.
type Deps struct {
	Dispatcher Dispatcher
	Archive    archive.Store
	Stats      *stats.Collector
	Gatherer   prometheus.Gatherer
}

// Server is the embedded HTTP server.
type Server struct {
	addr     string
	token    string
	deps     Deps
	acl      *netacl.List
	log      logger.Logger
	srv      *http.Server
	ready    chan struct{}
	received prometheus.Counter
	requests *prometheus.CounterVec
}

// New creates a server registering its metrics on the default Prometheus registerer.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	return NewWithRegistry(cfg, deps, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a server and registers metrics on reg. If reg is
// nil the default registerer is used.
func NewWithRegistry(cfg config.ServerConfig, deps Deps, reg prometheus.Registerer) (*Server, error) {
	if deps.Dispatcher == nil {
		return nil, errors.New("server needs a dispatcher")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	acl, err := netacl.Parse(cfg.AllowedCIDRs)
	if err != nil {
		return nil, err
	}
	log := logger.New("http-server")

	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "docfeed_http_docids_received_total",
		Help: "Records received on POST /feed/docids",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docfeed_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	received = registerCollector(reg, received, log)
	requests = registerCollector(reg, requests, log)

	return &Server{
		addr:     cfg.Address,
		token:    cfg.APIToken,
		deps:     deps,
		acl:      acl,
		log:      log,
		ready:    make(chan struct{}),
		received: received,
		requests: requests,
	}, nil
}

// Handler returns the routed handler wrapped in the access list.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			s.log.Errorf("write health: %v", err)
		}
	})
	mux.Handle("/feed/docids", s.count("docids", apifeed.NewDocIDHandler(s.deps.Dispatcher, func(n int) {
		s.received.Add(float64(n))
	})))
	mux.Handle("/api/feed/stats", s.count("stats", apifeed.NewStatsHandler(s.deps.Dispatcher, s.deps.Stats)))
	if s.deps.Archive != nil {
		mux.Handle("/api/feed/archive", s.count("archive", apifeed.NewArchiveHandler(s.deps.Archive, s.token)))
	}
	mux.Handle("/metrics", inframetrics.Handler(s.deps.Gatherer))
	return s.acl.Middleware(mux)
}

// registerCollector registers c on reg, reusing an equal collector that is
// already registered. Other failures are logged and c is returned
// unregistered so the server still runs without that metric.
func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C, log logger.Logger) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if exist, ok := are.ExistingCollector.(C); ok {
			return exist
		}
		log.Errorf("existing collector has wrong type %T", are.ExistingCollector)
		return c
	}
	log.Errorf("register collector: %v", err)
	return c
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) count(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

// Addr returns the listening address once Ready is closed.
func (s *Server) Addr() string { return s.addr }

// Ready is closed once the server listens.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("HTTP server listening on %s", s.addr)
	close(s.ready)
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
