// Package api exposes the playback coordinator over HTTP: state reads,
// visitor intents, a server-sent event stream and a WebSocket bridge for
// presentation surfaces.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/kiosk/internal/adapters/http/site"
	"github.com/okian/kiosk/internal/adapters/http/swagger"
	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/internal/domain/playback"
	"github.com/okian/kiosk/internal/domain/visual"
	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second
	pingInterval      = 30 * time.Second
)

// Coordinator is the slice of the playback coordinator the handlers need.
type Coordinator interface {
	Dispatch(ctx context.Context, in playback.Intent) (service.View, error)
	SetAutoplayPeriod(ctx context.Context, d time.Duration) (service.View, error)
	Snapshot() service.View
	Catalog() *catalog.Catalog
	Subscribe() chan []byte
	Unsubscribe(ch chan []byte)
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the kiosk.
type Server struct {
	srv             *http.Server
	coord           Coordinator
	visuals         *visual.Table
	displayDir      string
	pingInterval    time.Duration
	shutdownTimeout time.Duration
	logger          logger.Logger

	// quit ends long-lived streams so Shutdown does not wait on them.
	quit     chan struct{}
	quitOnce sync.Once
}

// NewServer builds the router and the underlying http.Server.
func NewServer(addr string, coord Coordinator, opts ...Option) *Server {
	s := &Server{
		coord:           coord,
		visuals:         visual.NewTable(visual.Builtin(), visual.Default),
		pingInterval:    pingInterval,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.Nop(),
		quit:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	s.routes(r)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) routes(r chi.Router) {
	swagger.Register(r, Document())

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.handleHealth)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(MetricsMiddleware(""))
		r.Get("/state", s.handleState)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/stream", s.handleStream)

		r.Post("/intents", s.handleIntent)
		r.Post("/select/{index}", s.handleSelect)
		r.Post("/prev", s.handleSimple(playback.KindPrev))
		r.Post("/next", s.handleSimple(playback.KindNext))
		r.Post("/detail", s.handleSimple(playback.KindOpenDetail))
		r.Delete("/detail", s.handleSimple(playback.KindCloseDetail))
		r.Post("/keys", s.handleKey)
		r.Post("/activity", s.handleActivity)
		r.Put("/autoplay", s.handleAutoplay)
	})

	if site.Register(r, s.displayDir) {
		s.logger.Info(context.Background(), "serving display bundle", logger.String("dir", s.displayDir))
	}
}

// Run listens on the configured address and serves until Shutdown.
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.logger.Info(context.Background(), "starting HTTP server", logger.String("addr", ln.Addr().String()))

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains open connections, bounded by the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeStreams()
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) closeStreams() {
	s.quitOnce.Do(func() { close(s.quit) })
}
