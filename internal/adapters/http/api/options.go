package api

import (
	"time"

	"github.com/okian/kiosk/internal/domain/visual"
	"github.com/okian/kiosk/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.Named("http")
		}
	}
}

// WithVisuals sets the sport table used by the catalog projection.
func WithVisuals(t *visual.Table) Option {
	return func(s *Server) {
		if t != nil {
			s.visuals = t
		}
	}
}

// WithDisplayDir serves the presentation bundle from dir at /.
func WithDisplayDir(dir string) Option {
	return func(s *Server) {
		s.displayDir = dir
	}
}

// WithPingInterval sets the keep-alive interval of event streams.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for open requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}
