package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error metrics. An
// empty endpoint labels requests with the matched route pattern.
func MetricsMiddleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			name := endpoint
			if name == "" {
				name = routeName(r)
			}
			durationMs := float64(time.Since(start).Microseconds()) / 1000

			metrics.RecordHTTPRequest(name, r.Method, strconv.Itoa(status), durationMs)
			if status >= http.StatusBadRequest {
				metrics.RecordError("http", errorType(status))
			}
		})
	}
}

// routeName turns "/api/select/{index}" into "select_index".
func routeName(r *http.Request) string {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	pattern = strings.TrimPrefix(pattern, "/api")
	pattern = strings.NewReplacer("{", "", "}", "").Replace(pattern)
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return "root"
	}
	return strings.ReplaceAll(pattern, "/", "_")
}

// errorType returns a standardized error type based on HTTP status code.
func errorType(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

func requestLogger(lg logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				lg.Debug(r.Context(), "http request",
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path),
					logger.Int("status", ww.Status()),
					logger.Int("bytes", ww.BytesWritten()),
					logger.Int64("duration_ms", time.Since(start).Milliseconds()),
					logger.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
