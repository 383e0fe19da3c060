package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/domain/autoplay"
	"github.com/okian/kiosk/internal/domain/idle"
	"github.com/okian/kiosk/internal/domain/playback"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrInvalidIndex  = errors.New("index must be an integer")
	ErrStreaming     = errors.New("streaming not supported")
	ErrEmptyEnvelope = errors.New("message carries no intent, key or input")
)

// classify maps an error onto a status code and a short machine code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, playback.ErrIndexOutOfRange):
		return http.StatusBadRequest, "index_out_of_range"
	case errors.Is(err, playback.ErrUnknownIntent):
		return http.StatusBadRequest, "unknown_intent"
	case errors.Is(err, playback.ErrUnknownKey):
		return http.StatusBadRequest, "unknown_key"
	case errors.Is(err, idle.ErrUnknownInput):
		return http.StatusBadRequest, "unknown_input"
	case errors.Is(err, autoplay.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidIndex), errors.Is(err, ErrEmptyEnvelope):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrEmptyCatalog):
		return http.StatusConflict, "empty_catalog"
	case errors.Is(err, service.ErrNotReady):
		return http.StatusConflict, "not_ready"
	case errors.Is(err, service.ErrInboxFull):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, service.ErrStopped), errors.Is(err, idle.ErrStopped):
		return http.StatusServiceUnavailable, "stopped"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
