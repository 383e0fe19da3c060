package simulator

import (
	"errors"
	"fmt"

	"github.com/okian/kiosk/internal/adapters/http/api"
)

// Sentinel errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrNotReady         = errors.New("kiosk not ready")
	ErrChecksFailed     = errors.New("checks failed")
	ErrUnknownScenario  = errors.New("unknown scenario")
)

// StatusError carries the decoded error body of a non-2xx response.
type StatusError struct {
	Status int
	Body   api.ErrorResponse
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s: %s", ErrUnexpectedStatus, e.Status, e.Body.Code, e.Body.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }
