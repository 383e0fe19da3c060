package catalog

import "errors"

// Sentinel errors for catalog loading. Callers classify with errors.Is.
var (
	ErrFetch             = errors.New("catalog fetch failed")
	ErrDecode            = errors.New("catalog payload malformed")
	ErrDuplicateID       = errors.New("duplicate event id")
	ErrUnsupportedSource = errors.New("unsupported catalog source")
)
