package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// maxPayloadBytes bounds how much of a source is read.
const maxPayloadBytes = 16 << 20

// Loader performs the single startup fetch of the catalog.
type Loader struct {
	source  Source
	timeout time.Duration
	logger  logger.Logger
}

// LoaderOption tunes a Loader.
type LoaderOption func(*Loader)

// WithTimeout bounds the fetch and decode.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(lg logger.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader builds a Loader over src.
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:  src,
		timeout: defaultHTTPTimeout,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches, decodes and sorts the catalog. It never retries; a failure is
// returned to the caller, which shows an empty display instead of crashing.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cat, err := l.load(ctx)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordCatalogLoad("error", 0, elapsed)
		metrics.RecordError("catalog", errorType(err))
		l.logger.Error(ctx, "catalog load failed",
			logger.String("source", l.source.String()),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.RecordCatalogLoad("ok", cat.Len(), elapsed)
	l.logger.Info(ctx, "catalog loaded",
		logger.String("source", l.source.String()),
		logger.Int("events", cat.Len()),
		logger.Int("minYear", cat.MinYear()),
		logger.Int("maxYear", cat.MaxYear()),
	)
	return cat, nil
}

func (l *Loader) load(ctx context.Context) (*Catalog, error) {
	rc, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			l.logger.Warn(ctx, "closing catalog source", logger.Error(cerr))
		}
	}()
	return Decode(io.LimitReader(rc, maxPayloadBytes))
}

// Decode parses a payload: either a JSON array of events or an object with an
// "events" array.
func Decode(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading: %w", ErrFetch, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var records []*record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	case '{':
		var wrapped struct {
			Events *[]*record `json:"events"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if wrapped.Events == nil {
			return nil, fmt.Errorf("%w: missing events array", ErrDecode)
		}
		records = *wrapped.Events
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrDecode)
	}

	events := make([]Event, 0, len(records))
	for i, rec := range records {
		ev, err := rec.event()
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrDecode, i, err)
		}
		events = append(events, ev)
	}

	cat, err := New(events)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return cat, nil
}

// record is an event as it appears on the wire. Pointers tell a missing
// field apart from a zero one.
type record struct {
	ID          *int    `json:"id"`
	Year        *int    `json:"year"`
	Sport       string  `json:"sport"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

func (r *record) event() (Event, error) {
	switch {
	case r == nil:
		return Event{}, errors.New("null entry")
	case r.ID == nil:
		return Event{}, errors.New("missing id")
	case r.Year == nil:
		return Event{}, errors.New("missing year")
	}
	return Event{
		ID:          *r.ID,
		Year:        *r.Year,
		Sport:       r.Sport,
		Title:       r.Title,
		Description: r.Description,
		Image:       r.Image,
	}, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "unknown"
	}
}
