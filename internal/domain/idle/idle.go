// Package idle detects the absence of visitor input. A Timer counts down from
// construction and from every qualifying input; when the countdown elapses
// untouched it fires onIdle and immediately starts counting again.
package idle

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/kiosk/pkg/clock"
)

var (
	ErrInvalidTimeout = errors.New("idle timeout must be positive")
	ErrUnknownInput   = errors.New("unknown input kind")
	ErrStopped        = errors.New("idle timer stopped")
)

// Input is a kind of qualifying visitor input.
type Input string

const (
	InputPointerMove Input = "pointer_move"
	InputPointerDown Input = "pointer_down"
	InputTouchStart  Input = "touch_start"
	InputKeyDown     Input = "key_down"
	InputWheel       Input = "wheel"
)

// Inputs lists every qualifying input kind.
func Inputs() []Input {
	return []Input{InputPointerMove, InputPointerDown, InputTouchStart, InputKeyDown, InputWheel}
}

// ParseInput validates a raw input name.
func ParseInput(s string) (Input, error) {
	in := Input(strings.ToLower(strings.TrimSpace(s)))
	if !in.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInput, s)
	}
	return in, nil
}

// Valid reports whether in is one of the qualifying kinds.
func (in Input) Valid() bool {
	switch in {
	case InputPointerMove, InputPointerDown, InputTouchStart, InputKeyDown, InputWheel:
		return true
	default:
		return false
	}
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// Timer is a debounced activity detector. At most one countdown is pending
// at a time. Callbacks run with the timer locked and must not call back
// into it.
type Timer struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeout  time.Duration
	onIdle   func()
	onActive func(Input)

	pending clock.Timer
	gen     uint64
	stopped bool
}

// New builds a Timer and starts its first countdown. onActive may be nil.
func New(timeout time.Duration, onIdle func(), onActive func(Input), opts ...Option) (*Timer, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}
	if onIdle == nil {
		onIdle = func() {}
	}
	t := &Timer{
		clock:    clock.Real{},
		timeout:  timeout,
		onIdle:   onIdle,
		onActive: onActive,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.mu.Lock()
	t.arm()
	t.mu.Unlock()
	return t, nil
}

// Timeout returns the configured countdown length.
func (t *Timer) Timeout() time.Duration { return t.timeout }

// Notify reports one qualifying input: onActive runs and the countdown
// restarts from zero.
func (t *Timer) Notify(in Input) error {
	if !in.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInput, in)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}
	if t.onActive != nil {
		t.onActive(in)
	}
	t.arm()
	return nil
}

// Stop cancels the pending countdown. No callback runs after Stop returns.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// arm replaces any pending countdown. Caller holds mu.
func (t *Timer) arm() {
	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(t.timeout, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A countdown replaced while its callback was already on its way.
	if t.stopped || gen != t.gen {
		return
	}
	t.onIdle()
	t.arm()
}
