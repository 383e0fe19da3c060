// Package autoplay provides the resettable periodic ticker that advances the
// display while it loops on its own.
package autoplay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kiosk/pkg/clock"
)

var ErrInvalidPeriod = errors.New("autoplay period must be positive")

// Option configures a Ticker.
type Option func(*Ticker)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(t *Ticker) {
		if c != nil {
			t.clock = c
		}
	}
}

// Ticker calls onAdvance once per period while enabled. It starts disabled.
//
// Each schedule (every enable, and every period change while enabled) gets
// a fresh sequence number that is passed to onAdvance. A consumer that
// defers the work can ask Current(seq) before acting, so a tick that was in
// flight across a disable is dropped.
type Ticker struct {
	mu        sync.Mutex
	clock     clock.Clock
	period    time.Duration
	onAdvance func(seq uint64)

	enabled bool
	stopped bool
	seq     uint64
	pending clock.Timer
}

// New builds a disabled ticker.
func New(period time.Duration, onAdvance func(seq uint64), opts ...Option) (*Ticker, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if onAdvance == nil {
		onAdvance = func(uint64) {}
	}
	t := &Ticker{
		clock:     clock.Real{},
		period:    period,
		onAdvance: onAdvance,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SetEnabled turns the schedule on or off. Enabling an enabled ticker keeps
// its current schedule. Re-enabling after a disable starts a full period.
func (t *Ticker) SetEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || on == t.enabled {
		return
	}
	t.enabled = on
	if on {
		t.schedule()
		return
	}
	t.cancel()
}

// Enabled reports whether the ticker is scheduled.
func (t *Ticker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetPeriod changes the period. A running schedule restarts with it.
func (t *Ticker) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = d
	if t.enabled && !t.stopped {
		t.schedule()
	}
	return nil
}

// Period returns the current period.
func (t *Ticker) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Current reports whether seq belongs to the live schedule.
func (t *Ticker) Current(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped && seq == t.seq
}

// Stop disables the ticker for good. No callback runs after Stop returns.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.enabled = false
	t.cancel()
}

// schedule starts a new sequence. Caller holds mu.
func (t *Ticker) schedule() {
	if t.pending != nil {
		t.pending.Stop()
	}
	t.seq++
	t.arm(t.seq)
}

func (t *Ticker) arm(seq uint64) {
	t.pending = t.clock.AfterFunc(t.period, func() { t.fire(seq) })
}

// cancel drops the pending callback and invalidates the sequence. Caller
// holds mu.
func (t *Ticker) cancel() {
	t.seq++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Ticker) fire(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.stopped || seq != t.seq {
		return
	}
	t.onAdvance(seq)
	t.arm(seq)
}
