package service

import (
	"time"

	"github.com/okian/kiosk/pkg/clock"
	"github.com/okian/kiosk/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithAutoplayPeriod sets the time between automatic advances.
func WithAutoplayPeriod(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.autoplayPeriod = d
		}
	}
}

// WithIdleTimeout sets the inactivity that forces loop mode.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithInboxSize sets the capacity of the coordinator inbox.
func WithInboxSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.inboxSize = size
		}
	}
}

// WithClock drives both timers from c instead of the system clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets a custom logger for the coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}
