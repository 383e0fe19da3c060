package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kiosk/pkg/logger"
)

// Check is one verified expectation.
type Check struct {
	Scenario string
	Name     string
	Passed   bool
	Detail   string
}

// Report collects the checks of one run. Safe for concurrent use.
type Report struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	mu          sync.Mutex
	checks      []Check
	frames      int
	regressions int
	lastRev     uint64
}

// Expect records a check that passes when ok holds.
func (r *Report) Expect(scenario, name string, ok bool, format string, args ...any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Check{Scenario: scenario, Name: name, Passed: ok}
	if !ok {
		c.Detail = fmt.Sprintf(format, args...)
	}
	r.checks = append(r.checks, c)
	return ok
}

// Fail records a failed check carrying err.
func (r *Report) Fail(scenario, name string, err error) {
	r.Expect(scenario, name, false, "%v", err)
}

// Checks returns a copy of the recorded checks.
func (r *Report) Checks() []Check {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Check(nil), r.checks...)
}

// Failed counts failed checks.
func (r *Report) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.checks {
		if !c.Passed {
			n++
		}
	}
	return n
}

// Frames is the number of streamed views observed.
func (r *Report) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Regressions counts streamed views older than one seen before.
func (r *Report) Regressions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regressions
}

// frame records a streamed view. The first frame of a stream may repeat the
// revision of a commit racing with it, so only going backwards counts.
func (r *Report) frame(rev uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	if rev < r.lastRev {
		r.regressions++
		return
	}
	r.lastRev = rev
}

// Log writes the summary and every failed check.
func (r *Report) Log(ctx context.Context, lg logger.Logger) {
	checks := r.Checks()
	failed := r.Failed()
	for _, c := range checks {
		if !c.Passed {
			lg.Error(ctx, "check failed",
				logger.String("scenario", c.Scenario),
				logger.String("check", c.Name),
				logger.String("detail", c.Detail),
			)
		}
	}
	lg.Info(ctx, "final statistics",
		logger.String("run_id", r.RunID),
		logger.Int("checks", len(checks)),
		logger.Int("passed", len(checks)-failed),
		logger.Int("failed", failed),
		logger.Int("frames", r.Frames()),
		logger.Duration("duration", r.EndTime.Sub(r.StartTime)),
	)
}
