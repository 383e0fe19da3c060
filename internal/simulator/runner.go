package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/pkg/logger"
)

// Observer and readiness timing.
const (
	readyPoll        = 250 * time.Millisecond
	observerWarmup   = 2 * time.Second
	scenarioObserver = "observer"
	scenarioCatalog  = "catalog"
)

// Run executes the configured scenarios against the kiosk at cfg.BaseURL.
// The returned error wraps ErrChecksFailed when any check failed.
func Run(ctx context.Context, cfg *Config, lg logger.Logger) (*Report, error) {
	for _, name := range cfg.Scenarios {
		if _, ok := scenarios[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
		}
	}

	rep := &Report{RunID: uuid.NewString(), StartTime: time.Now()}
	lg = lg.Named("simulator")
	lg.Info(ctx, "starting kiosk simulation",
		logger.String("run_id", rep.RunID),
		logger.String("base_url", cfg.BaseURL),
		logger.Any("scenarios", cfg.Scenarios),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := waitReady(ctx, client, cfg.Ready, lg); err != nil {
		return rep, err
	}

	cat, err := client.Catalog(ctx)
	if err != nil {
		return rep, fmt.Errorf("catalog: %w", err)
	}
	lg.Info(ctx, "catalog read",
		logger.Int("events", cat.Total),
		logger.Int("min_year", cat.MinYear),
		logger.Int("max_year", cat.MaxYear),
	)

	obsCtx, stopObserver := context.WithCancel(ctx)
	defer stopObserver()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Observe {
		warm := make(chan struct{})
		g.Go(func() error {
			observe(obsCtx, client, rep, warm, lg)
			return nil
		})
		select {
		case <-warm:
		case <-time.After(observerWarmup):
			lg.Warn(ctx, "observer not connected, continuing")
		}
	}

	g.Go(func() error {
		defer stopObserver()
		if cat.Total == 0 {
			checkEmpty(gctx, client, rep)
			return nil
		}
		for _, name := range cfg.Scenarios {
			lg.Info(gctx, "running scenario", logger.String("scenario", name))
			if err := scenarios[name](gctx, client, cfg, rep); err != nil {
				rep.Fail(name, "completed", err)
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
		}
		return nil
	})
	runErr := g.Wait()

	if cfg.Observe {
		rep.Expect(scenarioObserver, "frames received", rep.Frames() > 0, "no frames")
		rep.Expect(scenarioObserver, "revisions never go back", rep.Regressions() == 0,
			"%d regressions", rep.Regressions())
	}

	rep.EndTime = time.Now()
	rep.Log(ctx, lg)

	if runErr != nil {
		return rep, runErr
	}
	if n := rep.Failed(); n > 0 {
		return rep, fmt.Errorf("%w: %d", ErrChecksFailed, n)
	}
	return rep, nil
}

// waitReady polls /healthz until it answers 200. A catalog that failed to
// load will not recover, so that ends the wait early.
func waitReady(ctx context.Context, c *Client, limit time.Duration, lg logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()
	for {
		status, checks, err := c.Health(ctx)
		switch {
		case err == nil && status == http.StatusOK:
			lg.Info(ctx, "kiosk is healthy")
			return nil
		case err == nil && checks["catalog"].Status == "error":
			return fmt.Errorf("%w: catalog: %s", ErrNotReady, checks["catalog"].Detail)
		}

		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("status %d", status)
			}
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		case <-ticker.C:
		}
	}
}

// observe counts streamed views until ctx ends. warm is closed on the first
// frame.
func observe(ctx context.Context, c *Client, rep *Report, warm chan struct{}, lg logger.Logger) {
	first := true
	err := c.Stream(ctx, func(v service.View) {
		rep.frame(v.Revision)
		if first {
			first = false
			close(warm)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		lg.Warn(ctx, "observer stream ended", logger.Error(err))
	}
}

// checkEmpty verifies that an empty kiosk refuses navigation quietly.
func checkEmpty(ctx context.Context, c *Client, rep *Report) {
	_, err := c.Next(ctx)
	var se *StatusError
	rep.Expect(scenarioCatalog, "navigation on an empty catalog is refused",
		errors.As(err, &se) && se.Status == http.StatusConflict && se.Body.Code == "empty_catalog",
		"err=%v", err)

	v, err := c.State(ctx)
	if err != nil {
		rep.Fail(scenarioCatalog, "state readable", err)
		return
	}
	rep.Expect(scenarioCatalog, "nothing to show", v.Total == 0 && !v.AutoplayEnabled,
		"total=%d autoplay=%t", v.Total, v.AutoplayEnabled)
}
