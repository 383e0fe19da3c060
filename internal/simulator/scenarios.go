package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/kiosk/internal/app"
	"github.com/okian/kiosk/internal/domain/playback"
)

// pollInterval is how often the idle scenario re-reads the state.
const pollInterval = 100 * time.Millisecond

type scenario func(ctx context.Context, c *Client, cfg *Config, rep *Report) error

var scenarios = map[string]scenario{
	ScenarioRing:       ring,
	ScenarioSelect:     selectEvent,
	ScenarioOutOfRange: outOfRange,
	ScenarioKeys:       keys,
	ScenarioBurst:      burst,
	ScenarioIdle:       idleReturn,
}

// browsing reports whether v is visitor-driven with autoplay off.
func browsing(v service.View) bool {
	return v.Mode == playback.ModeInteractive && !v.AutoplayEnabled
}

// ring checks that next is a cyclic walk and prev undoes it.
func ring(ctx context.Context, c *Client, _ *Config, rep *Report) error {
	start, err := c.Next(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioRing, "next enters interactive", browsing(start),
		"mode=%s autoplay=%t", start.Mode, start.AutoplayEnabled)

	v := start
	for i := 0; i < start.Total; i++ {
		if v, err = c.Next(ctx); err != nil {
			return err
		}
	}
	rep.Expect(ScenarioRing, "total nexts return to start", v.ActiveIndex == start.ActiveIndex,
		"start=%d end=%d total=%d", start.ActiveIndex, v.ActiveIndex, start.Total)

	p, err := c.Prev(ctx)
	if err != nil {
		return err
	}
	want := (start.ActiveIndex - 1 + start.Total) % start.Total
	rep.Expect(ScenarioRing, "prev steps back with wrap", p.ActiveIndex == want,
		"want=%d got=%d", want, p.ActiveIndex)

	n, err := c.Next(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioRing, "next undoes prev", n.ActiveIndex == start.ActiveIndex,
		"want=%d got=%d", start.ActiveIndex, n.ActiveIndex)
	return nil
}

// selectEvent checks direct selection and the detail overlay round trip.
func selectEvent(ctx context.Context, c *Client, _ *Config, rep *Report) error {
	cur, err := c.State(ctx)
	if err != nil {
		return err
	}
	last := cur.Total - 1
	v, err := c.Select(ctx, last)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioSelect, "select moves to index", v.ActiveIndex == last,
		"want=%d got=%d", last, v.ActiveIndex)
	rep.Expect(ScenarioSelect, "select stops autoplay", browsing(v),
		"mode=%s autoplay=%t", v.Mode, v.AutoplayEnabled)

	open, err := c.OpenDetail(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioSelect, "detail shows the active event",
		open.Detail != nil && open.Active != nil && open.Detail.ID == open.Active.ID,
		"detail=%v active=%v", open.Detail, open.Active)

	closed, err := c.CloseDetail(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioSelect, "closing detail keeps browsing",
		closed.Detail == nil && browsing(closed) && closed.ActiveIndex == last,
		"stage=%s index=%d", closed.Stage, closed.ActiveIndex)
	return nil
}

// outOfRange checks that bad indexes are refused and change nothing.
func outOfRange(ctx context.Context, c *Client, _ *Config, rep *Report) error {
	before, err := c.Select(ctx, 0)
	if err != nil {
		return err
	}
	for _, index := range []int{before.Total, -1} {
		idx := index
		_, err := c.Intent(ctx, string(playback.KindSelect), &idx)
		var se *StatusError
		rep.Expect(ScenarioOutOfRange, fmt.Sprintf("select %d refused", idx),
			errors.As(err, &se) && se.Status == 400 && se.Body.Code == "index_out_of_range",
			"err=%v", err)
	}
	after, err := c.State(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioOutOfRange, "state unchanged", after.Revision == before.Revision,
		"before=%d after=%d", before.Revision, after.Revision)
	return nil
}

// keys checks keyboard bridging, with and without the overlay.
func keys(ctx context.Context, c *Client, _ *Config, rep *Report) error {
	start, err := c.Select(ctx, 0)
	if err != nil {
		return err
	}
	right, err := c.Key(ctx, "ArrowRight")
	if err != nil {
		return err
	}
	want := 1 % start.Total
	rep.Expect(ScenarioKeys, "ArrowRight is next", right.ActiveIndex == want,
		"want=%d got=%d", want, right.ActiveIndex)

	left, err := c.Key(ctx, "ArrowLeft")
	if err != nil {
		return err
	}
	rep.Expect(ScenarioKeys, "ArrowLeft is prev", left.ActiveIndex == 0, "got=%d", left.ActiveIndex)

	if _, err := c.OpenDetail(ctx); err != nil {
		return err
	}
	blocked, err := c.Key(ctx, "ArrowRight")
	if err != nil {
		return err
	}
	rep.Expect(ScenarioKeys, "arrows do nothing under the overlay",
		blocked.ActiveIndex == 0 && blocked.Stage == playback.StageDetail,
		"stage=%s index=%d", blocked.Stage, blocked.ActiveIndex)

	esc, err := c.Key(ctx, "Escape")
	if err != nil {
		return err
	}
	rep.Expect(ScenarioKeys, "Escape closes the overlay", esc.Stage == playback.StageBrowsing,
		"stage=%s", esc.Stage)

	_, err = c.Key(ctx, "F1")
	var se *StatusError
	rep.Expect(ScenarioKeys, "unknown key refused",
		errors.As(err, &se) && se.Body.Code == "unknown_key", "err=%v", err)
	return nil
}

// burst fires random navigation from several workers at once and checks the
// kiosk stays consistent.
func burst(ctx context.Context, c *Client, cfg *Config, rep *Report) error {
	cur, err := c.State(ctx)
	if err != nil {
		return err
	}
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := 0; i < cfg.Burst; i++ {
		g.Go(func() error {
			var err error
			switch rand.IntN(5) {
			case 0:
				_, err = c.Next(gctx)
			case 1:
				_, err = c.Prev(gctx)
			case 2:
				_, err = c.Select(gctx, rand.IntN(cur.Total))
			case 3:
				_, err = c.OpenDetail(gctx)
			default:
				_, err = c.CloseDetail(gctx)
			}
			if err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Expect(ScenarioBurst, "every intent accepted", failed.Load() == 0,
		"%d of %d failed", failed.Load(), cfg.Burst)

	after, err := c.State(ctx)
	if err != nil {
		return err
	}
	rep.Expect(ScenarioBurst, "index stays in range",
		after.ActiveIndex >= 0 && after.ActiveIndex < after.Total, "index=%d", after.ActiveIndex)
	rep.Expect(ScenarioBurst, "revision moved on", after.Revision > cur.Revision || cfg.Burst == 0,
		"before=%d after=%d", cur.Revision, after.Revision)
	return nil
}

// idleReturn opens the overlay, then keeps still until the kiosk falls back
// to its loop.
func idleReturn(ctx context.Context, c *Client, cfg *Config, rep *Report) error {
	open, err := c.OpenDetail(ctx)
	if err != nil {
		return err
	}
	touched := time.Now()
	timeout := time.Duration(open.IdleTimeoutMs) * time.Millisecond
	deadline := touched.Add(timeout + cfg.IdleSlack)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		v, err := c.State(ctx)
		if err != nil {
			return err
		}
		if v.Mode == playback.ModeLoop {
			elapsed := time.Since(touched)
			rep.Expect(ScenarioIdle, "not before the idle timeout", elapsed >= timeout*9/10,
				"returned after %s, timeout %s", elapsed, timeout)
			rep.Expect(ScenarioIdle, "loop resumes with autoplay", v.AutoplayEnabled && v.Detail == nil,
				"autoplay=%t detail=%v", v.AutoplayEnabled, v.Detail)
			return nil
		}
		if time.Now().After(deadline) {
			rep.Expect(ScenarioIdle, "returns to loop", false, "still %s after %s", v.Stage, time.Since(touched))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
