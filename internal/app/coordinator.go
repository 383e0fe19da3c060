// Package service runs the playback coordinator: the single writer of display
// state. Visitor intents, timer callbacks and the catalog load all travel
// through one bounded inbox and are applied, one at a time, by a single
// worker goroutine. Readers see the last committed View.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kiosk/internal/adapters/mq/queue"
	"github.com/okian/kiosk/internal/adapters/mq/worker"
	"github.com/okian/kiosk/internal/domain/autoplay"
	"github.com/okian/kiosk/internal/domain/catalog"
	"github.com/okian/kiosk/internal/domain/idle"
	"github.com/okian/kiosk/internal/domain/playback"
	"github.com/okian/kiosk/pkg/clock"
	"github.com/okian/kiosk/pkg/logger"
	"github.com/okian/kiosk/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	defaultAutoplayPeriod = 7000 * time.Millisecond
	defaultIdleTimeout    = 14000 * time.Millisecond
	defaultInboxSize      = 256
	stopTimeout           = 5 * time.Second
)

// Intent outcome labels.
const (
	resultOK       = "ok"
	resultIgnored  = "ignored"
	resultRejected = "rejected"
)

type msgKind int

const (
	msgIntent msgKind = iota
	msgLoad
	msgFail
	msgPeriod
	msgSync
)

type message struct {
	kind    msgKind
	intent  playback.Intent
	catalog *catalog.Catalog
	err     error
	period  time.Duration
	queued  time.Time
	reply   chan result
}

type result struct {
	view View
	err  error
}

// Coordinator owns the playback state for the life of the process.
type Coordinator struct {
	mu      sync.RWMutex
	started bool
	stopped bool

	// Configuration
	autoplayPeriod time.Duration
	idleTimeout    time.Duration
	inboxSize      int
	clock          clock.Clock

	// Components
	inbox  *queue.InMemoryQueue[message]
	worker *worker.InMemoryWorker[message]
	idle   *idle.Timer
	ticker *autoplay.Ticker
	broker *Broker

	// Owned by the worker goroutine.
	phase   Phase
	machine *playback.Machine
	loadErr error
	period  time.Duration
	rev     uint64

	view atomic.Pointer[View]
	cat  atomic.Pointer[catalog.Catalog]

	intents    atomic.Uint64
	rejected   atomic.Uint64
	advances   atomic.Uint64
	staleTicks atomic.Uint64
	idles      atomic.Uint64
	activity   atomic.Uint64

	logger logger.Logger
}

// New constructs a coordinator in the loading phase. Nothing runs until Start.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		autoplayPeriod: defaultAutoplayPeriod,
		idleTimeout:    defaultIdleTimeout,
		inboxSize:      defaultInboxSize,
		clock:          clock.Real{},
		phase:          PhaseLoading,
		machine:        playback.NewMachine(nil),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.period = c.autoplayPeriod
	c.broker = NewBroker(metrics.RecordFrameDropped)
	initial := c.project()
	c.view.Store(&initial)
	return c
}

// Start builds the timers and the inbox and starts the loop. The idle
// countdown begins here.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	if c.stopped {
		return ErrStopped
	}
	if err := c.build(); err != nil {
		return err
	}

	go c.worker.Run(context.WithoutCancel(ctx))

	c.started = true
	metrics.UpdateAutoplayPeriod(c.period)
	c.logger.Info(ctx, "playback coordinator started",
		logger.Duration("autoplay_period", c.autoplayPeriod),
		logger.Duration("idle_timeout", c.idleTimeout),
		logger.Int("inbox_size", c.inboxSize),
	)
	return nil
}

func (c *Coordinator) build() error {
	if c.logger == nil {
		c.logger = logger.Get().Named("coordinator")
	}

	c.inbox = queue.NewInMemoryQueue[message](queue.WithCapacity(c.inboxSize))

	ticker, err := autoplay.New(c.autoplayPeriod, c.onAdvance, autoplay.WithClock(c.clock))
	if err != nil {
		return fmt.Errorf("autoplay ticker: %w", err)
	}
	c.ticker = ticker

	timer, err := idle.New(c.idleTimeout, c.onIdle, c.onActive, idle.WithClock(c.clock))
	if err != nil {
		ticker.Stop()
		return fmt.Errorf("idle timer: %w", err)
	}
	c.idle = timer

	c.worker = worker.NewInMemoryWorker[message](c.inbox,
		worker.HandlerFunc[message](c.handle),
		worker.WithName("coordinator"),
		worker.WithLogger(c.logger),
	)
	return nil
}

// Stop cancels both timers, closes the inbox and waits for the loop to
// drain it. No timer callback fires after Stop returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	ctx := context.Background()
	c.logger.Info(ctx, "stopping playback coordinator...")

	c.idle.Stop()
	c.ticker.Stop()
	_ = c.inbox.Close()

	select {
	case <-c.worker.Done():
	case <-time.After(stopTimeout):
		c.logger.Warn(ctx, "coordinator loop did not drain in time")
	}
	c.broker.Close()

	c.logger.Info(ctx, "playback coordinator stopped")
}

// Load installs the catalog. It is accepted once, while loading.
func (c *Coordinator) Load(ctx context.Context, cat *catalog.Catalog) error {
	_, err := c.roundTrip(ctx, message{kind: msgLoad, catalog: cat})
	return err
}

// Fail records that the catalog could not be loaded. The display stays up
// with nothing to show.
func (c *Coordinator) Fail(ctx context.Context, cause error) error {
	_, err := c.roundTrip(ctx, message{kind: msgFail, err: cause})
	return err
}

// SetAutoplayPeriod changes the period; a running schedule restarts.
func (c *Coordinator) SetAutoplayPeriod(ctx context.Context, d time.Duration) (View, error) {
	if d <= 0 {
		return c.Snapshot(), fmt.Errorf("%w: %s", autoplay.ErrInvalidPeriod, d)
	}
	return c.roundTrip(ctx, message{kind: msgPeriod, period: d})
}

// Sync waits until everything queued before it has been applied.
func (c *Coordinator) Sync(ctx context.Context) (View, error) {
	return c.roundTrip(ctx, message{kind: msgSync})
}

// Dispatch applies a visitor intent and returns the view it produced. The
// intent also counts as qualifying input for the idle timer. Activity
// intents only restart the idle countdown.
func (c *Coordinator) Dispatch(ctx context.Context, in playback.Intent) (View, error) {
	if !in.FromVisitor() {
		return c.Snapshot(), fmt.Errorf("%w: %q", playback.ErrUnknownIntent, in.Kind)
	}
	timer, err := c.timer()
	if err != nil {
		return c.Snapshot(), err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	if input, ok := in.QualifyingInput(); ok {
		if err := timer.Notify(input); err != nil {
			metrics.RecordIntent(string(in.Kind), resultRejected)
			return c.Snapshot(), err
		}
	}
	if in.Kind == playback.KindActivity {
		metrics.RecordIntent(string(in.Kind), resultOK)
		return c.Snapshot(), nil
	}

	return c.roundTrip(ctx, message{kind: msgIntent, intent: in})
}

// Snapshot returns the last committed view without touching the loop.
func (c *Coordinator) Snapshot() View {
	return *c.view.Load()
}

// Catalog returns the installed catalog, nil until loaded.
func (c *Coordinator) Catalog() *catalog.Catalog {
	return c.cat.Load()
}

// Subscribe returns a channel receiving every committed view as JSON.
func (c *Coordinator) Subscribe() chan []byte {
	return c.broker.Subscribe()
}

// Unsubscribe detaches and closes ch.
func (c *Coordinator) Unsubscribe(ch chan []byte) {
	c.broker.Unsubscribe(ch)
}

// GetStats returns coordinator statistics for monitoring.
func (c *Coordinator) GetStats() map[string]interface{} {
	c.mu.RLock()
	running := c.started && !c.stopped
	inbox := c.inbox
	c.mu.RUnlock()

	v := c.Snapshot()
	stats := map[string]interface{}{
		"started":            running,
		"phase":              v.Phase,
		"revision":           v.Revision,
		"mode":               v.Mode.String(),
		"active_index":       v.ActiveIndex,
		"total":              v.Total,
		"autoplay_enabled":   v.AutoplayEnabled,
		"autoplay_period_ms": v.AutoplayPeriodMs,
		"idle_timeout_ms":    v.IdleTimeoutMs,
		"intents":            c.intents.Load(),
		"rejected":           c.rejected.Load(),
		"autoplay_advances":  c.advances.Load(),
		"stale_ticks":        c.staleTicks.Load(),
		"idle_elapsed":       c.idles.Load(),
		"user_activity":      c.activity.Load(),
		"subscribers":        c.broker.Len(),
	}
	if inbox != nil {
		stats["inbox_length"] = inbox.Len(context.Background())
		stats["inbox_capacity"] = inbox.Cap()
	}
	return stats
}

func (c *Coordinator) timer() (*idle.Timer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started || c.stopped {
		return nil, ErrStopped
	}
	return c.idle, nil
}

func (c *Coordinator) roundTrip(ctx context.Context, msg message) (View, error) {
	c.mu.RLock()
	running := c.started && !c.stopped
	c.mu.RUnlock()
	if !running {
		return c.Snapshot(), ErrStopped
	}

	msg.reply = make(chan result, 1)
	msg.queued = c.clock.Now()
	if !c.inbox.Enqueue(ctx, msg) {
		switch {
		case c.inbox.IsClosed():
			return c.Snapshot(), ErrStopped
		case ctx.Err() != nil:
			return c.Snapshot(), ctx.Err()
		default:
			return c.Snapshot(), ErrInboxFull
		}
	}

	select {
	case r := <-msg.reply:
		return r.view, r.err
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	case <-c.worker.Done():
		select {
		case r := <-msg.reply:
			return r.view, r.err
		default:
			return c.Snapshot(), ErrStopped
		}
	}
}

// Timer callbacks. They run with their timer locked and only enqueue.

func (c *Coordinator) onIdle() {
	c.post(message{kind: msgIntent, intent: playback.Intent{ID: uuid.NewString(), Kind: playback.KindIdle}})
}

func (c *Coordinator) onAdvance(seq uint64) {
	c.post(message{kind: msgIntent, intent: playback.Intent{ID: uuid.NewString(), Kind: playback.KindTick, Seq: seq}})
}

func (c *Coordinator) onActive(in idle.Input) {
	c.activity.Add(1)
	metrics.RecordUserActivity(string(in))
}

func (c *Coordinator) post(msg message) {
	msg.queued = c.clock.Now()
	if !c.inbox.Enqueue(context.Background(), msg) {
		c.logger.Warn(context.Background(), "timer message dropped",
			logger.String("intent", string(msg.intent.Kind)),
		)
	}
}

// handle is the only place state changes.
func (c *Coordinator) handle(ctx context.Context, msg message) error {
	var err error
	switch msg.kind {
	case msgLoad:
		err = c.install(ctx, msg.catalog)
	case msgFail:
		err = c.fail(ctx, msg.err)
	case msgPeriod:
		err = c.ticker.SetPeriod(msg.period)
		if err == nil {
			c.period = msg.period
			metrics.UpdateAutoplayPeriod(msg.period)
			c.logger.Info(ctx, "autoplay period changed", logger.Duration("period", msg.period))
		}
	case msgIntent:
		err = c.apply(ctx, msg.intent)
	case msgSync:
	}

	c.ticker.SetEnabled(c.autoplayEnabled())
	view := c.publish(ctx)

	if msg.kind == msgIntent && msg.intent.Kind != playback.KindTick {
		metrics.RecordTransitionLatency(float64(c.clock.Now().Sub(msg.queued).Microseconds()) / 1000)
	}
	if msg.reply != nil {
		msg.reply <- result{view: view, err: err}
	}
	return err
}

func (c *Coordinator) install(ctx context.Context, cat *catalog.Catalog) error {
	if c.phase != PhaseLoading {
		return ErrAlreadyLoaded
	}
	c.phase = PhaseReady
	c.machine = playback.NewMachine(cat)
	c.cat.Store(cat)

	if cat.Empty() {
		c.logger.Warn(ctx, "catalog is empty, nothing to show")
		return nil
	}
	c.logger.Info(ctx, "catalog installed",
		logger.Int("events", cat.Len()),
		logger.Int("min_year", cat.MinYear()),
		logger.Int("max_year", cat.MaxYear()),
	)
	return nil
}

func (c *Coordinator) fail(ctx context.Context, cause error) error {
	if c.phase != PhaseLoading {
		return ErrAlreadyLoaded
	}
	c.phase = PhaseFailed
	c.loadErr = cause
	if c.loadErr == nil {
		c.loadErr = catalog.ErrFetch
	}
	c.logger.Error(ctx, "catalog unavailable, nothing to show", logger.Error(c.loadErr))
	return nil
}

func (c *Coordinator) apply(ctx context.Context, in playback.Intent) error {
	if !in.FromVisitor() && c.stopping() {
		c.logger.Debug(ctx, "timer message dropped during shutdown", logger.String("intent", string(in.Kind)))
		return nil
	}

	switch in.Kind {
	case playback.KindTick:
		if c.phase != PhaseReady || !c.ticker.Current(in.Seq) {
			c.staleTicks.Add(1)
			metrics.RecordStaleTick()
			return nil
		}
		if c.machine.AutoplayTick() {
			c.advances.Add(1)
			metrics.RecordAutoplayAdvance()
		}
		return nil

	case playback.KindIdle:
		c.idles.Add(1)
		metrics.RecordIdleElapsed()
		if c.machine.State().Mode != playback.ModeLoop {
			c.logger.Info(ctx, "visitor idle, returning to loop")
		}
		c.machine.IdleElapsed()
		return nil
	}

	c.intents.Add(1)
	var err error
	switch c.phase {
	case PhaseLoading:
		err = ErrNotReady
	case PhaseFailed:
		err = ErrEmptyCatalog
	default:
		before := c.machine.State().Revision
		err = c.machine.Apply(in)
		if err == nil && c.machine.State().Revision == before {
			metrics.RecordIntent(string(in.Kind), resultIgnored)
			return nil
		}
	}

	if err != nil {
		c.rejected.Add(1)
		metrics.RecordIntent(string(in.Kind), resultRejected)
		return fmt.Errorf("%s: %w", in.Kind, err)
	}
	metrics.RecordIntent(string(in.Kind), resultOK)
	return nil
}

// stopping reports whether Stop has begun. Timer messages still in the inbox
// are not applied after that.
func (c *Coordinator) stopping() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

func (c *Coordinator) autoplayEnabled() bool {
	return c.phase == PhaseReady && c.machine.AutoplayEnabled()
}

// project builds the view of the current state, without a revision.
func (c *Coordinator) project() View {
	st := c.machine.State()
	cat := c.machine.Catalog()
	v := View{
		Phase:            c.phase,
		Stage:            st.Stage(),
		Mode:             st.Mode,
		ActiveIndex:      st.ActiveIndex,
		Total:            cat.Len(),
		Detail:           st.Detail,
		AutoplayEnabled:  c.autoplayEnabled(),
		AutoplayPeriodMs: c.period.Milliseconds(),
		IdleTimeoutMs:    c.idleTimeout.Milliseconds(),
	}
	if ev, ok := cat.At(st.ActiveIndex); ok {
		v.Active = &ev
	}
	if c.loadErr != nil {
		v.Error = c.loadErr.Error()
	}
	return v
}

// publish commits the current view if anything changed and fans it out.
func (c *Coordinator) publish(ctx context.Context) View {
	v := c.project()
	if prev := c.view.Load(); prev != nil && v.sameAs(*prev) {
		return *prev
	}
	c.rev++
	v.Revision = c.rev
	c.view.Store(&v)

	metrics.UpdatePlayback(v.Mode == playback.ModeInteractive, v.ActiveIndex, v.Detail != nil, v.AutoplayEnabled)
	c.logger.Debug(ctx, "state committed",
		logger.Uint64("revision", v.Revision),
		logger.String("stage", string(v.Stage)),
		logger.Int("active_index", v.ActiveIndex),
		logger.Bool("autoplay", v.AutoplayEnabled),
	)

	frame, err := json.Marshal(v)
	if err != nil {
		metrics.RecordError("coordinator", "encode")
		c.logger.Error(ctx, "encode view", logger.Error(err))
		return v
	}
	c.broker.Publish(frame)
	return v
}
