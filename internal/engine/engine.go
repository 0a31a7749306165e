// Package engine owns the timer lifecycle: one goroutine per active
// timer drives it through warn/fire/re-arm stages, re-confirming the
// record against the store at every wake-up so an out-of-band delete
// cancels the unit at its next suspension boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"respawnbot/internal/notifier"
	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/pkg/logx"
)

// ErrStorage is the generic persistence failure surfaced to callers;
// the underlying cause stays in the logs.
var ErrStorage = errors.New("storage problem")

// ErrAlreadyExpired rejects creating a timer whose respawn instant is
// already in the past.
var ErrAlreadyExpired = errors.New("respawn already happened")

// Directory is the boss reference lookup the engine depends on.
// internal/bosses provides the production table.
type Directory interface {
	Canonical(name string) (string, error)
	Interval(name string, epoch bool) (time.Duration, error)
	All() []string
}

type Config struct {
	// LeadTime is how long before the respawn instant the warning
	// notification goes out.
	LeadTime time.Duration
	// SettleOffset is the grace window after a recurring fire, added on
	// top of the next interval; it absorbs the time a group needs to
	// actually re-kill the boss.
	SettleOffset time.Duration
	// StoreTimeout bounds every store call made from a runner, so a hung
	// store cannot silently starve a timer forever.
	StoreTimeout time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (c *Config) withDefaults() {
	if c.LeadTime <= 0 {
		c.LeadTime = 3 * time.Minute
	}
	if c.SettleOffset <= 0 {
		c.SettleOffset = time.Minute
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type Engine struct {
	cfg   Config
	store store.TimerStore
	dir   Directory
	sink  notifier.Sink
	conv  timeutil.Converter
	log   logx.Logger

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

func New(cfg Config, ts store.TimerStore, dir Directory, sink notifier.Sink, conv timeutil.Converter, log logx.Logger) *Engine {
	cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		cfg:   cfg,
		store: ts,
		dir:   dir,
		sink:  sink,
		conv:  conv,
		log:   log,
	}
}

// Start installs the root context under which all runner goroutines
// live. Must be called before timers are created or resumed.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.started = true
}

// Stop cancels every runner and waits for them to drain, bounded by ctx.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	e.started = false
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) now() time.Time {
	return e.cfg.Now().In(e.conv.System())
}

func (e *Engine) spawn(t store.Timer, interval time.Duration) {
	e.mu.Lock()
	ctx := e.runCtx
	e.mu.Unlock()
	if ctx == nil {
		// Not started; runners still work, they just outlive nothing.
		ctx = context.Background()
	}
	e.wg.Add(1)
	go e.run(ctx, t, interval)
}

// confirm re-checks whether the timer still exists in the store. Store
// calls from runners are bounded so a hung store fails fast instead of
// starving the timer.
func (e *Engine) confirm(ctx context.Context, id string) (bool, error) {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()
	return e.store.TimerExists(sctx, id)
}

func (e *Engine) send(ctx context.Context, chatID int64, text string) {
	// Delivery is best effort; a failed send must not stall the cycle.
	_ = e.sink.Send(ctx, chatID, text)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
