package engine

import (
	"context"
	"errors"
	"time"

	"respawnbot/internal/store"
	"respawnbot/pkg/logx"
)

// run drives one timer through its lifecycle until the record vanishes,
// the store fails, or the engine shuts down. The store is the single
// source of truth: every wake-up re-confirms the record before any
// externally visible action, which is how a delete issued while the
// runner sleeps cancels it. Cancellation latency is therefore bounded by
// the remaining sleep, never better; that window is accepted as best
// effort.
func (e *Engine) run(ctx context.Context, t store.Timer, interval time.Duration) {
	defer e.wg.Done()
	log := e.log.With(
		logx.String("timer", t.ID),
		logx.String("boss", t.Boss),
		logx.Int64("chat", t.ChatID),
	)
	log.Debug("runner started", logx.Time("respawn", t.RespawnAt), logx.Bool("epoch", t.Epoch))

	for {
		wait := t.RespawnAt.Sub(e.now())
		if wait > e.cfg.LeadTime {
			if !sleepCtx(ctx, wait-e.cfg.LeadTime) {
				return
			}
			if !e.confirmOrStop(ctx, t.ID, log) {
				return
			}
			e.send(ctx, t.ChatID, textWarn(t.Boss, e.cfg.LeadTime))
			if !sleepCtx(ctx, e.cfg.LeadTime) {
				return
			}
		} else if wait > 0 {
			if !sleepCtx(ctx, wait) {
				return
			}
		}

		if !e.confirmOrStop(ctx, t.ID, log) {
			return
		}
		e.send(ctx, t.ChatID, textFired(t.Boss))

		if t.Epoch {
			// Single-shot: the record is done, remove it and stop. A
			// failed delete is reported but never blocks termination.
			sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
			err := e.store.DeleteTimer(sctx, t.UserID, t.ID)
			cancel()
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Error("self-delete failed", logx.Err(err))
				return
			}
			log.Info("epoch timer finished")
			return
		}

		// Persist the next instant before the settle window so the
		// stored record stays truthful across a restart; a process that
		// dies mid-settle resumes the real cycle, not a stale one.
		// Deletion during the window is observed on the next wake-up.
		next := t.RespawnAt.Add(interval + e.cfg.SettleOffset)
		sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
		err := e.store.UpdateRespawn(sctx, t.ID, next)
		cancel()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Info("timer deleted after fire")
			} else {
				log.Error("re-arm update failed", logx.Err(err))
			}
			return
		}
		t.RespawnAt = next

		if !sleepCtx(ctx, e.cfg.SettleOffset) {
			return
		}
		if !e.confirmOrStop(ctx, t.ID, log) {
			return
		}

		e.send(ctx, t.ChatID, textArmed(t.ID, t.Boss, e.conv.ToUser(t.RespawnAt), t.RespawnAt.Sub(e.now())))
		log.Info("timer re-armed", logx.Time("respawn", t.RespawnAt))
	}
}

// confirmOrStop reports whether the cycle may proceed. A missing record
// or a failing store both terminate the runner; only the latter is an
// error.
func (e *Engine) confirmOrStop(ctx context.Context, id string, log logx.Logger) bool {
	exists, err := e.confirm(ctx, id)
	if err != nil {
		log.Error("existence check failed", logx.Err(err))
		return false
	}
	if !exists {
		log.Info("timer was already deleted")
		return false
	}
	return true
}

// sleepCtx sleeps d, returning false when ctx is cancelled first.
// Non-positive d is a no-op sleep.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
