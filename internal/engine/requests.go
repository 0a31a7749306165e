package engine

import (
	"context"
	"errors"
	"time"

	"respawnbot/internal/respawn"
	"respawnbot/internal/store"
	"respawnbot/pkg/logx"
)

// CreateRequest is one user-reported kill (or epoch re-arm).
type CreateRequest struct {
	UserID int64
	ChatID int64
	Boss   string
	// KillClock is the reported kill time as "HH:MM" in the user
	// timezone; empty means "just now".
	KillClock string
	// Epoch selects the post-reset interval variant and a single-shot
	// lifecycle.
	Epoch bool
}

// CreateTimer validates the request, persists the timer and spawns its
// runner. Typed rejections: bosses.ErrUnknownBoss, timeutil.ErrBadClock,
// ErrAlreadyExpired, ErrStorage.
func (e *Engine) CreateTimer(ctx context.Context, req CreateRequest) (store.Timer, error) {
	boss, err := e.dir.Canonical(req.Boss)
	if err != nil {
		return store.Timer{}, err
	}
	interval, err := e.dir.Interval(boss, req.Epoch)
	if err != nil {
		return store.Timer{}, err
	}

	now := e.now()
	kill := now
	if req.KillClock != "" {
		kill, err = e.conv.CombineClock(now, req.KillClock)
		if err != nil {
			return store.Timer{}, err
		}
	}

	at := respawn.Compute(kill, now, interval)
	if at.Before(now) {
		return store.Timer{}, ErrAlreadyExpired
	}

	t, err := e.store.CreateTimer(ctx, store.Timer{
		ChatID:    req.ChatID,
		UserID:    req.UserID,
		Boss:      boss,
		RespawnAt: at,
		Epoch:     req.Epoch,
	})
	if err != nil {
		return store.Timer{}, storageErr(err)
	}
	e.log.Info("timer created",
		logx.String("timer", t.ID),
		logx.String("boss", boss),
		logx.Int64("chat", t.ChatID),
		logx.Int64("user", t.UserID),
		logx.Time("respawn", t.RespawnAt),
		logx.Bool("epoch", t.Epoch),
	)

	// Epoch batches get one summary from the caller instead of one ack
	// per boss.
	if !req.Epoch {
		e.send(ctx, t.ChatID, textArmed(t.ID, t.Boss, e.conv.ToUser(t.RespawnAt), t.RespawnAt.Sub(now)))
	}

	e.spawn(t, interval)
	return t, nil
}

// DeleteTimer removes a timer on behalf of a user. Typed rejections:
// store.ErrNotOwned, store.ErrNotFound, ErrStorage.
func (e *Engine) DeleteTimer(ctx context.Context, userID int64, timerID string) error {
	err := e.store.DeleteTimer(ctx, userID, timerID)
	switch {
	case err == nil:
		e.log.Info("timer deleted", logx.String("timer", timerID), logx.Int64("user", userID))
		return nil
	case isReason(err):
		return err
	default:
		return storageErr(err)
	}
}

// DeleteAllTimers clears every timer in a chat and returns how many were
// removed. The sleeping runners notice on their next wake-up.
func (e *Engine) DeleteAllTimers(ctx context.Context, chatID int64) (int64, error) {
	n, err := e.store.DeleteAllInChat(ctx, chatID)
	if err != nil {
		return 0, storageErr(err)
	}
	if n > 0 {
		e.log.Info("chat timers cleared", logx.Int64("chat", chatID), logx.Int64("count", n))
	}
	return n, nil
}

// Snapshot is one timer as shown in listings.
type Snapshot struct {
	ID        string
	Boss      string
	RespawnAt time.Time
	Remaining time.Duration
}

// ListTimers returns the chat's timers soonest-first. ownerID filters to
// one user's timers when non-zero; limit <= 0 means all.
func (e *Engine) ListTimers(ctx context.Context, chatID, ownerID int64, limit int) ([]Snapshot, error) {
	var (
		timers []store.Timer
		err    error
	)
	if ownerID != 0 {
		timers, err = e.store.ListByOwner(ctx, chatID, ownerID, limit)
	} else {
		timers, err = e.store.ListByChat(ctx, chatID, limit)
	}
	if err != nil {
		return nil, storageErr(err)
	}

	now := e.now()
	res := make([]Snapshot, 0, len(timers))
	for _, t := range timers {
		res = append(res, Snapshot{
			ID:        t.ID,
			Boss:      t.Boss,
			RespawnAt: t.RespawnAt,
			Remaining: t.RespawnAt.Sub(now),
		})
	}
	return res, nil
}

// StartAllForUser arms one single-shot epoch timer per boss in the
// directory, as if the user had just killed each one. Returns how many
// units were spawned; creation stops at the first storage failure.
func (e *Engine) StartAllForUser(ctx context.Context, userID, chatID int64) (int, error) {
	var n int
	for _, boss := range e.dir.All() {
		_, err := e.CreateTimer(ctx, CreateRequest{
			UserID: userID,
			ChatID: chatID,
			Boss:   boss,
			Epoch:  true,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Resume re-derives runners from the store after a process restart.
// Waits are recomputed against now; records already past due fire
// immediately through the normal path. Records whose boss is no longer
// in the directory are dropped.
func (e *Engine) Resume(ctx context.Context) (int, error) {
	timers, err := e.store.ListAll(ctx)
	if err != nil {
		return 0, storageErr(err)
	}

	var n int
	for _, t := range timers {
		interval, err := e.dir.Interval(t.Boss, t.Epoch)
		if err != nil {
			e.log.Warn("dropping orphaned timer", logx.String("timer", t.ID), logx.String("boss", t.Boss))
			if derr := e.store.DeleteTimer(ctx, t.UserID, t.ID); derr != nil {
				e.log.Error("orphan delete failed", logx.String("timer", t.ID), logx.Err(derr))
			}
			continue
		}
		e.spawn(t, interval)
		n++
	}
	if n > 0 {
		e.log.Info("timers resumed", logx.Int("count", n))
	}
	return n, nil
}

// isReason reports whether err is a typed per-request rejection rather
// than a storage failure.
func isReason(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotOwned)
}
