// Package store persists timers and user registry entries. The SQLite
// backend is the production implementation; Memory backs tests.
package store

import (
	"context"
	"time"
)

// TimerStore is the persistence contract the engine depends on.
//
// Mutations are atomic at single-record granularity. List results are
// ordered by respawn instant ascending (soonest first); limit <= 0 means
// no limit.
type TimerStore interface {
	// CreateTimer persists t, assigning a fresh ID when t.ID is empty,
	// and returns the stored record.
	CreateTimer(ctx context.Context, t Timer) (Timer, error)
	TimerExists(ctx context.Context, id string) (bool, error)
	// UpdateRespawn advances a timer's respawn instant. ErrNotFound when
	// the record is gone.
	UpdateRespawn(ctx context.Context, id string, at time.Time) error
	// DeleteTimer removes a timer on behalf of userID. ErrNotOwned when
	// the record belongs to someone else, ErrNotFound when missing.
	DeleteTimer(ctx context.Context, userID int64, id string) error
	ListByChat(ctx context.Context, chatID int64, limit int) ([]Timer, error)
	ListByOwner(ctx context.Context, chatID, userID int64, limit int) ([]Timer, error)
	// ListAll returns every timer; used for restart recovery.
	ListAll(ctx context.Context) ([]Timer, error)
	// ListChats returns the distinct chats holding at least one timer.
	ListChats(ctx context.Context) ([]int64, error)
	DeleteAllInChat(ctx context.Context, chatID int64) (int64, error)
}

// UserStore is the user registry contract.
type UserStore interface {
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id int64) (User, error)
}
