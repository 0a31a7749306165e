package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("timer not found")
	ErrNotOwned = errors.New("timer owned by another user")
)

// Timer is one persisted respawn timer. The store is the system of
// record; the engine re-confirms a timer's existence here before every
// externally visible action.
type Timer struct {
	ID        string
	ChatID    int64
	UserID    int64
	Boss      string
	RespawnAt time.Time
	// Epoch marks a single-shot post-reset timer; it self-deletes after
	// firing instead of re-arming. Persisted so restart recovery can tell
	// the two unit kinds apart.
	Epoch bool
}

// User is a registry entry for someone who talked to the bot.
type User struct {
	ID        int64
	Username  string
	FirstName string
}
