package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory TimerStore used by engine tests. It mirrors the
// SQLite semantics but keeps full time precision, which lets lifecycle
// tests run on millisecond intervals.
type Memory struct {
	mu     sync.Mutex
	timers map[string]Timer
	users  map[int64]User

	// FailWrites makes every mutation fail; lets tests exercise the
	// persistence-failure paths.
	FailWrites error
}

func NewMemory() *Memory {
	return &Memory{
		timers: map[string]Timer{},
		users:  map[int64]User{},
	}
}

func (m *Memory) CreateTimer(_ context.Context, t Timer) (Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return Timer{}, m.FailWrites
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.timers[t.ID] = t
	return t, nil
}

func (m *Memory) TimerExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[id]
	return ok, nil
}

func (m *Memory) UpdateRespawn(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	t, ok := m.timers[id]
	if !ok {
		return ErrNotFound
	}
	t.RespawnAt = at
	m.timers[id] = t
	return nil
}

func (m *Memory) DeleteTimer(_ context.Context, userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	t, ok := m.timers[id]
	if !ok {
		return ErrNotFound
	}
	if t.UserID != userID {
		return ErrNotOwned
	}
	delete(m.timers, id)
	return nil
}

// Remove drops a timer unconditionally; test helper for simulating an
// out-of-band deletion while a runner sleeps.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
}

// Get returns the current record; test helper.
func (m *Memory) Get(id string) (Timer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[id]
	return t, ok
}

func (m *Memory) ListByChat(_ context.Context, chatID int64, limit int) ([]Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(limit, func(t Timer) bool { return t.ChatID == chatID }), nil
}

func (m *Memory) ListByOwner(_ context.Context, chatID, userID int64, limit int) ([]Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(limit, func(t Timer) bool { return t.ChatID == chatID && t.UserID == userID }), nil
}

func (m *Memory) ListAll(_ context.Context) ([]Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(0, func(Timer) bool { return true }), nil
}

func (m *Memory) ListChats(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var res []int64
	for _, t := range m.timers {
		if !seen[t.ChatID] {
			seen[t.ChatID] = true
			res = append(res, t.ChatID)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res, nil
}

func (m *Memory) DeleteAllInChat(_ context.Context, chatID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return 0, m.FailWrites
	}
	var n int64
	for id, t := range m.timers {
		if t.ChatID == chatID {
			delete(m.timers, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpsertUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) collect(limit int, keep func(Timer) bool) []Timer {
	var res []Timer
	for _, t := range m.timers {
		if keep(t) {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RespawnAt.Before(res[j].RespawnAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}
