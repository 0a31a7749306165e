package digest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/pkg/logx"
)

type captureSink struct {
	mu   sync.Mutex
	msgs map[int64][]string
}

func (s *captureSink) Send(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msgs == nil {
		s.msgs = map[int64][]string{}
	}
	s.msgs[chatID] = append(s.msgs[chatID], text)
	return nil
}

func TestTickSendsPerChatSummaries(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Now()
	seed := []store.Timer{
		{ChatID: 1, UserID: 10, Boss: "Gareth", RespawnAt: now.Add(2 * time.Hour)},
		{ChatID: 1, UserID: 10, Boss: "Orfen", RespawnAt: now.Add(time.Hour)},
		{ChatID: 2, UserID: 11, Boss: "Core", RespawnAt: now.Add(3 * time.Hour)},
	}
	for _, tm := range seed {
		if _, err := mem.CreateTimer(ctx, tm); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sink := &captureSink{}
	conv := timeutil.NewConverter(time.UTC, time.UTC)
	s := New(Config{}, mem, sink, conv, logx.Nop())
	s.tick(ctx)

	if len(sink.msgs) != 2 {
		t.Fatalf("expected summaries for 2 chats, got %d", len(sink.msgs))
	}
	msg := sink.msgs[1][0]
	// Soonest first.
	if strings.Index(msg, "Orfen") > strings.Index(msg, "Gareth") {
		t.Fatalf("summary not ordered soonest-first:\n%s", msg)
	}
}

func TestRenderUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	conv := timeutil.NewConverter(time.UTC, time.UTC)
	s := New(Config{Now: func() time.Time { return now }}, store.NewMemory(), &captureSink{}, conv, logx.Nop())

	msg := s.render([]store.Timer{
		{ID: "a", Boss: "Gareth", RespawnAt: now.Add(90 * time.Minute)},
	})
	if !strings.Contains(msg, "1h 30m") {
		t.Fatalf("remaining not computed against the injected clock:\n%s", msg)
	}
	if !strings.Contains(msg, "30.08 13:30") {
		t.Fatalf("respawn instant missing or misformatted:\n%s", msg)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	mem := store.NewMemory()
	conv := timeutil.NewConverter(time.UTC, time.UTC)
	s := New(Config{Enabled: true, Spec: "not a cron"}, mem, &captureSink{}, conv, logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	s.Stop()
}

func TestDisabledStaysIdle(t *testing.T) {
	mem := store.NewMemory()
	conv := timeutil.NewConverter(time.UTC, time.UTC)
	s := New(Config{Enabled: false}, mem, &captureSink{}, conv, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
