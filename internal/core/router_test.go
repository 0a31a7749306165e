package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"respawnbot/internal/bosses"
	"respawnbot/internal/engine"
	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/internal/transport"
	"respawnbot/pkg/logx"
)

type memSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *memSink) Send(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, fmt.Sprintf("%d|%s", chatID, text))
	s.mu.Unlock()
	return nil
}

func (s *memSink) last(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func newTestRouter(t *testing.T) (*Router, *store.Memory, *memSink) {
	t.Helper()
	mem := store.NewMemory()
	sink := &memSink{}
	conv := timeutil.NewConverter(time.UTC, time.UTC)

	eng := engine.New(engine.Config{}, mem, bosses.Table{}, sink, conv, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	eng.Start(ctx)
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = eng.Stop(stopCtx)
	})

	return NewRouter(eng, mem, sink, conv, logx.Nop()), mem, sink
}

func msg(text string) transport.Update {
	return transport.Update{Message: &transport.Message{
		ID:      1,
		ChatID:  100,
		FromID:  7,
		Text:    text,
		IsGroup: true,
	}}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		cmd  string
		args []string
	}{
		{"/set Core 10:30", "set", []string{"Core", "10:30"}},
		{"/set@RespawnBot Core", "set", []string{"Core"}},
		{"/GET_MY", "get_my", nil},
		{"/delete_all", "delete_all", nil},
		{"   ", "", nil},
	}
	for _, tt := range tests {
		cmd, args := splitCommand(tt.in)
		if cmd != tt.cmd {
			t.Fatalf("splitCommand(%q) cmd = %q, want %q", tt.in, cmd, tt.cmd)
		}
		if len(args) != len(tt.args) {
			t.Fatalf("splitCommand(%q) args = %v, want %v", tt.in, args, tt.args)
		}
		for i := range args {
			if args[i] != tt.args[i] {
				t.Fatalf("splitCommand(%q) args = %v, want %v", tt.in, args, tt.args)
			}
		}
	}
}

func TestRejectionText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{bosses.ErrUnknownBoss, "not on the list"},
		{timeutil.ErrBadClock, "Bad time format"},
		{engine.ErrAlreadyExpired, "already"},
		{store.ErrNotOwned, "someone else's"},
		{store.ErrNotFound, "No timer with that ID"},
		{errors.New("disk on fire"), "Storage problem"},
	}
	for _, tt := range tests {
		got := rejectionText(fmt.Errorf("wrapped: %w", tt.err), "Core")
		if !strings.Contains(got, tt.want) {
			t.Fatalf("rejectionText(%v) = %q, want substring %q", tt.err, got, tt.want)
		}
	}
}

func TestHandleSetCreatesTimer(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)

	r.Handle(context.Background(), msg("/set queen ant"))

	timers, err := mem.ListByChat(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "Queen Ant", timers[0].Boss)
	assert.False(t, timers[0].Epoch)
	assert.Contains(t, sink.last(t), "Timer set")
}

func TestHandleSetUnknownBoss(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)

	r.Handle(context.Background(), msg("/set gundam 10:30"))

	timers, err := mem.ListByChat(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Empty(t, timers)
	assert.Contains(t, sink.last(t), "not on the list")
}

func TestHandleSetBadClock(t *testing.T) {
	t.Parallel()
	r, _, sink := newTestRouter(t)

	r.Handle(context.Background(), msg("/set Core 25:99"))
	assert.Contains(t, sink.last(t), "Bad time format")

	r.Handle(context.Background(), msg("/set"))
	assert.Contains(t, sink.last(t), "Usage: /set")
}

func TestHandleListEmptyAndFiltered(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)
	ctx := context.Background()

	r.Handle(ctx, msg("/get"))
	assert.Contains(t, sink.last(t), "No active timers")

	r.Handle(ctx, msg("/set Core"))
	_, err := mem.CreateTimer(ctx, store.Timer{
		ChatID: 100, UserID: 99, Boss: "Orfen",
		RespawnAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	r.Handle(ctx, msg("/get"))
	both := sink.last(t)
	assert.Contains(t, both, "Core")
	assert.Contains(t, both, "Orfen")

	// get_my filters on the sender.
	r.Handle(ctx, msg("/get_my"))
	mine := sink.last(t)
	assert.Contains(t, mine, "Core")
	assert.NotContains(t, mine, "Orfen")

	r.Handle(ctx, msg("/get zero"))
	assert.Contains(t, sink.last(t), "number of soonest timers")
}

func TestHandleDeleteOwnership(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)
	ctx := context.Background()

	theirs, err := mem.CreateTimer(ctx, store.Timer{
		ChatID: 100, UserID: 99, Boss: "Core",
		RespawnAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	r.Handle(ctx, msg("/delete "+theirs.ID))
	assert.Contains(t, sink.last(t), "someone else's")

	r.Handle(ctx, msg("/delete missing-id"))
	assert.Contains(t, sink.last(t), "No timer with that ID")

	mine, err := mem.CreateTimer(ctx, store.Timer{
		ChatID: 100, UserID: 7, Boss: "Orfen",
		RespawnAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	r.Handle(ctx, msg("/delete "+mine.ID))
	assert.Contains(t, sink.last(t), "deleted")

	left, err := mem.ListByChat(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, theirs.ID, left[0].ID)
}

func TestHandleDeleteAll(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)
	ctx := context.Background()

	r.Handle(ctx, msg("/delete_all"))
	assert.Contains(t, sink.last(t), "No active timers")

	r.Handle(ctx, msg("/set Core"))
	r.Handle(ctx, msg("/set Orfen"))
	r.Handle(ctx, msg("/delete_all"))
	assert.Contains(t, sink.last(t), "All timers deleted")

	left, err := mem.ListByChat(ctx, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestHandleStartRegistersUser(t *testing.T) {
	t.Parallel()
	r, mem, sink := newTestRouter(t)
	ctx := context.Background()

	up := msg("/start")
	up.Message.FromUsername = "hunter"
	r.Handle(ctx, up)
	assert.Contains(t, sink.last(t), "Hi!")

	u, err := mem.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "hunter", u.Username)
}

func TestHandleIgnoresForeignInput(t *testing.T) {
	t.Parallel()
	r, _, sink := newTestRouter(t)
	ctx := context.Background()

	r.Handle(ctx, msg("just chatting"))
	r.Handle(ctx, msg("/somebodyelses_command arg"))
	r.Handle(ctx, transport.Update{})

	assert.Zero(t, sink.count())
}
