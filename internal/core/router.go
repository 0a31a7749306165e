package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"respawnbot/internal/bosses"
	"respawnbot/internal/engine"
	"respawnbot/internal/notifier"
	"respawnbot/internal/store"
	"respawnbot/internal/timeutil"
	"respawnbot/internal/transport"
	"respawnbot/pkg/logx"
)

// Router translates chat commands into engine requests and renders the
// replies. All business rules live in the engine; this layer only
// parses and speaks.
type Router struct {
	eng   *engine.Engine
	users store.UserStore
	sink  notifier.Sink
	conv  timeutil.Converter
	log   logx.Logger
}

func NewRouter(eng *engine.Engine, users store.UserStore, sink notifier.Sink, conv timeutil.Converter, log logx.Logger) *Router {
	return &Router{eng: eng, users: users, sink: sink, conv: conv, log: log}
}

// Commands is the bot menu, in display order.
func (r *Router) Commands() []transport.BotCommand {
	return []transport.BotCommand{
		{Command: "start", Description: "Introduce the bot"},
		{Command: "set", Description: "Start a respawn timer"},
		{Command: "epoch", Description: "Arm epoch timers for every boss"},
		{Command: "get", Description: "List the chat's timers"},
		{Command: "get_my", Description: "List your timers"},
		{Command: "delete", Description: "Delete a timer by ID"},
		{Command: "delete_all", Description: "Delete every timer in the chat"},
		{Command: "bosses", Description: "List all known bosses"},
		{Command: "help", Description: "Describe the commands"},
		{Command: "info", Description: "About the bot"},
	}
}

func (r *Router) Handle(ctx context.Context, up transport.Update) {
	m := up.Message
	if m == nil || !strings.HasPrefix(m.Text, "/") {
		return
	}

	cmd, args := splitCommand(m.Text)
	log := r.log.With(logx.Int64("chat", m.ChatID), logx.Int64("user", m.FromID), logx.String("cmd", cmd))

	var err error
	switch cmd {
	case "start":
		err = r.handleStart(ctx, m)
	case "set":
		err = r.handleSet(ctx, m, args)
	case "epoch":
		err = r.handleEpoch(ctx, m)
	case "get":
		err = r.handleList(ctx, m, args, 0)
	case "get_my":
		err = r.handleList(ctx, m, args, m.FromID)
	case "delete":
		err = r.handleDelete(ctx, m, args)
	case "delete_all":
		err = r.handleDeleteAll(ctx, m)
	case "bosses":
		err = r.reply(ctx, m, textBossList())
	case "help":
		err = r.reply(ctx, m, textHelp)
	case "info":
		err = r.reply(ctx, m, textInfo)
	default:
		// Not ours; group chats see plenty of unrelated slash commands.
		return
	}
	if err != nil {
		log.Error("command failed", logx.Err(err))
	}
}

func (r *Router) reply(ctx context.Context, m *transport.Message, text string) error {
	return r.sink.Send(ctx, m.ChatID, text)
}

func (r *Router) handleStart(ctx context.Context, m *transport.Message) error {
	err := r.users.UpsertUser(ctx, store.User{
		ID:        m.FromID,
		Username:  m.FromUsername,
		FirstName: m.FromFirst,
	})
	if err != nil {
		return r.reply(ctx, m, textStorageTrouble)
	}
	return r.reply(ctx, m, textGreeting)
}

func (r *Router) handleSet(ctx context.Context, m *transport.Message, args []string) error {
	if len(args) == 0 {
		return r.reply(ctx, m, textSetUsage)
	}
	boss := strings.Join(args, " ")
	clock := ""
	if last := args[len(args)-1]; strings.Contains(last, ":") {
		clock = last
		boss = strings.Join(args[:len(args)-1], " ")
	}

	_, err := r.eng.CreateTimer(ctx, engine.CreateRequest{
		UserID:    m.FromID,
		ChatID:    m.ChatID,
		Boss:      boss,
		KillClock: clock,
	})
	if err != nil {
		// Success is acknowledged by the engine itself.
		return r.reply(ctx, m, rejectionText(err, boss))
	}
	return nil
}

func (r *Router) handleEpoch(ctx context.Context, m *transport.Message) error {
	n, err := r.eng.StartAllForUser(ctx, m.FromID, m.ChatID)
	if err != nil {
		return r.reply(ctx, m, rejectionText(err, ""))
	}
	return r.reply(ctx, m, fmt.Sprintf(textEpochArmed, n))
}

func (r *Router) handleList(ctx context.Context, m *transport.Message, args []string, ownerID int64) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return r.reply(ctx, m, textListUsage)
		}
		limit = n
	}
	snaps, err := r.eng.ListTimers(ctx, m.ChatID, ownerID, limit)
	if err != nil {
		return r.reply(ctx, m, textStorageTrouble)
	}
	if len(snaps) == 0 {
		return r.reply(ctx, m, textNoTimers)
	}
	return r.reply(ctx, m, renderTimers(r.conv, snaps))
}

func (r *Router) handleDelete(ctx context.Context, m *transport.Message, args []string) error {
	if len(args) != 1 {
		return r.reply(ctx, m, textDeleteUsage)
	}
	id := args[0]
	if err := r.eng.DeleteTimer(ctx, m.FromID, id); err != nil {
		return r.reply(ctx, m, rejectionText(err, ""))
	}
	return r.reply(ctx, m, fmt.Sprintf(textDeleted, id))
}

func (r *Router) handleDeleteAll(ctx context.Context, m *transport.Message) error {
	n, err := r.eng.DeleteAllTimers(ctx, m.ChatID)
	if err != nil {
		return r.reply(ctx, m, textStorageTrouble)
	}
	if n == 0 {
		return r.reply(ctx, m, textNoTimers)
	}
	return r.reply(ctx, m, textAllDeleted)
}

// rejectionText maps a typed engine rejection to its user-facing reason.
// Storage failures stay generic on purpose.
func rejectionText(err error, boss string) string {
	switch {
	case errors.Is(err, bosses.ErrUnknownBoss):
		return fmt.Sprintf(textUnknownBoss, boss)
	case errors.Is(err, timeutil.ErrBadClock):
		return textBadClock
	case errors.Is(err, engine.ErrAlreadyExpired):
		return fmt.Sprintf(textAlreadyExpired, boss)
	case errors.Is(err, store.ErrNotOwned):
		return textNotYourTimer
	case errors.Is(err, store.ErrNotFound):
		return textTimerNotFound
	default:
		return textStorageTrouble
	}
}

// splitCommand extracts "/cmd@BotName arg arg" into (cmd, args).
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}
