package core

import (
	"fmt"
	"strings"

	"respawnbot/internal/bosses"
	"respawnbot/internal/engine"
	"respawnbot/internal/timeutil"
)

const (
	textGreeting = "Hi! I track boss respawns so you don't sleep through a fight. " +
		"Use /help to see the commands."

	textHelp = "/bosses — list every known boss\n\n" +
		"/set <boss> [HH:MM] — start a timer; without a time the kill is \"just now\"\n\n" +
		"/epoch — arm a one-shot timer for every boss with its epoch interval\n\n" +
		"/get [n] — show the chat's n soonest timers (all when omitted)\n\n" +
		"/get_my [n] — same, but only your timers\n\n" +
		"/delete <id> — delete a timer by its ID\n\n" +
		"/delete_all — delete every timer in this chat"

	textInfo = "Respawn timer bot. Report a kill, get pinged before and at the respawn."

	textSetUsage    = "❌ Usage: /set <boss> [HH:MM]"
	textListUsage   = "❌ After /get give the number of soonest timers to show, e.g. /get 5"
	textDeleteUsage = "❌ Usage: /delete <timer id>"

	textUnknownBoss    = "❌ Boss *%s* is not on the list. Try /bosses."
	textBadClock       = "❌ Bad time format. Use HH:MM."
	textAlreadyExpired = "❌ Boss *%s* has already respawned, go kill it!"
	textNotYourTimer   = "❌ You can't delete someone else's timer."
	textTimerNotFound  = "❌ No timer with that ID."
	textStorageTrouble = "❌ Storage problem, try again later."

	textNoTimers   = "No active timers right now."
	textDeleted    = "✅ Timer %s deleted."
	textAllDeleted = "✅ All timers deleted."
	textEpochArmed = "✅ Epoch timers armed for %d bosses. Use /get for details."
)

func textBossList() string {
	var b strings.Builder
	b.WriteString("*All bosses*\n")
	for _, name := range bosses.All() {
		hours, err := bosses.NormalHours(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n`%-20s` | %d hours", name, hours)
	}
	return b.String()
}

func renderTimers(conv timeutil.Converter, snaps []engine.Snapshot) string {
	var b strings.Builder
	b.WriteString("*Upcoming respawns*\n")
	for _, s := range snaps {
		fmt.Fprintf(&b, "\n%s — *%s* (%s) — `%s`",
			conv.ToUser(s.RespawnAt).Format("02.01 15:04"),
			s.Boss,
			timeutil.FormatRemaining(s.Remaining),
			s.ID,
		)
	}
	return b.String()
}
