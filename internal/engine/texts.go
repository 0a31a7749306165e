package engine

import (
	"fmt"
	"time"

	"respawnbot/internal/timeutil"
)

// Notification texts sent by runners. Command replies live with the
// router; only the timer lifecycle speaks from here.

func textArmed(id, boss string, localAt time.Time, remaining time.Duration) string {
	return fmt.Sprintf("✅ Timer set:\n%s — *%s* (%s) — `%s`",
		localAt.Format("02.01 15:04"), boss, timeutil.FormatRemaining(remaining), id)
}

func textWarn(boss string, lead time.Duration) string {
	return fmt.Sprintf("‼️ *%s* respawns in %d minutes, get ready!", boss, int(lead.Minutes()))
}

func textFired(boss string) string {
	return fmt.Sprintf("✅ *%s* has respawned, go kill it!", boss)
}
