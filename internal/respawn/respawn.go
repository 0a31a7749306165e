// Package respawn computes respawn instants from reported kill times.
package respawn

import "time"

// Compute returns the respawn instant for a kill reported at kill, seen
// at now, for a boss with the given interval.
//
// Users report kill times as a bare wall clock, so a kill instant that
// lands after now can only mean the kill happened yesterday; the kill is
// moved one calendar day back before the interval is added. A kill at or
// before now is taken as-is.
func Compute(kill, now time.Time, interval time.Duration) time.Time {
	if kill.After(now) {
		kill = kill.AddDate(0, 0, -1)
	}
	return kill.Add(interval)
}
