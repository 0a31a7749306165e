// Package timeutil handles the user/system timezone boundary and the small
// time formats the bot exposes (HH:MM kill times, remaining durations).
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrBadClock = errors.New("bad clock format, expected HH:MM")

// Converter translates timestamps between the timezone users type times
// in and the timezone the rest of the system computes in.
type Converter struct {
	user   *time.Location
	system *time.Location
}

func NewConverter(user, system *time.Location) Converter {
	if user == nil {
		user = time.Local
	}
	if system == nil {
		system = time.Local
	}
	return Converter{user: user, system: system}
}

func (c Converter) ToSystem(t time.Time) time.Time { return t.In(c.system) }
func (c Converter) ToUser(t time.Time) time.Time   { return t.In(c.user) }

func (c Converter) System() *time.Location { return c.system }
func (c Converter) User() *time.Location   { return c.user }

// CombineClock interprets an HH:MM string as today's wall clock in the
// user timezone and returns the instant in the system timezone. "Today"
// is taken from the supplied reference time.
func (c Converter) CombineClock(now time.Time, clock string) (time.Time, error) {
	hh, mm, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(c.user)
	t := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, c.user)
	return t.In(c.system), nil
}

// ParseClock validates an "HH:MM" string (1- or 2-digit hour, 2-digit
// minute). Only digits are accepted; Atoi alone would let a sign
// through ("12:+5").
func ParseClock(s string) (hh, mm int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !allDigits(h) || !allDigits(m) {
		return 0, 0, ErrBadClock
	}
	hh, _ = strconv.Atoi(h)
	mm, _ = strconv.Atoi(m)
	if hh > 23 || mm > 59 {
		return 0, 0, ErrBadClock
	}
	return hh, mm, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatRemaining renders a duration as "Hh MMm" for listings. Negative
// durations (already due) clamp to zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%dh %02dm", h, m)
}
