// internal/scheduler/calendar.go
package scheduler

import "time"

// Firing instants are always re-derived from the calendar rule, never
// accumulated by repeated interval addition, so the schedule cannot drift.
// All calendar math is UTC.

// NextDaily returns the first instant strictly after now at hour:00:00 UTC.
func NextDaily(after time.Time, hour int) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextWeekly returns the first instant strictly after now on weekday at
// hour:minute UTC.
func NextWeekly(after time.Time, weekday time.Weekday, hour, minute int) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, time.UTC)
	days := (int(weekday) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
