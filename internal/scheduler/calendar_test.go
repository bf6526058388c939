// internal/scheduler/calendar_test.go
package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNextDaily(t *testing.T) {
	// 2025-03-03 is a Monday.
	base := time.Date(2025, 3, 3, 4, 30, 0, 0, time.UTC)

	next := NextDaily(base, 6)
	assert.Equal(t, time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC), next)

	// Already past today's instant: tomorrow.
	next = NextDaily(time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC), 6)
	assert.Equal(t, time.Date(2025, 3, 4, 6, 0, 0, 0, time.UTC), next)

	// Exactly at the instant: strictly after means the next day.
	next = NextDaily(time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC), 6)
	assert.Equal(t, time.Date(2025, 3, 4, 6, 0, 0, 0, time.UTC), next)
}

func TestNextWeekly(t *testing.T) {
	// 2025-03-03 is a Monday.
	base := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

	next := NextWeekly(base, time.Saturday, 17, 5)
	assert.Equal(t, time.Date(2025, 3, 8, 17, 5, 0, 0, time.UTC), next)

	// Same weekday, earlier in the day: today.
	sat := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)
	next = NextWeekly(sat, time.Saturday, 17, 5)
	assert.Equal(t, time.Date(2025, 3, 8, 17, 5, 0, 0, time.UTC), next)

	// Same weekday, already past: next week.
	sat = time.Date(2025, 3, 8, 18, 0, 0, 0, time.UTC)
	next = NextWeekly(sat, time.Saturday, 17, 5)
	assert.Equal(t, time.Date(2025, 3, 15, 17, 5, 0, 0, time.UTC), next)
}

func TestNextDailyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		after := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "after"), 0).UTC()
		hour := rapid.IntRange(0, 23).Draw(t, "hour")

		next := NextDaily(after, hour)
		assert.True(t, next.After(after))
		assert.LessOrEqual(t, next.Sub(after), 24*time.Hour)
		assert.Equal(t, hour, next.Hour())
		assert.Equal(t, 0, next.Minute())
		assert.Equal(t, 0, next.Second())
	})
}

func TestNextWeeklyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		after := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "after"), 0).UTC()
		weekday := time.Weekday(rapid.IntRange(0, 6).Draw(t, "weekday"))
		hour := rapid.IntRange(0, 23).Draw(t, "hour")
		minute := rapid.IntRange(0, 59).Draw(t, "minute")

		next := NextWeekly(after, weekday, hour, minute)
		assert.True(t, next.After(after))
		assert.LessOrEqual(t, next.Sub(after), 7*24*time.Hour)
		assert.Equal(t, weekday, next.Weekday())
		assert.Equal(t, hour, next.Hour())
		assert.Equal(t, minute, next.Minute())
	})
}

func TestNextIsStableUnderRederivation(t *testing.T) {
	// Re-deriving from the same instant yields the same answer: the calendar
	// cannot drift the way repeated interval addition can.
	base := time.Date(2025, 3, 3, 4, 30, 0, 0, time.UTC)
	first := NextDaily(base, 6)
	second := NextDaily(base, 6)
	assert.Equal(t, first, second)
}
