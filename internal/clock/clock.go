// internal/clock/clock.go
package clock

import "time"

// Clock supplies the current time. Components take a Clock instead of calling
// time.Now directly so tests can pin or advance time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock { return systemClock{} }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) *FakeClock { return &FakeClock{now: t} }

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	now time.Time
}

func (c *FakeClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Set pins the clock to t.
func (c *FakeClock) Set(t time.Time) { c.now = t }
