package domain

import "time"

// Clock provides the current time. Inject it wherever expiry or time status
// is computed so tests can control it.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// NowUTC returns the clock's current time in UTC with the monotonic
// reading stripped, which is what gets persisted.
func NowUTC(c Clock) time.Time {
	return c.Now().UTC().Round(0)
}

var _ Clock = RealClock{}
