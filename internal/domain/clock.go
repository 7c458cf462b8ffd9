package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze "today" via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for default now dates and spec
// timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Today returns the current UTC calendar date from the package clock.
func Today() civil.Date {
	return civil.DateOf(clock.Now().UTC())
}

// IsSet reports whether d is a real date rather than the zero value.
func IsSet(d civil.Date) bool {
	return d != civil.Date{}
}
