package datemath

import "time"

// Clock supplies the current instant.
//
// Every phase, countdown and projection is derived from Now() at call time
// rather than from a cached value, so injecting a Clock is the only way to
// make those results reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host wall clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}
