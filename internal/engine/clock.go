package engine

import "time"

// Clock supplies the wall time stamped into journals.
//
// Journal timestamps are compared against row modification times, which
// the launcher store records in wall-clock milliseconds, so this is a wall
// clock rather than a logical one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
