// Package ident generates entity identifiers and the millisecond-precision
// UTC timestamps stamped on every persisted record.
package ident

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a random (version 4) UUID string.
func GenerateID() string {
	return uuid.NewString()
}

// Clock abstracts time retrieval for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Now returns the clock's current instant as a Timestamp. A nil clock falls
// back to the system clock.
func Now(c Clock) Timestamp {
	if c == nil {
		c = SystemClock{}
	}
	return TimestampOf(c.Now())
}

// CurrentTimestamp renders the current instant in ISO-8601 UTC with
// millisecond precision.
func CurrentTimestamp() string {
	return Now(nil).String()
}
