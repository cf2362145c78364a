package ident

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the persisted representation: ISO-8601, UTC, milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a UTC instant truncated to millisecond precision. It encodes
// to JSON using TimestampLayout so that stored values share one fixed width.
type Timestamp struct {
	time.Time
}

// TimestampOf converts t to UTC and truncates it to milliseconds.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// ParseTimestamp accepts any RFC 3339 timestamp and normalises it.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return TimestampOf(t), nil
}

// String formats the timestamp using TimestampLayout. The zero value renders
// as an empty string.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler. Zero timestamps encode as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Max returns the later of two timestamps.
func Max(a, b Timestamp) Timestamp {
	if b.After(a.Time) {
		return b
	}
	return a
}
