// Package inter defines the core data structures shared between the sale
// engine, its persistent store and the launcher. This file contains the
// Timestamp type used for the sale window and receipts.

package inter

import "time"

// Timestamp is a point in time expressed in nanoseconds since the Unix epoch.
// It is the unit the sale window, the clock and the receipt journal agree on.
//
// Sale boundaries in the wild are usually configured in whole seconds, so
// FromUnix and Unix are the conversions most callers need.
type Timestamp uint64

// FromUnix converts whole seconds since the Unix epoch into a Timestamp.
// Negative values clamp to zero.
func FromUnix(sec int64) Timestamp {
	if sec <= 0 {
		return 0
	}
	return Timestamp(sec) * Timestamp(time.Second)
}

// FromTime converts a wall-clock time into a Timestamp.
func FromTime(t time.Time) Timestamp {
	ns := t.UnixNano()
	if ns <= 0 {
		return 0
	}
	return Timestamp(ns)
}

// Unix returns the timestamp truncated to whole seconds.
func (t Timestamp) Unix() int64 {
	return int64(t / Timestamp(time.Second))
}

// Time converts the timestamp back into a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// Add shifts the timestamp by d. The result never goes below zero.
func (t Timestamp) Add(d time.Duration) Timestamp {
	if d < 0 && Timestamp(-d) > t {
		return 0
	}
	return Timestamp(int64(t) + int64(d))
}

// String renders the timestamp as RFC3339 for logs.
func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339)
}
