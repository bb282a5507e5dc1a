package sale

import (
	"sync/atomic"
	"time"

	"github.com/rony4d/go-opera-crowdsale/inter"
)

// Clock supplies the current time. The engine never caches what it returns:
// the sale lifecycle is recomputed from Now() on every request.
type Clock interface {
	Now() inter.Timestamp
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() inter.Timestamp {
	return inter.FromTime(time.Now())
}

// ManualClock is a settable clock for tests and replays.
// Safe for concurrent use.
type ManualClock struct {
	now uint64
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start inter.Timestamp) *ManualClock {
	return &ManualClock{now: uint64(start)}
}

// Now implements Clock.
func (c *ManualClock) Now() inter.Timestamp {
	return inter.Timestamp(atomic.LoadUint64(&c.now))
}

// Set moves the clock to t. Moving backwards is allowed; replays use it.
func (c *ManualClock) Set(t inter.Timestamp) {
	atomic.StoreUint64(&c.now, uint64(t))
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) inter.Timestamp {
	next := c.Now().Add(d)
	atomic.StoreUint64(&c.now, uint64(next))
	return next
}
