package catalog

import (
	"sync"
	"time"
)

// Clock produces the logical timestamps stamped on catalog writes.
//
// Timestamps are wall-clock milliseconds with a monotonic guard: if the wall
// clock stalls or steps backwards, the clock still advances by one per call.
// Within a replica this makes every write strictly newer than the last;
// across replicas ordering depends on clock skew, which the merge rule
// accepts (two near-simultaneous edits may converge to either value).
//
// Thread-safety: safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() int64
}

// NewClock creates a clock backed by the system wall clock.
func NewClock() *Clock {
	return &Clock{now: func() int64 { return time.Now().UnixMilli() }}
}

// NewClockWithNow creates a clock with a custom time source. Used in tests
// to make timestamps deterministic.
func NewClockWithNow(now func() int64) *Clock {
	return &Clock{now: now}
}

// Next returns the next logical timestamp. Strictly increasing across calls.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now()
	if t <= c.last {
		t = c.last + 1
	}
	c.last = t
	return t
}

// Observe advances the clock past an externally observed timestamp so local
// writes never sort behind records merged from other replicas.
func (c *Clock) Observe(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t > c.last {
		c.last = t
	}
}
