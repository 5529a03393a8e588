// Package testutil provides deterministic time sources for tests.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a steppable time source for deterministic tests.
//
// Tick advances the clock by a fixed step and returns the new instant in
// unix milliseconds, which matches the catalog clock's timestamp unit. Now
// reads the current instant without advancing, for components that take a
// wall-clock function.
//
// All methods are safe for concurrent use.
type ManualClock struct {
	mu     sync.Mutex
	millis int64
	step   int64
}

// NewManualClock creates a clock at start, advancing by step per Tick.
func NewManualClock(start time.Time, step time.Duration) *ManualClock {
	return &ManualClock{millis: start.UnixMilli(), step: step.Milliseconds()}
}

// Tick advances the clock by one step and returns the new unix milliseconds.
func (c *ManualClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += c.step
	return c.millis
}

// Millis returns the current unix milliseconds without advancing.
func (c *ManualClock) Millis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.millis
}

// Now returns the current instant in UTC without advancing.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.UnixMilli(c.millis).UTC()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += d.Milliseconds()
}
