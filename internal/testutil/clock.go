// Package testutil provides deterministic helpers shared by tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a FakeClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FakeClock is a manually advanced clock.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

// NewFakeClockAt returns a clock frozen at t.
func NewFakeClockAt(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative durations panic because
// clocks handed to the engine must never go backwards.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	if d < 0 {
		panic("FakeClock: cannot advance by a negative duration")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t. Moving backwards panics.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.now) {
		panic("FakeClock: cannot move backwards")
	}
	c.now = t
}
