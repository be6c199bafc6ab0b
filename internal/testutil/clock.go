package testutil

import (
	"sync"
	"time"
)

// Epoch is the first timestamp handed out by test clocks.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock hands out log sequence numbers and wall-clock times
// for tests.
//
// Next returns 1, 2, 3, ... and Now returns Epoch plus one second per
// call to Next, so operations built from the same script always carry the
// same seq and created_at values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns the time matching the current sequence number.
// It has the signature of time.Now so it can be injected as a clock.
func (c *DeterministicClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.Current()) * time.Second)
}

// Reset resets the clock to 0.
//
// After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
