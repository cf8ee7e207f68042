package dispatch

import (
	"sync"
	"time"
)

// VirtualClock provides controllable time for deterministic tests.
// All methods are safe for concurrent use.
type VirtualClock struct {
	mu    sync.Mutex
	epoch time.Time
	now   time.Time
}

// NewVirtualClock returns a VirtualClock starting at a fixed epoch.
func NewVirtualClock() *VirtualClock {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &VirtualClock{epoch: epoch, now: epoch}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Elapsed returns the virtual time passed since the epoch.
func (c *VirtualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.epoch)
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *VirtualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t if t is not in the past.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}
