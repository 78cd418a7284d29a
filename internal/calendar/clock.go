package calendar

import "sync"

// Clock is the shared current-date service. Systems read the date many times
// per tick; only the simulation loop advances it.
type Clock struct {
	mu  sync.RWMutex
	now Date
}

// NewClock creates a clock starting at the given date.
func NewClock(start Date) *Clock {
	return &Clock{now: start}
}

// Now returns the current game date.
func (c *Clock) Now() Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by n days and returns the new date.
func (c *Clock) Advance(n int) Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDays(n)
	return c.now
}

// Set jumps the clock to a specific date (used when restoring saved state).
func (c *Clock) Set(d Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}
