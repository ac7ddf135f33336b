// Package system supplies the clock that stamps crawl runs and journal rows.
package system

import (
	"sync"
	"time"
)

// Clock reads time in UTC. The zero value is not usable; use New or Stepped.
type Clock struct {
	mu  sync.Mutex
	now func() time.Time
}

// New returns a Clock backed by the wall clock.
func New() *Clock {
	return &Clock{now: time.Now}
}

// Stepped returns a Clock that reports start on its first read and advances by
// step on every read after that.
func Stepped(start time.Time, step time.Duration) *Clock {
	next := start
	return &Clock{now: func() time.Time {
		t := next
		next = next.Add(step)
		return t
	}}
}

// Now returns the current time in UTC.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().UTC()
}

// Since returns the time elapsed since start.
func (c *Clock) Since(start time.Time) time.Duration {
	return c.Now().Sub(start)
}
