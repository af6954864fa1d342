// Package testutil provides deterministic fixtures for tests: a stepping
// clock, timestamp parsing helpers, and event builders. Production code must
// not import this package.
package testutil

import (
	"sync"
	"time"
)

// MustTime parses an RFC 3339 timestamp or panics. Test fixture use only.
func MustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// StepClock is a thread-safe time source that advances by a fixed step on
// every call. Two clocks built with the same base and step produce identical
// sequences, which keeps generated histories byte-stable across runs.
type StepClock struct {
	mu      sync.Mutex
	base    time.Time
	current time.Time
	step    time.Duration
}

// NewStepClock creates a clock whose first Now() returns base.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	return &StepClock{base: base, current: base, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Peek returns the instant the next Now() will report, without advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Reset rewinds the clock to its base instant for test reuse.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.base
}
