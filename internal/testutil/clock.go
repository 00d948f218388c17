package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a StepClock.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests. Every call to Now advances
// it by a fixed step, so runs that stamp start and finish times produce
// byte-identical output.
//
// Safe for concurrent use.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewStepClock creates a clock whose first Now returns start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

// Now returns the current time and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock to its start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// FixedRunID always returns the same run id.
//
// Satisfies engine.RunIDGenerator. Useful when every result of a scenario
// should carry the same id in golden output.
type FixedRunID string

// Generate returns the id, or "test-run" when empty.
func (f FixedRunID) Generate() string {
	if f == "" {
		return "test-run"
	}
	return string(f)
}
