package testutil

import "sync"

// DeterministicClock is a resettable step counter for scenario runs.
//
// It satisfies breakage.StepClock. Unlike breakage.Clock it records every
// step it handed out, so a test can assert how many flushes happened and
// in what order without reading logs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu     sync.Mutex
	step   int64
	issued []int64
}

// NewDeterministicClock creates a clock whose first Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances and returns the step number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step++
	c.issued = append(c.issued, c.step)
	return c.step
}

// Current returns the last issued step, or 0 before the first flush.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Issued returns every step handed out since construction or Reset.
func (c *DeterministicClock) Issued() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.issued))
	copy(out, c.issued)
	return out
}

// Reset returns the clock to 0 so a scenario can be replayed with
// identical step numbers.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = 0
	c.issued = nil
}
