package breakage

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// StepTokenGenerator generates a correlation token for each flush.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type StepTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 step tokens.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Falls back to a random v4 UUID if the v7 clock source fails.
func (g UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// FixedGenerator returns predetermined step tokens for testing.
//
// Once the list is exhausted the last token is repeated, so a test that
// flushes more often than it planned still gets a stable token.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
//	gen := NewFixedGenerator("step-1", "step-2")
//	gen.Generate() // "step-1"
//	gen.Generate() // "step-2"
//	gen.Generate() // "step-2"
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	if len(tokens) == 0 {
		tokens = []string{"test-step-default"}
	}
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := g.tokens[g.idx]
	if g.idx < len(g.tokens)-1 {
		g.idx++
	}
	return token
}

// StepClock numbers flushes. Implemented by Clock.
type StepClock interface {
	Next() int64
}

// Clock is the monotonic step counter stamped on every flush.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though a subsystem only advances it from its control goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after a known step, e.g. the last
// journaled flush.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next step number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current step number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
